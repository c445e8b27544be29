package app

import (
	"github.com/Lucien1999s/meeting-ai/internal/gateway"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/pipeline"
	"github.com/Lucien1999s/meeting-ai/internal/report"
	"github.com/Lucien1999s/meeting-ai/internal/token"
	"github.com/Lucien1999s/meeting-ai/internal/transcribe"
	"github.com/Lucien1999s/meeting-ai/internal/usage"
)

// Default factory implementations - delegate to the real packages.

type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(apiKey string, model modeltier.AudioModel, ledger *usage.Ledger) transcribe.Transcriber {
	if model.IsAPI() {
		return transcribe.NewWhisperAPITranscriber(apiKey, ledger)
	}
	return transcribe.NewLocalWhisperTranscriber(model)
}

type defaultGeneratorFactory struct{}

func (defaultGeneratorFactory) NewGenerator(apiKey string, cfg pipeline.Config, ledger *usage.Ledger) ReportGenerator {
	counter := token.NewCounter()
	tier := cfg.Tier
	if tier.IsZero() {
		tier = modeltier.GPT35TurboTier
	}
	gw := gateway.New(apiKey, counter, ledger,
		gateway.WithTiers(tier, tier.Upgrade()))
	return pipeline.NewGenerator(gw, counter, cfg)
}

type defaultExporterFactory struct{}

func (defaultExporterFactory) NewExporter(dir, pdfFont string) ReportExporter {
	var opts []report.ExporterOption
	if pdfFont != "" {
		opts = append(opts, report.WithPDFFont(pdfFont))
	}
	return report.NewExporter(dir, opts...)
}

// Compile-time interface verification.
var (
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
	_ GeneratorFactory   = (*defaultGeneratorFactory)(nil)
	_ ExporterFactory    = (*defaultExporterFactory)(nil)
)
