// Package app wires the full meeting workflow: obtain a transcript (given
// directly, loaded from a file, or transcribed from audio), run the report
// pipeline over it, and export the assembled report.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/pipeline"
	"github.com/Lucien1999s/meeting-ai/internal/report"
	"github.com/Lucien1999s/meeting-ai/internal/transcribe"
	"github.com/Lucien1999s/meeting-ai/internal/usage"
)

// Fallbacks applied when the caller leaves Params fields empty.
const (
	DefaultMeetingName = "Team Meeting"
	DefaultOutputDir   = "output"
)

// Params describes one meeting run. Exactly one transcript source is used,
// in precedence order: Transcript, TranscriptPath, AudioPath.
type Params struct {
	MeetingName    string
	Transcript     string
	TranscriptPath string
	AudioPath      string

	APIKey     string
	AudioModel modeltier.AudioModel
	TextModel  modeltier.Tier

	OutputDir      string
	Formats        []report.Format
	PDFFont        string
	SaveTranscript bool
	ShowCost       bool

	ContextLimit    int
	StagePause      time.Duration
	MaxParallel     int
	FollowUps       bool
	Recommendations bool
}

// normalize fills the fallback values.
func (p *Params) normalize() {
	if p.MeetingName == "" {
		p.MeetingName = DefaultMeetingName
	}
	if p.OutputDir == "" {
		p.OutputDir = DefaultOutputDir
	}
	if len(p.Formats) == 0 {
		p.Formats = []report.Format{report.TXTFormat, report.JSONFormat}
	}
	if p.TextModel.IsZero() {
		p.TextModel = modeltier.GPT35TurboTier
	}
	if p.AudioModel.IsZero() {
		p.AudioModel = modeltier.MustParseAudioModel(modeltier.AudioBase)
	}
	if p.StagePause <= 0 {
		p.StagePause = pipeline.DefaultStagePause
	}
}

// Result is one completed run.
type Result struct {
	Report         report.Report
	Paths          []string
	TranscriptPath string
}

// ReportGenerator is the pipeline surface the app drives.
type ReportGenerator interface {
	Generate(ctx context.Context, transcript string) (pipeline.Sections, error)
}

// ReportExporter persists an assembled report.
type ReportExporter interface {
	ExportAll(r report.Report, formats []report.Format, includeCost bool) ([]string, error)
}

// TranscriberFactory creates transcribers for audio input.
type TranscriberFactory interface {
	NewTranscriber(apiKey string, model modeltier.AudioModel, ledger *usage.Ledger) transcribe.Transcriber
}

// GeneratorFactory creates report generators bound to one run's ledger.
type GeneratorFactory interface {
	NewGenerator(apiKey string, cfg pipeline.Config, ledger *usage.Ledger) ReportGenerator
}

// ExporterFactory creates report exporters.
type ExporterFactory interface {
	NewExporter(dir, pdfFont string) ReportExporter
}

// Env holds injectable dependencies for runs. This is the central injection
// point for testing the workflow in isolation. Use DefaultEnv or NewEnv to
// create a valid instance.
type Env struct {
	Log          logrus.FieldLogger
	Transcribers TranscriberFactory
	Generators   GeneratorFactory
	Exporters    ExporterFactory
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) EnvOption {
	return func(e *Env) {
		e.Log = log
	}
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) {
		e.Transcribers = f
	}
}

// WithGeneratorFactory sets the generator factory.
func WithGeneratorFactory(f GeneratorFactory) EnvOption {
	return func(e *Env) {
		e.Generators = f
	}
}

// WithExporterFactory sets the exporter factory.
func WithExporterFactory(f ExporterFactory) EnvOption {
	return func(e *Env) {
		e.Exporters = f
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Log:          logrus.StandardLogger(),
		Transcribers: &defaultTranscriberFactory{},
		Generators:   &defaultGeneratorFactory{},
		Exporters:    &defaultExporterFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// Run executes one meeting workflow. A failed stage aborts the run without
// exporting anything: there are no partial reports.
func Run(ctx context.Context, p Params, env *Env) (Result, error) {
	if env == nil {
		env = DefaultEnv()
	}
	p.normalize()
	if p.APIKey == "" {
		return Result{}, ErrAPIKeyMissing
	}

	ledger := usage.NewLedger()
	log := env.Log.WithField("meeting", p.MeetingName)

	transcript, fromAudio, err := resolveTranscript(ctx, p, env, ledger)
	if err != nil {
		return Result{}, err
	}

	var savedTranscript string
	if p.SaveTranscript && fromAudio {
		savedTranscript, err = writeTranscript(p.OutputDir, p.MeetingName, transcript)
		if err != nil {
			return Result{}, err
		}
		log.WithField("path", savedTranscript).Info("transcript saved")
	}

	cfg := pipeline.Config{
		Tier:            p.TextModel,
		ContextLimit:    p.ContextLimit,
		StagePause:      p.StagePause,
		MaxParallel:     p.MaxParallel,
		FollowUps:       p.FollowUps,
		Recommendations: p.Recommendations,
	}
	gen := env.Generators.NewGenerator(p.APIKey, cfg, ledger)
	sections, err := gen.Generate(ctx, transcript)
	if err != nil {
		return Result{}, fmt.Errorf("generate report: %w", err)
	}

	snap := ledger.Snapshot()
	rep := report.Report{
		MeetingName:     p.MeetingName,
		Summary:         sections.Summary,
		FollowUps:       sections.FollowUps,
		Recommendations: sections.Recommendations,
		Usage:           &snap,
	}

	paths, err := env.Exporters.NewExporter(p.OutputDir, p.PDFFont).ExportAll(rep, p.Formats, p.ShowCost)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{
		"files":      len(paths),
		"total_cost": snap.TotalCost,
	}).Info("meeting report complete")

	return Result{Report: rep, Paths: paths, TranscriptPath: savedTranscript}, nil
}

// resolveTranscript picks the transcript source by precedence and reports
// whether it came from audio transcription.
func resolveTranscript(ctx context.Context, p Params, env *Env, ledger *usage.Ledger) (string, bool, error) {
	switch {
	case strings.TrimSpace(p.Transcript) != "":
		return p.Transcript, false, nil

	case p.TranscriptPath != "":
		data, err := os.ReadFile(p.TranscriptPath)
		if err != nil {
			return "", false, fmt.Errorf("%s: %w", p.TranscriptPath, ErrTranscriptNotFound)
		}
		return string(data), false, nil

	case p.AudioPath != "":
		tr := env.Transcribers.NewTranscriber(p.APIKey, p.AudioModel, ledger)
		res, err := tr.Transcribe(ctx, p.AudioPath)
		if err != nil {
			return "", false, fmt.Errorf("transcribe audio: %w", err)
		}
		return res.Text, true, nil

	default:
		return "", false, ErrNoInput
	}
}

// writeTranscript persists the raw transcript next to the report exports.
func writeTranscript(dir, meetingName, transcript string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	name := strings.ReplaceAll(meetingName, "/", "_")
	path := filepath.Join(dir, name+"_transcript.txt")
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return path, nil
}
