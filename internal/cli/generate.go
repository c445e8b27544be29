package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lucien1999s/meeting-ai/internal/app"
	"github.com/Lucien1999s/meeting-ai/internal/config"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/report"
)

// supportedFormats lists audio formats accepted by OpenAI's transcription API.
// Source: https://platform.openai.com/docs/guides/speech-to-text
var supportedFormats = map[string]bool{
	".ogg":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
// The list is sorted for deterministic output in tests and user-facing messages.
func supportedFormatsList() string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// generateFlags collects the flag values for the generate command.
type generateFlags struct {
	name           string
	audio          string
	transcript     string
	apiKey         string
	audioModel     string
	textModel      string
	output         string
	formats        string
	pdfFont        string
	saveTranscript bool
	showCost       bool
	noFollowUps    bool
	noRecommend    bool
	stagePause     time.Duration
	contextLimit   int
	parallel       int
}

// GenerateCmd creates the generate command.
// The env parameter provides injectable dependencies for testing.
func GenerateCmd(env *Env) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a meeting report from audio or a transcript",
		Long: `Generate a structured meeting report from an audio recording or an
existing transcript.

Audio is transcribed with Whisper (local binary or OpenAI API), the transcript
is condensed until it fits the model's context window, and the report sections
(summary, follow-ups, recommendations) are produced by the chat model.

Supported audio formats: ogg, mp3, wav, m4a, flac, mp4, mpeg, mpga, webm`,
		Example: `  meeting generate -a standup.mp3 -n "Daily Standup"
  meeting generate -a review.wav --audio-model api --formats txt,json,pdf
  meeting generate -t transcript.txt --text-model gpt-3.5-turbo-16k
  meeting generate -a sync.mp3 --no-recommendations -o ~/reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, env, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "Meeting name used in the report and file names")
	cmd.Flags().StringVarP(&flags.audio, "audio", "a", "", "Audio file to transcribe")
	cmd.Flags().StringVarP(&flags.transcript, "transcript", "t", "", "Existing transcript file (skips transcription)")
	cmd.Flags().StringVar(&flags.apiKey, "api-key", "", "OpenAI API key (default: $"+EnvOpenAIAPIKey+")")
	cmd.Flags().StringVar(&flags.audioModel, "audio-model", "", "Whisper model: base, tiny, small, medium, api")
	cmd.Flags().StringVar(&flags.textModel, "text-model", "", "Chat model: gpt-3.5-turbo, gpt-3.5-turbo-16k, gpt-4")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (default: config output-dir, then ./output)")
	cmd.Flags().StringVarP(&flags.formats, "formats", "f", "", "Comma-separated export formats: txt, json, pdf, csv, xlsx")
	cmd.Flags().StringVar(&flags.pdfFont, "pdf-font", "", "TTF font file for PDF export (default: config pdf-font)")
	cmd.Flags().BoolVar(&flags.saveTranscript, "save-transcript", true, "Save the transcript next to the report when transcribing audio")
	cmd.Flags().BoolVar(&flags.showCost, "show-cost", true, "Include the cost section in exported reports")
	cmd.Flags().BoolVar(&flags.noFollowUps, "no-follow-ups", false, "Skip the follow-ups section")
	cmd.Flags().BoolVar(&flags.noRecommend, "no-recommendations", false, "Skip the recommendations section")
	cmd.Flags().DurationVar(&flags.stagePause, "stage-pause", 0, "Pause between pipeline stages (default 10s)")
	cmd.Flags().IntVar(&flags.contextLimit, "context-limit", 0, "Override the model context limit in tokens (0 = probe)")
	cmd.Flags().IntVarP(&flags.parallel, "parallel", "p", 0, "Max concurrent narration requests")

	return cmd
}

// runGenerate validates flags and executes the report workflow.
// Validation order: inputs -> audio format -> models -> formats -> API key
func runGenerate(cmd *cobra.Command, env *Env, flags generateFlags) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. Exactly one input source.
	if flags.audio != "" && flags.transcript != "" {
		return ErrConflictingInputs
	}
	if flags.audio == "" && flags.transcript == "" {
		return fmt.Errorf("%w (use --audio or --transcript)", app.ErrNoInput)
	}

	// 2. Audio file exists and has a supported extension.
	if flags.audio != "" {
		if _, err := os.Stat(flags.audio); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("audio file not found: %s", flags.audio)
			}
			return fmt.Errorf("cannot access audio file: %w", err)
		}
		ext := strings.ToLower(filepath.Ext(flags.audio))
		if !supportedFormats[ext] {
			return fmt.Errorf("unsupported format %q (supported: %s): %w",
				ext, supportedFormatsList(), ErrUnsupportedFormat)
		}
	}

	// 3. Model and format flags parse.
	var audioModel modeltier.AudioModel
	if flags.audioModel != "" {
		model, err := modeltier.ParseAudioModel(flags.audioModel)
		if err != nil {
			return err
		}
		audioModel = model
	}

	var textModel modeltier.Tier
	if flags.textModel != "" {
		tier, err := modeltier.Parse(flags.textModel)
		if err != nil {
			return err
		}
		textModel = tier
	}

	var formats []report.Format
	if flags.formats != "" {
		parsed, err := report.ParseFormats(flags.formats)
		if err != nil {
			return err
		}
		formats = parsed
	}

	// 4. Load config for output-dir and pdf-font defaults.
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	output := flags.output
	if output == "" {
		output = cfg.OutputDir
	}
	output = config.ExpandPath(output)

	pdfFont := flags.pdfFont
	if pdfFont == "" {
		pdfFont = cfg.PDFFont
	}

	// 5. API key present.
	apiKey := flags.apiKey
	if apiKey == "" {
		apiKey = env.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", app.ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}

	// === RUN ===

	fmt.Fprintln(env.Stderr, "Generating meeting report...")

	res, err := env.Run(ctx, app.Params{
		MeetingName:     flags.name,
		TranscriptPath:  flags.transcript,
		AudioPath:       flags.audio,
		APIKey:          apiKey,
		AudioModel:      audioModel,
		TextModel:       textModel,
		OutputDir:       output,
		Formats:         formats,
		PDFFont:         pdfFont,
		SaveTranscript:  flags.saveTranscript,
		ShowCost:        flags.showCost,
		ContextLimit:    flags.contextLimit,
		StagePause:      flags.stagePause,
		MaxParallel:     flags.parallel,
		FollowUps:       !flags.noFollowUps,
		Recommendations: !flags.noRecommend,
	}, env.AppEnv)
	if err != nil {
		return err
	}

	// === REPORT ===

	if res.TranscriptPath != "" {
		fmt.Fprintf(env.Stderr, "Transcript saved: %s\n", res.TranscriptPath)
	}
	for _, p := range res.Paths {
		fmt.Fprintf(env.Stderr, "Report saved: %s\n", p)
	}
	if flags.showCost && res.Report.Usage != nil {
		fmt.Fprintln(env.Stdout, res.Report.Usage.String())
	}

	return nil
}
