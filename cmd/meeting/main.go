package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Lucien1999s/meeting-ai/internal/apierr"
	"github.com/Lucien1999s/meeting-ai/internal/app"
	"github.com/Lucien1999s/meeting-ai/internal/cli"
	"github.com/Lucien1999s/meeting-ai/internal/gateway"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/pipeline"
	"github.com/Lucien1999s/meeting-ai/internal/report"
	"github.com/Lucien1999s/meeting-ai/internal/transcribe"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitReport        = 6
	ExitInterrupt     = 130
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// Context with signal cancellation.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create the CLI environment with production defaults.
	env := cli.DefaultEnv()

	// Root command.
	rootCmd := &cobra.Command{
		Use:     "meeting",
		Short:   "Turn meeting audio into transcripts and structured reports",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	// Subcommands.
	rootCmd.AddCommand(cli.GenerateCmd(env))
	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Check for context cancellation (interrupt).
	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, app.ErrAPIKeyMissing) || errors.Is(err, transcribe.ErrWhisperNotFound) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, cli.ErrUnsupportedFormat) || errors.Is(err, cli.ErrConflictingInputs) ||
		errors.Is(err, app.ErrNoInput) || errors.Is(err, app.ErrTranscriptNotFound) ||
		errors.Is(err, transcribe.ErrAudioNotFound) || errors.Is(err, modeltier.ErrUnsupportedModel) ||
		errors.Is(err, modeltier.ErrUnsupportedAudioModel) || errors.Is(err, report.ErrUnknownFormat) {
		return ExitValidation
	}

	// Transcription errors (ExitTranscription = 5).
	if errors.Is(err, transcribe.ErrEmptyTranscript) {
		return ExitTranscription
	}

	// Report pipeline errors (ExitReport = 6).
	if errors.Is(err, pipeline.ErrEmptyTranscript) || errors.Is(err, pipeline.ErrNoProgress) ||
		errors.Is(err, gateway.ErrProbeFailed) || errors.Is(err, apierr.ErrRateLimit) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrServerError) ||
		errors.Is(err, apierr.ErrAuthFailed) || errors.Is(err, apierr.ErrBadRequest) {
		return ExitReport
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// These patterns are stable across Cobra versions (tested with v1.8+).
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
	"unknown command",           // Subcommand doesn't exist
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
