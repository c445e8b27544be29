// Package transcribe converts meeting audio into transcript text. Two
// implementations cover the hosted Whisper endpoint and a local Whisper
// install driven over its command line; both satisfy the same interface so
// the rest of the pipeline never knows which one ran.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/Lucien1999s/meeting-ai/internal/apierr"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/usage"
)

// Hosted endpoint retry: same fixed-delay policy as the chat gateway.
const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 10 * time.Second
)

// Result is one transcription's output. Minutes and Cost are zero for local
// models, which are free and report no duration.
type Result struct {
	Text    string
	Minutes float64
	Cost    float64
}

// Transcriber converts an audio file into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

// audioTranscriber is an internal interface for the OpenAI audio client.
// *openai.Client implements this implicitly; tests inject fakes.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Transcriber      = (*WhisperAPITranscriber)(nil)
	_ Transcriber      = (*LocalWhisperTranscriber)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// WhisperAPITranscriber transcribes through the hosted Whisper endpoint and
// bills the audio minutes into the run's ledger.
type WhisperAPITranscriber struct {
	client audioTranscriber
	ledger *usage.Ledger
	retry  apierr.RetryPolicy
	log    logrus.FieldLogger
}

// APIOption configures a WhisperAPITranscriber.
type APIOption func(*WhisperAPITranscriber)

// WithRetryPolicy sets the retry policy for transient provider errors.
func WithRetryPolicy(p apierr.RetryPolicy) APIOption {
	return func(t *WhisperAPITranscriber) {
		t.retry = p
	}
}

// WithAPILogger sets the logger.
func WithAPILogger(log logrus.FieldLogger) APIOption {
	return func(t *WhisperAPITranscriber) {
		t.log = log
	}
}

// withAudioClient sets a custom audio client (for testing).
func withAudioClient(c audioTranscriber) APIOption {
	return func(t *WhisperAPITranscriber) {
		t.client = c
	}
}

// NewWhisperAPITranscriber creates a hosted-endpoint transcriber. ledger
// receives the audio minutes and cost of every successful transcription.
func NewWhisperAPITranscriber(apiKey string, ledger *usage.Ledger, opts ...APIOption) *WhisperAPITranscriber {
	t := &WhisperAPITranscriber{
		ledger: ledger,
		retry:  apierr.RetryPolicy{MaxAttempts: defaultMaxAttempts, Delay: defaultRetryDelay},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = openai.NewClient(apiKey)
	}
	return t
}

// Transcribe sends the audio file to the hosted Whisper endpoint. The
// verbose response format carries the audio duration, which prices the call.
func (t *WhisperAPITranscriber) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return Result{}, fmt.Errorf("%s: %w", audioPath, ErrAudioNotFound)
	}

	req := openai.AudioRequest{
		Model:    modeltier.WhisperAPIModel,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	resp, err := apierr.Retry(ctx, t.retry, func() (openai.AudioResponse, error) {
		resp, err := t.client.CreateTranscription(ctx, req)
		if err != nil {
			return openai.AudioResponse{}, classifyError(err)
		}
		return resp, nil
	}, isRetryable)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Result{}, ErrEmptyTranscript
	}

	minutes := resp.Duration / 60
	cost := modeltier.MustParseAudioModel(modeltier.AudioAPI).AudioCost(minutes)
	t.ledger.RecordAudio(minutes, cost)
	t.log.WithFields(logrus.Fields{
		"model":    modeltier.WhisperAPIModel,
		"minutes":  minutes,
		"cost_usd": cost,
	}).Info("audio transcribed")

	return Result{Text: text, Minutes: minutes, Cost: cost}, nil
}

// runFn runs a command and returns its combined output.
type runFn func(ctx context.Context, name string, args []string) (string, error)

// defaultRun is the production runner.
func defaultRun(ctx context.Context, name string, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// defaultWhisperBinary is looked up on PATH when no explicit path is set.
const defaultWhisperBinary = "whisper"

// LocalWhisperTranscriber drives a local Whisper install over its command
// line. The binary writes a txt transcript into a scratch directory, which
// is read back and cleaned up.
type LocalWhisperTranscriber struct {
	binary string
	model  modeltier.AudioModel
	run    runFn
	log    logrus.FieldLogger
}

// LocalOption configures a LocalWhisperTranscriber.
type LocalOption func(*LocalWhisperTranscriber)

// WithBinary sets an explicit whisper binary path.
func WithBinary(path string) LocalOption {
	return func(t *LocalWhisperTranscriber) {
		if path != "" {
			t.binary = path
		}
	}
}

// WithLocalLogger sets the logger.
func WithLocalLogger(log logrus.FieldLogger) LocalOption {
	return func(t *LocalWhisperTranscriber) {
		t.log = log
	}
}

// withRunner sets a custom command runner (for testing).
func withRunner(run runFn) LocalOption {
	return func(t *LocalWhisperTranscriber) {
		t.run = run
	}
}

// NewLocalWhisperTranscriber creates a local transcriber for a model size.
func NewLocalWhisperTranscriber(model modeltier.AudioModel, opts ...LocalOption) *LocalWhisperTranscriber {
	t := &LocalWhisperTranscriber{
		binary: defaultWhisperBinary,
		model:  model,
		run:    defaultRun,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe runs whisper on the audio file and reads back the transcript
// it wrote. Local models are free, so nothing is billed.
func (t *LocalWhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return Result{}, fmt.Errorf("%s: %w", audioPath, ErrAudioNotFound)
	}

	outDir, err := os.MkdirTemp("", "meeting-ai-whisper-*")
	if err != nil {
		return Result{}, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()

	args := []string{
		audioPath,
		"--model", t.model.String(),
		"--output_format", "txt",
		"--output_dir", outDir,
		"--verbose", "False",
	}
	out, err := t.run(ctx, t.binary, args)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, fmt.Errorf("%s: %w", t.binary, ErrWhisperNotFound)
		}
		return Result{}, fmt.Errorf("run whisper: %w\noutput: %s", err, out)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return Result{}, fmt.Errorf("read whisper output: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Result{}, ErrEmptyTranscript
	}

	t.log.WithFields(logrus.Fields{
		"model": t.model.String(),
		"chars": len(text),
	}).Info("audio transcribed locally")

	return Result{Text: text}, nil
}

// classifyError maps provider errors to the shared sentinels.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrServerError)
		case http.StatusBadRequest:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}

// isRetryable determines whether an error is transient.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return apierr.IsTransient(err)
}
