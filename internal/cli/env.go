package cli

import (
	"context"
	"io"
	"os"

	"github.com/Lucien1999s/meeting-ai/internal/app"
	"github.com/Lucien1999s/meeting-ai/internal/config"
	"github.com/Lucien1999s/meeting-ai/internal/server"
)

// EnvOpenAIAPIKey is the environment variable holding the OpenAI credential.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	// ConfigLoader loads persistent user configuration.
	ConfigLoader ConfigLoader

	// Run executes one meeting workflow.
	Run RunFunc

	// Serve starts the HTTP API server and blocks until ctx is cancelled.
	Serve ServeFunc

	// AppEnv is the application environment passed to Run.
	AppEnv *app.Env
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// RunFunc executes one meeting workflow.
type RunFunc func(ctx context.Context, p app.Params, env *app.Env) (app.Result, error)

// ServeFunc starts the HTTP API server.
type ServeFunc func(ctx context.Context, addr, apiKey string, env *app.Env) error

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stdout = w
	}
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) {
		e.Getenv = fn
	}
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) {
		e.ConfigLoader = l
	}
}

// WithRun sets the workflow runner.
func WithRun(fn RunFunc) EnvOption {
	return func(e *Env) {
		e.Run = fn
	}
}

// WithServe sets the server starter.
func WithServe(fn ServeFunc) EnvOption {
	return func(e *Env) {
		e.Serve = fn
	}
}

// WithAppEnv sets the application environment.
func WithAppEnv(appEnv *app.Env) EnvOption {
	return func(e *Env) {
		e.AppEnv = appEnv
	}
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Getenv:       os.Getenv,
		ConfigLoader: &defaultConfigLoader{},
		Run:          app.Run,
		Serve:        defaultServe,
		AppEnv:       app.DefaultEnv(),
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

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultServe starts a real HTTP server.
func defaultServe(ctx context.Context, addr, apiKey string, appEnv *app.Env) error {
	s := server.New(
		server.WithAddr(addr),
		server.WithAPIKey(apiKey),
		server.WithEnv(appEnv),
	)
	return s.ListenAndServe(ctx)
}

// Compile-time interface verification.
var _ ConfigLoader = (*defaultConfigLoader)(nil)
