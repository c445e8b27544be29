package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Lucien1999s/meeting-ai/internal/app"
	"github.com/Lucien1999s/meeting-ai/internal/config"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// mockConfigLoader implements ConfigLoader with an optional override.
type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

// runRecorder captures the parameters passed to the workflow runner.
type runRecorder struct {
	calls  int
	params app.Params
	result app.Result
	err    error
}

func (r *runRecorder) run(_ context.Context, p app.Params, _ *app.Env) (app.Result, error) {
	r.calls++
	r.params = p
	if r.err != nil {
		return app.Result{}, r.err
	}
	return r.result, nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env, the run recorder, and the stdout/stderr buffers.
func testEnv(opts ...EnvOption) (*Env, *runRecorder, *syncBuffer, *syncBuffer) {
	rec := &runRecorder{}
	stdout := &syncBuffer{}
	stderr := &syncBuffer{}

	base := []EnvOption{
		WithStdout(stdout),
		WithStderr(stderr),
		WithGetenv(staticEnv(nil)),
		WithConfigLoader(&mockConfigLoader{}),
		WithRun(rec.run),
		WithServe(func(context.Context, string, string, *app.Env) error { return nil }),
	}
	env := NewEnv(append(base, opts...)...)
	return env, rec, stdout, stderr
}

// createTestAudioFile creates a temporary audio file for testing.
// Returns the file path. The file is automatically cleaned up after the test.
func createTestAudioFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("fake audio content"), 0644); err != nil {
		t.Fatalf("failed to create test audio file: %v", err)
	}
	return path
}

// execCommand runs a cobra command with the given args and a background context.
func execCommand(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}
