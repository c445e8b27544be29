// Package server exposes the meeting workflow over HTTP. One endpoint,
// POST /api, runs a full meeting report synchronously and returns the
// written paths with the usage tally.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Lucien1999s/meeting-ai/internal/apierr"
	"github.com/Lucien1999s/meeting-ai/internal/app"
	"github.com/Lucien1999s/meeting-ai/internal/gateway"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/pipeline"
	"github.com/Lucien1999s/meeting-ai/internal/report"
	"github.com/Lucien1999s/meeting-ai/internal/transcribe"
	"github.com/Lucien1999s/meeting-ai/internal/usage"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// shutdownTimeout bounds graceful shutdown; in-flight pipeline runs get
	// this long to finish.
	shutdownTimeout = 30 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// generateRequest is the POST /api body. Field names match the original
// deployment's clients; omitted booleans default to true.
type generateRequest struct {
	MeetingName    string `json:"meeting_name"`
	Transcript     string `json:"transcript"`
	TranscriptPath string `json:"transcript_path"`
	FilePath       string `json:"file_path"`
	APIKey         string `json:"api_key"`
	AudioModel     string `json:"audio_model"`
	TextModel      string `json:"text_model"`
	OutputPath     string `json:"output_path"`
	Formats        string `json:"formats"`
	SaveTranscript *bool  `json:"save_transcript"`
	ShowTxtCost    *bool  `json:"show_txt_cost"`
}

// generateResponse is the success body.
type generateResponse struct {
	Message        string          `json:"message"`
	Files          []string        `json:"files"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Usage          *usage.Snapshot `json:"usage,omitempty"`
}

// errorResponse is the failure body.
type errorResponse struct {
	Error string `json:"error"`
}

// runFunc executes one meeting workflow. Injectable for tests.
type runFunc func(ctx context.Context, p app.Params, env *app.Env) (app.Result, error)

// Server serves the meeting report API.
type Server struct {
	addr   string
	apiKey string
	env    *app.Env
	run    runFunc
	log    logrus.FieldLogger

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAPIKey sets a fallback API credential used when a request carries none.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithEnv sets the app environment used for runs.
func WithEnv(env *app.Env) Option {
	return func(s *Server) {
		s.env = env
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// withRun sets a custom run function (for testing).
func withRun(run runFunc) Option {
	return func(s *Server) {
		s.run = run
	}
}

// New creates a Server.
func New(opts ...Option) *Server {
	s := &Server{
		addr: DefaultAddr,
		env:  app.DefaultEnv(),
		run:  app.Run,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", s.handleGenerate)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.log.WithField("addr", s.addr).Info("server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errCh // drain the ErrServerClosed from ListenAndServe
		return nil
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("use POST"))
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}

	params, err := s.buildParams(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.run(r.Context(), params, s.env)
	if err != nil {
		s.log.WithError(err).WithField("meeting", params.MeetingName).Error("run failed")
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Message:        "meeting report generated",
		Files:          res.Paths,
		TranscriptPath: res.TranscriptPath,
		Usage:          res.Report.Usage,
	})
}

// buildParams validates the request and applies the endpoint defaults.
func (s *Server) buildParams(req generateRequest) (app.Params, error) {
	p := app.Params{
		MeetingName:     req.MeetingName,
		Transcript:      req.Transcript,
		TranscriptPath:  req.TranscriptPath,
		AudioPath:       req.FilePath,
		APIKey:          req.APIKey,
		OutputDir:       req.OutputPath,
		SaveTranscript:  boolOr(req.SaveTranscript, true),
		ShowCost:        boolOr(req.ShowTxtCost, true),
		FollowUps:       true,
		Recommendations: true,
	}
	if p.APIKey == "" {
		p.APIKey = s.apiKey
	}

	if req.AudioModel != "" {
		model, err := modeltier.ParseAudioModel(req.AudioModel)
		if err != nil {
			return app.Params{}, err
		}
		p.AudioModel = model
	}
	if req.TextModel != "" {
		tier, err := modeltier.Parse(req.TextModel)
		if err != nil {
			return app.Params{}, err
		}
		p.TextModel = tier
	}
	if req.Formats != "" {
		formats, err := report.ParseFormats(req.Formats)
		if err != nil {
			return app.Params{}, err
		}
		p.Formats = formats
	}
	return p, nil
}

// statusFor maps run errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrAPIKeyMissing),
		errors.Is(err, app.ErrNoInput),
		errors.Is(err, pipeline.ErrEmptyTranscript),
		errors.Is(err, transcribe.ErrEmptyTranscript),
		errors.Is(err, apierr.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrTranscriptNotFound),
		errors.Is(err, transcribe.ErrAudioNotFound):
		return http.StatusNotFound
	case errors.Is(err, apierr.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, apierr.ErrRateLimit),
		errors.Is(err, apierr.ErrTimeout),
		errors.Is(err, apierr.ErrServerError),
		errors.Is(err, gateway.ErrProbeFailed),
		errors.Is(err, pipeline.ErrNoProgress):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
