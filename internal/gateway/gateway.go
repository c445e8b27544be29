// Package gateway wraps a single chat-completion call with model-tier
// selection, bounded retry, and cost accounting. One Call is the unit of
// "one request, one response, one usage delta": failed attempts contribute
// nothing to the ledger, and every successful result is recorded exactly
// once.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/Lucien1999s/meeting-ai/internal/apierr"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/usage"
)

// Default configuration values.
const (
	// defaultUpgradeThreshold is the estimated token count above which a
	// call is routed to the large-context tier.
	defaultUpgradeThreshold = 4000

	// Retry: 3 attempts total with a fixed 10s pause, deliberate
	// backpressure against provider rate limits.
	defaultMaxAttempts = 3
	defaultRetryDelay  = 10 * time.Second

	// defaultHTTPTimeout bounds a single request so a stuck call cannot
	// hang the pipeline indefinitely.
	defaultHTTPTimeout = 2 * time.Minute
)

// Request describes one chat-completion call. Immutable once constructed.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Result is one successful call's output and its accounted usage.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Tier             modeltier.Tier
}

// chatCompleter is an internal interface for the OpenAI chat completion
// client. *openai.Client implements this implicitly; tests inject fakes.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// tokenCounter estimates request token counts for tier selection.
type tokenCounter interface {
	Count(text string, tier modeltier.Tier) (int, error)
}

// Gateway issues chat-completion calls against a small/large tier pair.
type Gateway struct {
	client           chatCompleter
	counter          tokenCounter
	ledger           *usage.Ledger
	small            modeltier.Tier
	large            modeltier.Tier
	upgradeThreshold int
	retry            apierr.RetryPolicy
	httpTimeout      time.Duration
	log              logrus.FieldLogger

	mu     sync.Mutex
	probed map[string]int // tier name -> discovered usable context limit
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTiers sets the small and large-context model tiers.
func WithTiers(small, large modeltier.Tier) Option {
	return func(g *Gateway) {
		g.small = small
		g.large = large
	}
}

// WithUpgradeThreshold sets the estimated token count above which calls are
// routed to the large-context tier.
func WithUpgradeThreshold(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.upgradeThreshold = n
		}
	}
}

// WithRetryPolicy sets the retry policy for transient provider errors.
func WithRetryPolicy(p apierr.RetryPolicy) Option {
	return func(g *Gateway) {
		g.retry = p
	}
}

// WithHTTPTimeout sets the per-request HTTP timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.httpTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Gateway) {
		g.log = log
	}
}

// withClient sets a custom chat completer (for testing).
func withClient(c chatCompleter) Option {
	return func(g *Gateway) {
		g.client = c
	}
}

// New creates a Gateway. The API credential is injected here and nowhere
// else; there is no ambient process-wide key. ledger receives every
// successful call's usage.
func New(apiKey string, counter tokenCounter, ledger *usage.Ledger, opts ...Option) *Gateway {
	g := &Gateway{
		counter:          counter,
		ledger:           ledger,
		small:            modeltier.GPT35TurboTier,
		large:            modeltier.GPT35Turbo16KTier,
		upgradeThreshold: defaultUpgradeThreshold,
		retry:            apierr.RetryPolicy{MaxAttempts: defaultMaxAttempts, Delay: defaultRetryDelay},
		httpTimeout:      defaultHTTPTimeout,
		log:              logrus.StandardLogger(),
		probed:           make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	// Create the client after options are applied (timeout may be customized).
	if g.client == nil {
		cfg := openai.DefaultConfig(apiKey)
		cfg.HTTPClient = &http.Client{Timeout: g.httpTimeout}
		g.client = openai.NewClientWithConfig(cfg)
	}
	return g
}

// Call issues one chat-completion request. The tier is chosen by comparing
// the combined estimated token count of prompt, system prompt, and the
// completion budget against the upgrade threshold. Transient provider
// errors are retried per the gateway's policy; exhausting the attempts
// re-raises the last error, which is fatal for the pipeline run.
//
// On success the ledger is updated with the provider-reported token counts
// and the tier-priced cost.
func (g *Gateway) Call(ctx context.Context, req Request) (Result, error) {
	tier, err := g.selectTier(req)
	if err != nil {
		return Result{}, err
	}

	creq := openai.ChatCompletionRequest{
		Model:       tier.String(),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}

	result, err := apierr.Retry(ctx, g.retry, func() (Result, error) {
		resp, err := g.client.CreateChatCompletion(ctx, creq)
		if err != nil {
			return Result{}, classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return Result{}, errors.New("no choices in response")
		}
		r := Result{
			Text:             resp.Choices[0].Message.Content,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			Tier:             tier,
		}
		r.Cost = tier.Cost(r.PromptTokens, r.CompletionTokens)
		return r, nil
	}, isRetryable)
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}

	g.ledger.Record(result.PromptTokens, result.CompletionTokens, result.Cost)
	g.log.WithFields(logrus.Fields{
		"model":             tier.String(),
		"prompt_tokens":     result.PromptTokens,
		"completion_tokens": result.CompletionTokens,
		"cost_usd":          result.Cost,
	}).Info("chat completion")

	return result, nil
}

// selectTier routes the request to the small or large-context tier based on
// its estimated total token count.
func (g *Gateway) selectTier(req Request) (modeltier.Tier, error) {
	promptTokens, err := g.counter.Count(req.Prompt, g.small)
	if err != nil {
		return modeltier.Tier{}, fmt.Errorf("estimate prompt tokens: %w", err)
	}
	systemTokens, err := g.counter.Count(req.SystemPrompt, g.small)
	if err != nil {
		return modeltier.Tier{}, fmt.Errorf("estimate system prompt tokens: %w", err)
	}
	if promptTokens+systemTokens+req.MaxTokens > g.upgradeThreshold {
		return g.large, nil
	}
	return g.small, nil
}

// classifyError maps provider errors to the shared sentinels.
// Uses errors.As for typed API errors rather than string matching.
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
