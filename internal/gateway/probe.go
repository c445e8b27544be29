package gateway

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
)

// Capability probe configuration.
const (
	// probePrompt keeps the request itself trivially small.
	probePrompt = "hi"

	// probeMaxTokens is deliberately astronomical so the provider rejects
	// the request and states the model's real context limit in the error.
	probeMaxTokens = 100_000_000

	// probeSafetyMargin is subtracted from the stated limit.
	probeSafetyMargin = 100
)

// contextLimitPattern matches the provider's context-length rejection, e.g.
// "This model's maximum context length is 16385 tokens. However, you
// requested 100000010 tokens ...".
var contextLimitPattern = regexp.MustCompile(`maximum context length is (\d+) tokens`)

// ProbeContextLimit discovers a tier's usable context limit at runtime by
// issuing a deliberately oversized request and parsing the stated maximum
// out of the rejection message, minus a safety margin. The result is cached
// per tier for the lifetime of the gateway.
//
// This is a capability-probing protocol, not a best-effort guess: an error
// of any other shape returns ErrProbeFailed rather than a silent default.
func (g *Gateway) ProbeContextLimit(ctx context.Context, tier modeltier.Tier) (int, error) {
	name := tier.String()

	g.mu.Lock()
	if limit, ok := g.probed[name]; ok {
		g.mu.Unlock()
		return limit, nil
	}
	g.mu.Unlock()

	req := openai.ChatCompletionRequest{
		Model:     name,
		MaxTokens: probeMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: probePrompt},
		},
	}

	_, err := g.client.CreateChatCompletion(ctx, req)
	if err == nil {
		return 0, fmt.Errorf("oversized probe request unexpectedly succeeded: %w", ErrProbeFailed)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	msg := err.Error()
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}

	m := contextLimitPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, fmt.Errorf("cannot extract context limit from provider error %q: %w", msg, ErrProbeFailed)
	}
	stated, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("cannot parse context limit %q: %w", m[1], ErrProbeFailed)
	}

	limit := stated - probeSafetyMargin
	g.mu.Lock()
	g.probed[name] = limit
	g.mu.Unlock()

	g.log.WithFields(logrus.Fields{
		"model":        name,
		"stated_limit": stated,
		"usable_limit": limit,
	}).Info("probed context limit")

	return limit, nil
}
