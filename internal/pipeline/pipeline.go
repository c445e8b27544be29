// Package pipeline turns a raw meeting transcript into report sections.
// Long transcripts are condensed iteratively: split into token-bounded
// chunks, each chunk narrated into denser prose, the narrations re-split,
// until the whole text fits one model call. The condensed text then feeds
// the structuring, follow-up, and recommendation stages.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Lucien1999s/meeting-ai/internal/chunk"
	"github.com/Lucien1999s/meeting-ai/internal/gateway"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
)

// Defaults. The thresholds were never one fixed set across deployments, so
// all of them are configurable; these are the tuned starting points.
const (
	// DefaultStagePause is the pause between sequential stages, deliberate
	// backpressure against provider rate limits.
	DefaultStagePause = 10 * time.Second

	// DefaultMaxParallel serializes narration calls unless raised.
	DefaultMaxParallel = 1

	// DefaultStageMaxTokens is the completion budget of each stage call.
	DefaultStageMaxTokens = 1000

	// DefaultNarrateTarget is the narration target length in characters.
	DefaultNarrateTarget = 500

	narrateTemperature = 0.7
	extractTemperature = 0.3
)

// ModelCaller is the gateway surface the pipeline drives.
type ModelCaller interface {
	Call(ctx context.Context, req gateway.Request) (gateway.Result, error)
	ProbeContextLimit(ctx context.Context, tier modeltier.Tier) (int, error)
}

// TokenCounter measures text against the target tier's tokenizer.
type TokenCounter interface {
	CountText(text string, tier modeltier.Tier) (int, error)
}

// Config carries the pipeline's tuning knobs. Zero values select the
// defaults; ContextLimit zero means "probe the provider at run time".
type Config struct {
	Tier               modeltier.Tier
	ContextLimit       int
	ReservedCompletion int
	ReservedOverhead   int
	MinFragment        int
	MaxTokens          int
	NarrateTarget      int
	StagePause         time.Duration
	MaxParallel        int
	FollowUps          bool
	Recommendations    bool
}

// DefaultConfig returns the standard configuration for a tier, with all
// optional stages enabled.
func DefaultConfig(tier modeltier.Tier) Config {
	return Config{
		Tier:            tier,
		MaxTokens:       DefaultStageMaxTokens,
		NarrateTarget:   DefaultNarrateTarget,
		StagePause:      DefaultStagePause,
		MaxParallel:     DefaultMaxParallel,
		FollowUps:       true,
		Recommendations: true,
	}
}

// Sections is the generated report content, before assembly.
type Sections struct {
	Summary         string
	FollowUps       string
	Recommendations string
}

// Generator runs the report pipeline. One Generator serves one meeting; it
// holds no state across Generate calls beyond its configuration.
type Generator struct {
	caller  ModelCaller
	counter TokenCounter
	cfg     Config
	log     logrus.FieldLogger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Generator) {
		g.log = log
	}
}

// withSleep replaces the stage-pause sleeper (for testing).
func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// NewGenerator creates a Generator. Zero config fields fall back to the
// defaults; a zero tier falls back to the small chat tier.
func NewGenerator(caller ModelCaller, counter TokenCounter, cfg Config, opts ...Option) *Generator {
	if cfg.Tier.IsZero() {
		cfg.Tier = modeltier.GPT35TurboTier
	}
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = DefaultStageMaxTokens
	}
	if cfg.NarrateTarget < 1 {
		cfg.NarrateTarget = DefaultNarrateTarget
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = DefaultMaxParallel
	}

	g := &Generator{
		caller:  caller,
		counter: counter,
		cfg:     cfg,
		log:     logrus.StandardLogger(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the full chain on a transcript and returns the report
// sections. The optional stages run per the configuration; recommendations
// additionally require a non-empty follow-up list to work from.
//
// Any stage failure aborts the run: there are no partial reports.
func (g *Generator) Generate(ctx context.Context, transcript string) (Sections, error) {
	if strings.TrimSpace(transcript) == "" {
		return Sections{}, ErrEmptyTranscript
	}

	splitter, err := g.splitter(ctx)
	if err != nil {
		return Sections{}, err
	}

	condensed, err := g.condense(ctx, splitter, transcript)
	if err != nil {
		return Sections{}, err
	}

	summary, err := g.complete(ctx, summarySystemPrompt, fmt.Sprintf(summaryPromptTemplate, condensed))
	if err != nil {
		return Sections{}, fmt.Errorf("structure summary: %w", err)
	}
	sections := Sections{Summary: summary}

	if g.cfg.FollowUps {
		if err := g.pause(ctx); err != nil {
			return Sections{}, err
		}
		followUps, err := g.complete(ctx, followUpsSystemPrompt, fmt.Sprintf(followUpsPromptTemplate, condensed))
		if err != nil {
			return Sections{}, fmt.Errorf("extract follow-ups: %w", err)
		}
		sections.FollowUps = followUps

		if g.cfg.Recommendations && followUps != "" {
			if err := g.pause(ctx); err != nil {
				return Sections{}, err
			}
			recommendations, err := g.complete(ctx, recommendSystemPrompt, fmt.Sprintf(recommendPromptTemplate, followUps))
			if err != nil {
				return Sections{}, fmt.Errorf("recommend next actions: %w", err)
			}
			sections.Recommendations = recommendations
		}
	}

	return sections, nil
}

// splitter builds the token-budget splitter, probing the provider for the
// usable context limit when none was configured.
func (g *Generator) splitter(ctx context.Context) (*chunk.BudgetSplitter, error) {
	limit := g.cfg.ContextLimit
	if limit == 0 {
		probed, err := g.caller.ProbeContextLimit(ctx, g.cfg.Tier)
		if err != nil {
			return nil, fmt.Errorf("discover usable context limit: %w", err)
		}
		limit = probed
	}

	counter := chunk.CounterFunc(func(text string) (int, error) {
		return g.counter.CountText(text, g.cfg.Tier)
	})
	var opts []chunk.SplitterOption
	if g.cfg.ReservedCompletion > 0 {
		opts = append(opts, chunk.WithReservedCompletion(g.cfg.ReservedCompletion))
	}
	if g.cfg.ReservedOverhead > 0 {
		opts = append(opts, chunk.WithReservedOverhead(g.cfg.ReservedOverhead))
	}
	if g.cfg.MinFragment > 0 {
		opts = append(opts, chunk.WithMinFragment(g.cfg.MinFragment))
	}
	return chunk.NewBudgetSplitter(counter, limit, opts...), nil
}

// condense narrates the transcript chunk by chunk until the concatenated
// result fits one call. Each cycle must strictly reduce token volume;
// a cycle that fails to shrink a still-oversized text aborts with
// ErrNoProgress instead of looping forever.
func (g *Generator) condense(ctx context.Context, splitter *chunk.BudgetSplitter, transcript string) (string, error) {
	chunks, _, err := splitter.Split(transcript)
	if err != nil {
		return "", fmt.Errorf("split transcript: %w", err)
	}

	text := transcript
	for cycle := 1; ; cycle++ {
		before, err := g.counter.CountText(text, g.cfg.Tier)
		if err != nil {
			return "", fmt.Errorf("count tokens: %w", err)
		}

		narrated, err := g.narrate(ctx, chunks)
		if err != nil {
			return "", err
		}
		text = strings.Join(narrated, "\n")

		after, err := g.counter.CountText(text, g.cfg.Tier)
		if err != nil {
			return "", fmt.Errorf("count tokens: %w", err)
		}
		g.log.WithFields(logrus.Fields{
			"cycle":  cycle,
			"chunks": len(chunks),
			"before": before,
			"after":  after,
		}).Info("condensed transcript")

		var fits bool
		chunks, fits, err = splitter.Split(text)
		if err != nil {
			return "", fmt.Errorf("split condensed text: %w", err)
		}
		if fits {
			return text, nil
		}
		if after >= before {
			return "", fmt.Errorf("cycle %d left %d tokens (was %d): %w", cycle, after, before, ErrNoProgress)
		}
		if err := g.pause(ctx); err != nil {
			return "", err
		}
	}
}

// narrate condenses each chunk into a first-person narrative paragraph.
// Chunks are independent, so calls run as a bounded concurrent batch; the
// batch is awaited as a whole and output order follows chunk order.
func (g *Generator) narrate(ctx context.Context, chunks []string) ([]string, error) {
	out := make([]string, len(chunks))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.cfg.MaxParallel)

	for i, c := range chunks {
		grp.Go(func() error {
			res, err := g.caller.Call(gctx, gateway.Request{
				Prompt:       fmt.Sprintf(narratePromptTemplate, c, g.cfg.NarrateTarget),
				SystemPrompt: narrateSystemPrompt,
				Temperature:  narrateTemperature,
				MaxTokens:    g.cfg.MaxTokens,
			})
			if err != nil {
				return fmt.Errorf("narrate chunk %d/%d: %w", i+1, len(chunks), err)
			}
			out[i] = strings.TrimSpace(res.Text)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// complete issues one extraction-stage call and post-processes its output.
func (g *Generator) complete(ctx context.Context, system, prompt string) (string, error) {
	res, err := g.caller.Call(ctx, gateway.Request{
		Prompt:       prompt,
		SystemPrompt: system,
		Temperature:  extractTemperature,
		MaxTokens:    g.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return Cleanup(res.Text), nil
}

// pause waits the configured stage pause, or returns early when the context
// is cancelled.
func (g *Generator) pause(ctx context.Context) error {
	if g.cfg.StagePause <= 0 {
		return nil
	}
	return g.sleep(ctx, g.cfg.StagePause)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
