package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/Lucien1999s/meeting-ai/internal/gateway"
	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
	"github.com/Lucien1999s/meeting-ai/internal/pipeline"
)

// runeCounter counts one token per rune, which keeps the splitting
// arithmetic in the tests exact.
type runeCounter struct{}

func (runeCounter) CountText(text string, _ modeltier.Tier) (int, error) {
	return len([]rune(text)), nil
}

// fakeCaller dispatches on the stage recognizable from the prompt template
// and records every request it saw.
type fakeCaller struct {
	mu       sync.Mutex
	requests []gateway.Request

	narrate   func(chunk string) string
	summary   string
	followUps string
	recommend string

	probeLimit int
	probeErr   error
	probes     int
}

func (f *fakeCaller) Call(_ context.Context, req gateway.Request) (gateway.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	var text string
	switch {
	case strings.Contains(req.Prompt, "會議紀錄片段"):
		text = f.narrate(quoted(req.Prompt))
	case strings.Contains(req.Prompt, "1.[事件標題]"):
		text = f.summary
	case strings.Contains(req.Prompt, "- [要做的重點事項]"):
		text = f.followUps
	case strings.Contains(req.Prompt, "待辦事項"):
		text = f.recommend
	default:
		return gateway.Result{}, errors.New("unrecognized prompt")
	}
	return gateway.Result{Text: text, PromptTokens: 10, CompletionTokens: 5}, nil
}

func (f *fakeCaller) ProbeContextLimit(_ context.Context, _ modeltier.Tier) (int, error) {
	f.probes++
	return f.probeLimit, f.probeErr
}

func (f *fakeCaller) seen() []gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Request(nil), f.requests...)
}

// quoted extracts the text between the 「」 quotes of a prompt.
func quoted(prompt string) string {
	start := strings.Index(prompt, "「")
	end := strings.LastIndex(prompt, "」")
	if start == -1 || end == -1 {
		return ""
	}
	return prompt[start+len("「") : end]
}

// stageCounts tallies the requests by recognizable stage.
func stageCounts(reqs []gateway.Request) (narrate, summary, followUps, recommend int) {
	for _, req := range reqs {
		switch {
		case strings.Contains(req.Prompt, "會議紀錄片段"):
			narrate++
		case strings.Contains(req.Prompt, "1.[事件標題]"):
			summary++
		case strings.Contains(req.Prompt, "- [要做的重點事項]"):
			followUps++
		case strings.Contains(req.Prompt, "待辦事項"):
			recommend++
		}
	}
	return
}

func newGenerator(t *testing.T, caller *fakeCaller, cfg pipeline.Config, opts ...pipeline.Option) *pipeline.Generator {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	base := []pipeline.Option{pipeline.WithLogger(logger)}
	return pipeline.NewGenerator(caller, runeCounter{}, cfg, append(base, opts...)...)
}

// fitConfig gives a 200-token usable budget with no stage pauses.
func fitConfig() pipeline.Config {
	return pipeline.Config{
		Tier:               modeltier.GPT35TurboTier,
		ContextLimit:       300,
		ReservedCompletion: 50,
		ReservedOverhead:   50,
		MinFragment:        1,
		MaxTokens:          100,
		FollowUps:          true,
		Recommendations:    true,
	}
}

func TestGenerateEmptyTranscript(t *testing.T) {
	t.Parallel()

	g := newGenerator(t, &fakeCaller{}, fitConfig())
	for _, transcript := range []string{"", "   \n\t"} {
		if _, err := g.Generate(context.Background(), transcript); !errors.Is(err, pipeline.ErrEmptyTranscript) {
			t.Errorf("Generate(%q) error = %v, want ErrEmptyTranscript", transcript, err)
		}
	}
}

func TestGenerateShortTranscript(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{
		narrate:   func(string) string { return "今天會議討論了預算與時程。" },
		summary:   "1.預算：\n- 需重新評估",
		followUps: "- 確認預算",
		recommend: "- 確認預算：下週與財務開會",
	}
	g := newGenerator(t, caller, fitConfig())

	sections, err := g.Generate(context.Background(), "大家好，今天討論預算。")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if sections.Summary != "1.預算：\n- 需重新評估" {
		t.Errorf("Summary = %q", sections.Summary)
	}
	if sections.FollowUps != "- 確認預算" {
		t.Errorf("FollowUps = %q", sections.FollowUps)
	}
	if sections.Recommendations != "- 確認預算：下週與財務開會" {
		t.Errorf("Recommendations = %q", sections.Recommendations)
	}

	// Even a fitting transcript is narrated once before structuring.
	narrate, summary, followUps, recommend := stageCounts(caller.seen())
	if narrate != 1 || summary != 1 || followUps != 1 || recommend != 1 {
		t.Errorf("stage calls = %d/%d/%d/%d, want 1 each", narrate, summary, followUps, recommend)
	}
	if caller.probes != 0 {
		t.Errorf("probes = %d, want 0 with a configured context limit", caller.probes)
	}
}

func TestGenerateProbesWhenLimitUnset(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{
		narrate:    func(string) string { return "簡短敘述。" },
		summary:    "1.事項：\n- 說明",
		probeLimit: 300,
	}
	cfg := fitConfig()
	cfg.ContextLimit = 0
	cfg.FollowUps = false
	g := newGenerator(t, caller, cfg)

	if _, err := g.Generate(context.Background(), "開會內容。"); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if caller.probes != 1 {
		t.Errorf("probes = %d, want 1", caller.probes)
	}
}

func TestGenerateProbeFailureAborts(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{probeErr: gateway.ErrProbeFailed}
	cfg := fitConfig()
	cfg.ContextLimit = 0
	g := newGenerator(t, caller, cfg)

	if _, err := g.Generate(context.Background(), "開會內容。"); !errors.Is(err, gateway.ErrProbeFailed) {
		t.Errorf("Generate() error = %v, want wrapped ErrProbeFailed", err)
	}
	if got := len(caller.seen()); got != 0 {
		t.Errorf("caller saw %d stage requests after a failed probe, want 0", got)
	}
}

func TestGenerateCondensesUntilFit(t *testing.T) {
	t.Parallel()

	// Ten 51-rune lines against a 200-token budget split into four chunks
	// (3+3+3+1 lines). Each narration shrinks its chunk to a 2-rune marker,
	// so one cycle condenses the text under budget.
	var lines []string
	for r := 'A'; r <= 'J'; r++ {
		lines = append(lines, strings.Repeat(string(r), 50))
	}
	transcript := strings.Join(lines, "\n") + "\n"

	caller := &fakeCaller{
		narrate: func(chunk string) string {
			return "N" + string([]rune(chunk)[0])
		},
		summary: "1.事項：\n- 說明",
	}
	cfg := fitConfig()
	cfg.FollowUps = false
	g := newGenerator(t, caller, cfg)

	sections, err := g.Generate(context.Background(), transcript)
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if sections.Summary == "" {
		t.Error("Summary is empty")
	}

	narrate, summary, _, _ := stageCounts(caller.seen())
	if narrate != 4 {
		t.Errorf("narration calls = %d, want 4 (one per chunk)", narrate)
	}
	if summary != 1 {
		t.Errorf("summary calls = %d, want 1", summary)
	}

	// The condensed text preserves chunk order.
	var summaryPrompt string
	for _, req := range caller.seen() {
		if strings.Contains(req.Prompt, "1.[事件標題]") {
			summaryPrompt = req.Prompt
		}
	}
	if want := "NA\nND\nNG\nNJ"; !strings.Contains(summaryPrompt, want) {
		t.Errorf("summary prompt does not contain ordered narrations %q", want)
	}
}

func TestGenerateNoProgress(t *testing.T) {
	t.Parallel()

	// Narration that refuses to shrink keeps the text over budget forever;
	// the loop must detect this and fail instead of spinning.
	caller := &fakeCaller{
		narrate: func(string) string { return strings.Repeat("長", 600) },
	}
	cfg := fitConfig()
	g := newGenerator(t, caller, cfg)

	transcript := strings.Repeat(strings.Repeat("字", 50)+"\n", 10)
	_, err := g.Generate(context.Background(), transcript)
	if !errors.Is(err, pipeline.ErrNoProgress) {
		t.Errorf("Generate() error = %v, want ErrNoProgress", err)
	}
}

func TestGenerateSkipsOptionalStages(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{
		narrate: func(string) string { return "敘述。" },
		summary: "1.事項：\n- 說明",
	}
	cfg := fitConfig()
	cfg.FollowUps = false
	cfg.Recommendations = true // ignored without follow-ups to work from
	g := newGenerator(t, caller, cfg)

	sections, err := g.Generate(context.Background(), "開會內容。")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if sections.FollowUps != "" || sections.Recommendations != "" {
		t.Errorf("optional sections = %q/%q, want empty", sections.FollowUps, sections.Recommendations)
	}

	_, _, followUps, recommend := stageCounts(caller.seen())
	if followUps != 0 || recommend != 0 {
		t.Errorf("optional stage calls = %d/%d, want 0/0", followUps, recommend)
	}
}

func TestGenerateSkipsRecommendWithoutFollowUps(t *testing.T) {
	t.Parallel()

	// A follow-up stage that yields nothing leaves the recommend stage
	// without input, so it is skipped.
	caller := &fakeCaller{
		narrate:   func(string) string { return "敘述。" },
		summary:   "1.事項：\n- 說明",
		followUps: "   ",
	}
	g := newGenerator(t, caller, fitConfig())

	sections, err := g.Generate(context.Background(), "開會內容。")
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if sections.Recommendations != "" {
		t.Errorf("Recommendations = %q, want empty", sections.Recommendations)
	}
	_, _, _, recommend := stageCounts(caller.seen())
	if recommend != 0 {
		t.Errorf("recommend calls = %d, want 0", recommend)
	}
}

func TestGeneratePausesBetweenStages(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{
		narrate:   func(string) string { return "敘述。" },
		summary:   "1.事項：\n- 說明",
		followUps: "- 確認",
		recommend: "- 確認：行動",
	}
	cfg := fitConfig()
	cfg.StagePause = 10 * time.Second

	var pauses []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	g := newGenerator(t, caller, cfg, pipeline.WithSleep(sleep))

	if _, err := g.Generate(context.Background(), "開會內容。"); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if len(pauses) != 2 {
		t.Fatalf("pauses = %d, want 2 (before follow-ups and before recommendations)", len(pauses))
	}
	for _, d := range pauses {
		if d != 10*time.Second {
			t.Errorf("pause = %v, want 10s", d)
		}
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{
		narrate:   func(string) string { return "敘述。" },
		summary:   "1.事項：\n- 說明",
		followUps: "- 確認",
	}
	cfg := fitConfig()
	cfg.StagePause = time.Hour
	g := newGenerator(t, caller, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(ctx, "開會內容。")
		done <- err
	}()
	// Let the run reach the stage pause, then cancel it.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Generate() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Generate() did not return after cancellation")
	}
}
