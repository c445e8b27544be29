// Package chunk partitions long text into bounded pieces for the report
// pipeline. Both policies are deterministic and order-preserving:
// concatenating the output chunks reconstructs the input exactly.
package chunk

import (
	"fmt"
	"strings"
)

// DefaultChunkSize is the CJK-unit threshold of the simple splitter.
const DefaultChunkSize = 4000

// cjkStart and cjkEnd bound the CJK Unified Ideographs block that the
// simple splitter's length counter weighs.
const (
	cjkStart = '一'
	cjkEnd   = '鿿'
)

// SplitCJK partitions text into chunks of at most chunkSize CJK units.
// The length counter increments only on CJK characters; ASCII and other
// runes ride along for free, so a chunk may hold far more than chunkSize
// raw characters. This is a content-density heuristic for transcripts that
// are mostly Chinese prose.
//
// A trailing partial chunk is always flushed. chunkSize below 1 is treated
// as 1.
func SplitCJK(text string, chunkSize int) []string {
	if chunkSize < 1 {
		chunkSize = 1
	}

	var chunks []string
	var current strings.Builder
	length := 0

	for _, r := range text {
		if length < chunkSize {
			current.WriteRune(r)
			if r >= cjkStart && r <= cjkEnd {
				length++
			}
		} else {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteRune(r)
			length = 1
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// TokenCounter reports the raw token count of a text under the target
// model's tokenizer.
type TokenCounter interface {
	Count(text string) (int, error)
}

// CounterFunc adapts a function to the TokenCounter interface.
type CounterFunc func(text string) (int, error)

// Count implements TokenCounter.
func (f CounterFunc) Count(text string) (int, error) {
	return f(text)
}

// Budget splitter defaults.
const (
	// DefaultReservedCompletion is the token room left for the model's reply.
	DefaultReservedCompletion = 1000

	// DefaultReservedOverhead covers the prompt template and message framing.
	DefaultReservedOverhead = 400

	// DefaultMinFragment is the smallest acceptable final chunk. A naive
	// split leaving a fragment below this triggers budget rebalancing.
	DefaultMinFragment = 500
)

// BudgetSplitter splits text by token count against a model's context
// limit, leaving reserved room for the prompt overhead and the completion.
type BudgetSplitter struct {
	counter            TokenCounter
	contextLimit       int
	reservedCompletion int
	reservedOverhead   int
	minFragment        int
}

// SplitterOption configures a BudgetSplitter.
type SplitterOption func(*BudgetSplitter)

// WithReservedCompletion sets the token room reserved for the reply.
func WithReservedCompletion(n int) SplitterOption {
	return func(s *BudgetSplitter) {
		if n >= 0 {
			s.reservedCompletion = n
		}
	}
}

// WithReservedOverhead sets the token room reserved for prompt framing.
func WithReservedOverhead(n int) SplitterOption {
	return func(s *BudgetSplitter) {
		if n >= 0 {
			s.reservedOverhead = n
		}
	}
}

// WithMinFragment sets the smallest acceptable final chunk size in tokens.
func WithMinFragment(n int) SplitterOption {
	return func(s *BudgetSplitter) {
		if n >= 0 {
			s.minFragment = n
		}
	}
}

// NewBudgetSplitter creates a splitter for a model whose usable context
// limit is contextLimit tokens (static tier limit or probed at runtime).
func NewBudgetSplitter(counter TokenCounter, contextLimit int, opts ...SplitterOption) *BudgetSplitter {
	s := &BudgetSplitter{
		counter:            counter,
		contextLimit:       contextLimit,
		reservedCompletion: DefaultReservedCompletion,
		reservedOverhead:   DefaultReservedOverhead,
		minFragment:        DefaultMinFragment,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split partitions text into chunks whose token counts stay within the
// per-chunk budget. The second return value reports whether the whole input
// fits in a single call; callers must branch on it rather than on the chunk
// count, because a single chunk that still needs resplitting is a valid
// state during iterative re-chunking.
//
// When the input does not fit, the budget normally equals the available
// room; if that would strand a final fragment smaller than minFragment, the
// budget is recomputed by ceiling division over one fewer chunk so the
// pieces divide evenly instead.
func (s *BudgetSplitter) Split(text string) ([]string, bool, error) {
	available := s.contextLimit - s.reservedCompletion - s.reservedOverhead
	if available <= 0 {
		return nil, false, fmt.Errorf("context limit %d leaves no room after reserving %d completion and %d overhead tokens",
			s.contextLimit, s.reservedCompletion, s.reservedOverhead)
	}

	total, err := s.counter.Count(text)
	if err != nil {
		return nil, false, fmt.Errorf("count input tokens: %w", err)
	}
	if total <= available {
		return []string{text}, true, nil
	}

	budget := s.chunkBudget(total, available)
	chunks, err := s.pack(text, budget)
	if err != nil {
		return nil, false, err
	}
	return chunks, false, nil
}

// chunkBudget picks the per-chunk token budget. The naive budget is the
// full available room; when the remainder chunk under that budget would be
// a starved fragment, the total is re-divided over one fewer chunk.
func (s *BudgetSplitter) chunkBudget(total, available int) int {
	count := (total + available - 1) / available
	if count <= 1 {
		return available
	}
	remainder := total - (count-1)*available
	if remainder >= s.minFragment {
		return available
	}
	return (total + count - 2) / (count - 1)
}

// pack greedily fills chunks up to budget tokens. Units are newline-bounded
// segments so that concatenation reconstructs the input byte for byte; a
// single unit over budget is cut by rune windows.
func (s *BudgetSplitter) pack(text string, budget int) ([]string, error) {
	var chunks []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentTokens = 0
		}
	}

	for _, unit := range strings.SplitAfter(text, "\n") {
		if unit == "" {
			continue
		}
		unitTokens, err := s.counter.Count(unit)
		if err != nil {
			return nil, fmt.Errorf("count unit tokens: %w", err)
		}

		if unitTokens > budget {
			// Oversized unit: flush what we have and cut the unit itself.
			flush()
			pieces, err := s.cut(unit, budget)
			if err != nil {
				return nil, err
			}
			// The last piece may still have room; keep it open for packing.
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			last := pieces[len(pieces)-1]
			lastTokens, err := s.counter.Count(last)
			if err != nil {
				return nil, fmt.Errorf("count unit tokens: %w", err)
			}
			current.WriteString(last)
			currentTokens = lastTokens
			continue
		}

		if currentTokens+unitTokens > budget {
			flush()
		}
		current.WriteString(unit)
		currentTokens += unitTokens
	}
	flush()

	return chunks, nil
}

// cut splits a single oversized unit into rune windows, halving until every
// piece fits the budget. Lossless: the pieces concatenate to the unit.
func (s *BudgetSplitter) cut(unit string, budget int) ([]string, error) {
	n, err := s.counter.Count(unit)
	if err != nil {
		return nil, fmt.Errorf("count unit tokens: %w", err)
	}
	if n <= budget {
		return []string{unit}, nil
	}

	runes := []rune(unit)
	if len(runes) < 2 {
		// A single rune that exceeds the budget cannot be split further.
		return []string{unit}, nil
	}
	mid := len(runes) / 2
	left, err := s.cut(string(runes[:mid]), budget)
	if err != nil {
		return nil, err
	}
	right, err := s.cut(string(runes[mid:]), budget)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
