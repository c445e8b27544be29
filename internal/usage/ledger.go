// Package usage accumulates token counts and dollar cost across all model
// calls in one pipeline run. A Ledger is constructed per run and owned by
// it; there is no process-wide state and no mid-run reset.
package usage

import (
	"fmt"
	"sync"
)

// Snapshot is the final tally of one pipeline run.
type Snapshot struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
	AudioMinutes     float64 `json:"audio_minutes,omitempty"`
	AudioCost        float64 `json:"audio_cost,omitempty"`
}

// String renders the snapshot as the human-readable cost block used in the
// txt export.
func (s Snapshot) String() string {
	out := fmt.Sprintf("prompt tokens: %d\ncompletion tokens: %d\ntotal tokens: %d\ntotal cost: %.6f USD",
		s.PromptTokens, s.CompletionTokens, s.TotalTokens, s.TotalCost)
	if s.AudioMinutes > 0 {
		out += fmt.Sprintf("\naudio minutes: %.1f\naudio cost: %.6f USD", s.AudioMinutes, s.AudioCost)
	}
	return out
}

// Ledger is the running tally for one pipeline run. It is safe for
// concurrent use because narration calls may be issued as a batch.
type Ledger struct {
	mu               sync.Mutex
	promptTokens     int
	completionTokens int
	cost             float64
	audioMinutes     float64
	audioCost        float64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record adds one successful model call's reported token counts and its
// computed cost. Failed attempts must not be recorded.
func (l *Ledger) Record(promptTokens, completionTokens int, cost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.promptTokens += promptTokens
	l.completionTokens += completionTokens
	l.cost += cost
}

// RecordAudio adds the transcription step's audio duration and cost.
func (l *Ledger) RecordAudio(minutes, cost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audioMinutes += minutes
	l.audioCost += cost
}

// Snapshot returns the current tally.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		PromptTokens:     l.promptTokens,
		CompletionTokens: l.completionTokens,
		TotalTokens:      l.promptTokens + l.completionTokens,
		TotalCost:        l.cost,
		AudioMinutes:     l.audioMinutes,
		AudioCost:        l.audioCost,
	}
}
