// Package modeltier defines the closed set of models the report pipeline
// can dispatch to. Each tier carries its context limit, pricing rates, and
// tokenizer metadata as data, looked up by key instead of chained string
// comparisons scattered across call sites.
package modeltier

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedModel indicates a model identifier outside the known family list.
var ErrUnsupportedModel = errors.New("unsupported model")

// Chat model tier identifiers.
// Use these instead of string literals for compile-time safety.
const (
	GPT35Turbo    = "gpt-3.5-turbo"
	GPT35Turbo16K = "gpt-3.5-turbo-16k"
	GPT4          = "gpt-4"
)

// Tier represents a validated chat model tier.
// Zero value is invalid and must not be used.
// Use Parse to create from user input, or the pre-parsed constants.
type Tier struct {
	name string
}

// Compile-time interface compliance check.
var _ fmt.Stringer = Tier{}

// Pre-parsed tier constants for use in code.
var (
	GPT35TurboTier    = Tier{name: GPT35Turbo}
	GPT35Turbo16KTier = Tier{name: GPT35Turbo16K}
	GPT4Tier          = Tier{name: GPT4}
)

// tierSpec holds the per-tier data the rest of the system looks up.
//
// The message overhead constants reproduce the accounting convention the
// pipeline prompts were tuned against: the gpt-3.5 snapshot charges 4
// tokens per message and credits 1 for a name field, the gpt-4 snapshot
// charges 3 per message and 1 per name.
type tierSpec struct {
	contextLimit     int
	promptRate       float64 // USD per 1K prompt tokens
	completionRate   float64 // USD per 1K completion tokens
	encoding         string  // tokenizer snapshot identifier
	tokensPerMessage int
	tokensPerName    int
}

var tierSpecs = map[string]tierSpec{
	GPT35Turbo: {
		contextLimit:     4096,
		promptRate:       0.0015,
		completionRate:   0.002,
		encoding:         "gpt-3.5-turbo-0301",
		tokensPerMessage: 4,
		tokensPerName:    -1,
	},
	GPT35Turbo16K: {
		contextLimit:     16384,
		promptRate:       0.003,
		completionRate:   0.004,
		encoding:         "gpt-3.5-turbo-0301",
		tokensPerMessage: 4,
		tokensPerName:    -1,
	},
	GPT4: {
		contextLimit:     8192,
		promptRate:       0.003,
		completionRate:   0.004,
		encoding:         "gpt-4-0314",
		tokensPerMessage: 3,
		tokensPerName:    1,
	},
}

// Parse validates and parses a chat model identifier.
// Returns ErrUnsupportedModel if the identifier is outside the known family list.
func Parse(s string) (Tier, error) {
	if s == "" {
		return Tier{}, fmt.Errorf("model identifier cannot be empty: %w", ErrUnsupportedModel)
	}
	if _, ok := tierSpecs[s]; !ok {
		return Tier{}, fmt.Errorf("unknown model %q: %w", s, ErrUnsupportedModel)
	}
	return Tier{name: s}, nil
}

// MustParse parses a model identifier, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParse(s string) Tier {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the model identifier.
// Returns empty string for zero value.
func (t Tier) String() string {
	return t.name
}

// IsZero returns true if this is the zero value (no tier set).
func (t Tier) IsZero() bool {
	return t.name == ""
}

// Upgrade returns the larger-context sibling of this tier, used when a
// prompt outgrows the tier's own window. gpt-3.5-turbo upgrades to its 16k
// variant; tiers without a larger sibling return themselves.
func (t Tier) Upgrade() Tier {
	if t == GPT35TurboTier {
		return GPT35Turbo16KTier
	}
	return t
}

// ContextLimit returns the maximum combined prompt+completion token count
// this tier can process in one call.
func (t Tier) ContextLimit() int {
	return t.spec().contextLimit
}

// Encoding returns the tokenizer snapshot identifier for this tier.
func (t Tier) Encoding() string {
	return t.spec().encoding
}

// TokensPerMessage returns the fixed per-message token overhead.
func (t Tier) TokensPerMessage() int {
	return t.spec().tokensPerMessage
}

// TokensPerName returns the token adjustment applied when a message carries
// a name field.
func (t Tier) TokensPerName() int {
	return t.spec().tokensPerName
}

// Cost returns the dollar cost of a call that consumed the given prompt and
// completion token counts, using this tier's per-1K rates.
func (t Tier) Cost(promptTokens, completionTokens int) float64 {
	s := t.spec()
	return float64(promptTokens)/1000*s.promptRate +
		float64(completionTokens)/1000*s.completionRate
}

// spec returns the tier data, panicking on zero value.
// A zero Tier can only be obtained by bypassing Parse.
func (t Tier) spec() tierSpec {
	s, ok := tierSpecs[t.name]
	if !ok {
		panic("modeltier: method called on zero Tier")
	}
	return s
}

// ---------------------------------------------------------------------------
// Audio model selector
// ---------------------------------------------------------------------------

// Audio model identifiers. "api" selects the hosted Whisper endpoint; the
// rest name local Whisper model sizes run by an external transcriber.
const (
	AudioBase   = "base"
	AudioTiny   = "tiny"
	AudioSmall  = "small"
	AudioMedium = "medium"
	AudioAPI    = "api"
)

// WhisperAPIModel is the hosted model the "api" selector resolves to.
const WhisperAPIModel = "whisper-1"

// WhisperAPIRatePerMinute is the hosted Whisper price in USD per audio minute.
const WhisperAPIRatePerMinute = 0.006

// ErrUnsupportedAudioModel indicates an audio model selector outside the known set.
var ErrUnsupportedAudioModel = errors.New("unsupported audio model")

// AudioModel represents a validated audio model selector.
// Zero value is invalid and must not be used.
type AudioModel struct {
	name string
}

var validAudioModels = map[string]bool{
	AudioBase:   true,
	AudioTiny:   true,
	AudioSmall:  true,
	AudioMedium: true,
	AudioAPI:    true,
}

// ParseAudioModel validates and parses an audio model selector.
// Returns ErrUnsupportedAudioModel if the selector is not recognized.
func ParseAudioModel(s string) (AudioModel, error) {
	if s == "" {
		return AudioModel{}, fmt.Errorf("audio model cannot be empty: %w", ErrUnsupportedAudioModel)
	}
	if !validAudioModels[s] {
		return AudioModel{}, fmt.Errorf("unknown audio model %q (use base, tiny, small, medium, or api): %w",
			s, ErrUnsupportedAudioModel)
	}
	return AudioModel{name: s}, nil
}

// MustParseAudioModel parses an audio model selector, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParseAudioModel(s string) AudioModel {
	m, err := ParseAudioModel(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the selector string.
func (m AudioModel) String() string {
	return m.name
}

// IsZero returns true if this is the zero value (no model set).
func (m AudioModel) IsZero() bool {
	return m.name == ""
}

// IsAPI returns true if this selector targets the hosted Whisper endpoint.
func (m AudioModel) IsAPI() bool {
	return m.name == AudioAPI
}

// AudioCost returns the dollar cost of transcribing the given number of
// audio minutes. Local models are free; the hosted endpoint bills per minute
// rounded up.
func (m AudioModel) AudioCost(minutes float64) float64 {
	if !m.IsAPI() {
		return 0
	}
	return math.Ceil(minutes) * WhisperAPIRatePerMinute
}
