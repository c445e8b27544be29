// Package token estimates the token cost of text under a model tier's
// tokenization scheme. Counting is pure computation; encoders are loaded
// once and cached.
package token

import (
	"fmt"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	"github.com/sirupsen/logrus"

	"github.com/Lucien1999s/meeting-ai/internal/modeltier"
)

// fallbackEncoding is used when a known model family's tokenizer snapshot
// is not recognized by the tiktoken registry.
const fallbackEncoding = "cl100k_base"

// replyPrimingTokens accounts for the assistant reply priming every
// completion request carries.
const replyPrimingTokens = 3

// messageRole is the role field of the single message Count simulates.
const messageRole = "user"

// encoder is the subset of *tiktoken.Tiktoken the counter needs.
// Injectable for tests.
type encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

// loaderFunc resolves an encoding identifier to an encoder.
type loaderFunc func(name string) (encoder, error)

// defaultLoader resolves model snapshot identifiers through the tiktoken
// model registry and plain encoding names directly.
func defaultLoader(name string) (encoder, error) {
	if name == fallbackEncoding {
		return tiktoken.GetEncoding(name)
	}
	return tiktoken.EncodingForModel(name)
}

// Counter counts tokens under a tier's tokenization scheme.
// Safe for concurrent use.
type Counter struct {
	mu       sync.Mutex
	encoders map[string]encoder
	load     loaderFunc
	log      logrus.FieldLogger
}

// Option configures a Counter.
type Option func(*Counter)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Counter) {
		c.log = log
	}
}

// withLoader sets a custom encoding loader (for testing).
func withLoader(load loaderFunc) Option {
	return func(c *Counter) {
		c.load = load
	}
}

// NewCounter creates a Counter.
func NewCounter(opts ...Option) *Counter {
	c := &Counter{
		encoders: make(map[string]encoder),
		load:     defaultLoader,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count returns the token cost of sending text as a single user message to
// the given tier, reproducing the provider's accounting convention: a fixed
// per-message overhead, the encoded cost of each message field (role and
// content), and the reply priming.
//
// Returns modeltier.ErrUnsupportedModel for a zero tier; tiers obtained
// from modeltier.Parse are always countable.
func (c *Counter) Count(text string, tier modeltier.Tier) (int, error) {
	if tier.IsZero() {
		return 0, fmt.Errorf("cannot count tokens without a model tier: %w", modeltier.ErrUnsupportedModel)
	}
	enc, err := c.encoderFor(tier.Encoding())
	if err != nil {
		return 0, err
	}

	n := tier.TokensPerMessage()
	n += len(enc.Encode(messageRole, nil, nil))
	n += len(enc.Encode(text, nil, nil))
	n += replyPrimingTokens
	return n, nil
}

// CountText returns the raw encoded token count of text under the tier's
// tokenizer, with no message framing. The chunk splitter budgets against
// this; message overhead is covered by its reserved margins.
func (c *Counter) CountText(text string, tier modeltier.Tier) (int, error) {
	if tier.IsZero() {
		return 0, fmt.Errorf("cannot count tokens without a model tier: %w", modeltier.ErrUnsupportedModel)
	}
	enc, err := c.encoderFor(tier.Encoding())
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// encoderFor returns the cached encoder for an encoding identifier,
// loading it on first use. An unrecognized identifier falls back to
// cl100k_base with a warning rather than failing: the tier itself is known,
// only its tokenizer snapshot is missing from the registry.
func (c *Counter) encoderFor(name string) (encoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encoders[name]; ok {
		return enc, nil
	}

	enc, err := c.load(name)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"encoding": name,
			"fallback": fallbackEncoding,
		}).Warn("unrecognized encoding, falling back to default")
		enc, err = c.load(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load fallback encoding %s: %w", fallbackEncoding, err)
		}
	}

	c.encoders[name] = enc
	return enc, nil
}
