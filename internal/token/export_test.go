package token

// Test-only exports for black-box tests.

// WithLoader exposes the unexported loader option for tests.
var WithLoader = withLoader

// Encoder re-exports the internal encoder interface so tests can provide fakes.
type Encoder = encoder

// LoaderFunc re-exports the internal loader signature.
type LoaderFunc = loaderFunc
