package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrUnsupportedFormat indicates an audio file has an unsupported extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrConflictingInputs indicates both --audio and --transcript were given.
	ErrConflictingInputs = errors.New("--audio and --transcript are mutually exclusive")
)
