package pipeline

import "errors"

var (
	// ErrEmptyTranscript indicates the pipeline was handed nothing to work
	// with. A report is never generated from an empty transcript.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// ErrNoProgress indicates the iterative condensation loop stopped
	// shrinking the text. Signals a pathological, too-dense input; failing
	// is better than looping forever.
	ErrNoProgress = errors.New("condensing made no progress")
)
