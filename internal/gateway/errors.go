package gateway

import "errors"

// ErrProbeFailed indicates the context-limit discovery protocol got an
// error shape it could not parse a limit from. Fatal for the pipeline run:
// chunking cannot proceed safely without a limit, and guessing a default
// silently is worse than failing.
var ErrProbeFailed = errors.New("context limit probe failed")
