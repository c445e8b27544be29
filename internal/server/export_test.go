package server

// WithRun exposes the unexported run-function option for tests.
var WithRun = withRun
