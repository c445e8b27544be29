package gateway

// Test-only exports for black-box tests.

// WithClient exposes the unexported client option for tests.
var WithClient = withClient

// ClassifyError exposes error classification for direct testing.
var ClassifyError = classifyError
