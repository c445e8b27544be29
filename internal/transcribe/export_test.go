package transcribe

// Test-only exports for black-box tests.

// WithAudioClient exposes the unexported audio client option for tests.
var WithAudioClient = withAudioClient

// WithRunner exposes the unexported command runner option for tests.
var WithRunner = withRunner
