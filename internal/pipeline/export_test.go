package pipeline

// WithSleep exposes the sleeper injection point for tests.
var WithSleep = withSleep
