package config

import "errors"

// Sentinel errors for config validation.
var (
	// ErrInvalidKey indicates a config key that cannot be stored (empty,
	// contains '=' or a newline).
	ErrInvalidKey = errors.New("invalid config key")

	// ErrInvalidSyntax indicates a malformed line in the config file.
	ErrInvalidSyntax = errors.New("invalid config syntax")

	// ErrNotDirectory indicates the output-dir path exists but is a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotWritable indicates the output-dir cannot be written to.
	ErrNotWritable = errors.New("directory not writable")
)
