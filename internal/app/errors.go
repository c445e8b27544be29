package app

import "errors"

var (
	// ErrAPIKeyMissing indicates no API credential was provided.
	ErrAPIKeyMissing = errors.New("api key not set")

	// ErrNoInput indicates neither a transcript nor an audio file was given.
	ErrNoInput = errors.New("no transcript or audio input")

	// ErrTranscriptNotFound indicates the transcript file could not be read.
	ErrTranscriptNotFound = errors.New("transcript file not found")
)
