package transcribe

import "errors"

// ErrAudioNotFound indicates the audio file does not exist or is unreadable.
var ErrAudioNotFound = errors.New("audio file not found")

// ErrEmptyTranscript indicates transcription produced no text.
var ErrEmptyTranscript = errors.New("transcription produced no text")

// ErrWhisperNotFound indicates no local whisper binary is available.
var ErrWhisperNotFound = errors.New("whisper binary not found")
