package report

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat indicates an export format outside the supported set.
var ErrUnknownFormat = errors.New("unknown export format")

// Export format identifiers.
// Use these instead of string literals for compile-time safety.
const (
	TXT  = "txt"
	JSON = "json"
	PDF  = "pdf"
	CSV  = "csv"
	XLSX = "xlsx"
)

// Format represents a validated export format.
// Zero value is invalid and must not be used.
// Use ParseFormat to create from user input, or the pre-parsed constants.
type Format struct {
	name string
}

// Pre-parsed format constants for use in code.
var (
	TXTFormat  = Format{name: TXT}
	JSONFormat = Format{name: JSON}
	PDFFormat  = Format{name: PDF}
	CSVFormat  = Format{name: CSV}
	XLSXFormat = Format{name: XLSX}
)

var validFormats = map[string]bool{
	TXT:  true,
	JSON: true,
	PDF:  true,
	CSV:  true,
	XLSX: true,
}

// ParseFormat validates and parses an export format name.
// Returns ErrUnknownFormat if the name is not recognized.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return Format{}, fmt.Errorf("export format cannot be empty: %w", ErrUnknownFormat)
	}
	if !validFormats[name] {
		return Format{}, fmt.Errorf("unknown format %q (use txt, json, pdf, csv, or xlsx): %w", s, ErrUnknownFormat)
	}
	return Format{name: name}, nil
}

// MustParseFormat parses an export format, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParseFormat(s string) Format {
	f, err := ParseFormat(s)
	if err != nil {
		panic(err)
	}
	return f
}

// ParseFormats parses a comma-separated format list, rejecting duplicates.
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no export format given: %w", ErrUnknownFormat)
	}
	return formats, nil
}

// String returns the format name, which doubles as the file extension.
func (f Format) String() string {
	return f.name
}

// IsZero returns true if this is the zero value (no format set).
func (f Format) IsZero() bool {
	return f.name == ""
}
