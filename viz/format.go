package viz

import (
	"fmt"
	"io"
)

// Format selects a Writer implementation by name, matching the
// `--format` flag cmd/mips32sim exposes.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// NewWriter constructs the Writer for the named format, writing to w.
func NewWriter(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
}
