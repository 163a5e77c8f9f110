package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/ledger/pkg/records"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Exporter writes records to w in one format.
type Exporter[R any] interface {
	Export(ctx context.Context, recs []R, w io.Writer) error
	Format() string
	ContentType() string
}

// New returns an exporter for format ("json" or "csv").
func New[R any](format string, kind records.Kind[R]) (Exporter[R], error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return NewJSONExporter[R](false), nil
	case FormatCSV:
		return NewCSVExporter(kind, true), nil
	default:
		return nil, records.NewExportError(format, 0, fmt.Errorf("unsupported format %q (must be %q or %q)", format, FormatJSON, FormatCSV))
	}
}
