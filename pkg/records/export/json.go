package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/ledger/pkg/records"
)

// JSONExporter writes records as a JSON array.
type JSONExporter[R any] struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter[R any](pretty bool) *JSONExporter[R] {
	return &JSONExporter[R]{Pretty: pretty}
}

// Format returns "json".
func (e *JSONExporter[R]) Format() string { return FormatJSON }

// ContentType returns the MIME type of the output.
func (e *JSONExporter[R]) ContentType() string { return "application/json" }

// Export writes recs as a JSON array. An empty slice produces "[]".
func (e *JSONExporter[R]) Export(ctx context.Context, recs []R, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return records.NewExportError(FormatJSON, len(recs), err)
	}
	if recs == nil {
		recs = []R{}
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(recs); err != nil {
		return records.NewExportError(FormatJSON, len(recs), err)
	}
	return nil
}
