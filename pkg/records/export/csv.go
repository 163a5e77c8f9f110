package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"mercator-hq/ledger/pkg/records"
)

// CSVExporter writes one row per record with one column per kind field.
type CSVExporter[R any] struct {
	kind records.Kind[R]

	// IncludeHeader writes the field names as the first row.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter for kind.
func NewCSVExporter[R any](kind records.Kind[R], includeHeader bool) *CSVExporter[R] {
	return &CSVExporter[R]{kind: kind, IncludeHeader: includeHeader}
}

// Format returns "csv".
func (e *CSVExporter[R]) Format() string { return FormatCSV }

// ContentType returns the MIME type of the output.
func (e *CSVExporter[R]) ContentType() string { return "text/csv" }

// Export writes recs as CSV.
func (e *CSVExporter[R]) Export(ctx context.Context, recs []R, w io.Writer) error {
	writer := csv.NewWriter(w)
	fields := e.kind.Fields()

	if e.IncludeHeader {
		header := make([]string, len(fields))
		for i, f := range fields {
			header[i] = f.Name()
		}
		if err := writer.Write(header); err != nil {
			return records.NewExportError(FormatCSV, len(recs), err)
		}
	}

	row := make([]string, len(fields))
	for i := range recs {
		// Flush every 100 rows and honor cancellation between batches.
		if i > 0 && i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return records.NewExportError(FormatCSV, i, err)
			}
			writer.Flush()
		}

		for j, f := range fields {
			row[j] = formatCell(f.Value(&recs[i]))
		}
		if err := writer.Write(row); err != nil {
			return records.NewExportError(FormatCSV, len(recs), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return records.NewExportError(FormatCSV, len(recs), err)
	}
	return nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(v)
	}
}
