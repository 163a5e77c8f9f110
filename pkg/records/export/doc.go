// Package export writes record listings as JSON or CSV.
//
// Exporters are generic over the entity type. CSV columns come from the
// kind's declared fields, so every kind exports without per-type code:
//
//	exp, err := export.New("csv", records.AuditEventKind)
//	if err != nil {
//	    return err
//	}
//	err = exp.Export(ctx, events, os.Stdout)
//
// Errors are returned as *records.ExportError.
package export
