// Package export provides exporters for configuration value history.
//
// Two targets are supported:
//
//   - JSONExporter writes history records to any io.Writer, either as a
//     single archive envelope (Export) or streamed record-by-record
//     (ExportStream) for large histories.
//   - SQLiteArchiver writes records into a standalone archive database,
//     used by the retention pruner for archive-before-delete.
//
// Every export run carries a snapshot id (UUID v4) linking its records.
package export
