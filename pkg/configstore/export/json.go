package export

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/configstore"
)

// ValueArchive is the envelope written around exported value-history rows.
// SnapshotID identifies one export run across formats.
type ValueArchive struct {
	SnapshotID string                     `json:"snapshot_id"`
	CreatedAt  time.Time                  `json:"created_at"`
	Records    []*configstore.ValueRecord `json:"records"`
}

// JSONExporter exports value-history records to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes value records to the provided writer as one archive
// envelope with a fresh snapshot id.
func (e *JSONExporter) Export(ctx context.Context, records []*configstore.ValueRecord, w io.Writer) error {
	archive := &ValueArchive{
		SnapshotID: uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Records:    records,
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(archive, "", "  ")
	} else {
		data, err = json.Marshal(archive)
	}
	if err != nil {
		return configstore.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return configstore.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream exports value records from a channel as a JSON array. This is
// memory-efficient for large histories: records are serialized as they
// arrive instead of being collected first.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *configstore.ValueRecord, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return configstore.NewExportError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if _, err := w.Write([]byte("]")); err != nil {
					return configstore.NewExportError("json", recordCount, err)
				}
				return nil
			}

			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return configstore.NewExportError("json", recordCount, err)
				}
				if e.Pretty {
					if _, err := w.Write([]byte("\n")); err != nil {
						return configstore.NewExportError("json", recordCount, err)
					}
				}
			}
			first = false

			data, err := e.serializeRecord(record)
			if err != nil {
				return configstore.NewExportError("json", recordCount, err)
			}
			if _, err := w.Write(data); err != nil {
				return configstore.NewExportError("json", recordCount, err)
			}
			recordCount++
		}
	}
}

// serializeRecord serializes one record according to the Pretty setting.
func (e *JSONExporter) serializeRecord(record *configstore.ValueRecord) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "", "  ")
	}
	return json.Marshal(record)
}
