package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/configstore"
)

func testRecords() []*configstore.ValueRecord {
	return []*configstore.ValueRecord{
		{ID: 1, ProjectID: "p1", KeyID: 10, Value: json.RawMessage(`"one"`), CreatedAt: time.Unix(1700000000, 0), CreatedBy: "alice"},
		{ID: 2, ProjectID: "p1", KeyID: 10, Value: json.RawMessage(`{"x":2}`), CreatedAt: time.Unix(1700000100, 0)},
	}
}

func TestJSONExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewJSONExporter(false)

	if err := exporter.Export(context.Background(), testRecords(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var archive ValueArchive
	if err := json.Unmarshal(buf.Bytes(), &archive); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if archive.SnapshotID == "" {
		t.Error("expected a snapshot id")
	}
	if len(archive.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(archive.Records))
	}
	if archive.Records[0].ID != 1 || string(archive.Records[0].Value) != `"one"` {
		t.Errorf("unexpected first record: %+v", archive.Records[0])
	}
	if archive.Records[1].CreatedBy != "" {
		t.Errorf("unexpected created_by: %q", archive.Records[1].CreatedBy)
	}
}

func TestJSONExporter_ExportPretty(t *testing.T) {
	var compact, pretty bytes.Buffer

	if err := NewJSONExporter(false).Export(context.Background(), testRecords(), &compact); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if err := NewJSONExporter(true).Export(context.Background(), testRecords(), &pretty); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !bytes.Contains(pretty.Bytes(), []byte("\n")) {
		t.Error("pretty output should contain newlines")
	}
	if pretty.Len() <= compact.Len() {
		t.Error("pretty output should be larger than compact output")
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	records := testRecords()
	ch := make(chan *configstore.ValueRecord, len(records))
	for _, rec := range records {
		ch <- rec
	}
	close(ch)

	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportStream(context.Background(), ch, &buf); err != nil {
		t.Fatalf("ExportStream failed: %v", err)
	}

	var out []*configstore.ValueRecord
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("streamed output is not a valid JSON array: %v", err)
	}
	if len(out) != 2 || out[0].ID != 1 || out[1].ID != 2 {
		t.Errorf("unexpected streamed records: %+v", out)
	}
}

func TestJSONExporter_ExportStreamEmpty(t *testing.T) {
	ch := make(chan *configstore.ValueRecord)
	close(ch)

	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportStream(context.Background(), ch, &buf); err != nil {
		t.Fatalf("ExportStream failed: %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestJSONExporter_ExportStreamCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan *configstore.ValueRecord)
	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportStream(ctx, ch, &buf); err == nil {
		t.Fatal("expected context error")
	}
}
