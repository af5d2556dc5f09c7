package audit

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dwizi/bizops-assistant/internal/store"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	sqlStore, err := store.New(filepath.Join(t.TempDir(), "audit_test.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(nil, sqlStore)
}

func TestRecordAndList(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	if err := logger.Record(ctx, Entry{
		UserID:   "usr-1",
		ToolName: "createClient",
		Input:    json.RawMessage("{\n  \"name\": \"Acme\"\n}"),
		Success:  true,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := logger.List(ctx, Filter{UserID: "usr-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	record := records[0]
	if record.Action != ActionWrite || !record.Success {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.InputJSON != `{"name":"Acme"}` {
		t.Fatalf("expected compacted input, got %s", record.InputJSON)
	}
}

func TestSnapshotKeepsInvalidJSONAsString(t *testing.T) {
	got := snapshot(json.RawMessage(`{"name":`))
	if !json.Valid([]byte(got)) {
		t.Fatalf("expected valid json, got %s", got)
	}
	if got != `"{\"name\":"` {
		t.Fatalf("unexpected snapshot %s", got)
	}
	if snapshot(nil) != "{}" {
		t.Fatal("expected empty input to snapshot as {}")
	}
}

func TestSnapshotTruncatesLargeInput(t *testing.T) {
	large, _ := json.Marshal(map[string]string{"notes": strings.Repeat("x", maxInputBytes*2)})
	got := snapshot(large)
	if !strings.Contains(got, `"truncated":true`) {
		t.Fatalf("expected truncation marker, got prefix %s", got[:64])
	}
}

type failingStore struct{}

func (failingStore) CreateToolAuditRecord(context.Context, store.CreateToolAuditInput) (store.ToolAuditRecord, error) {
	return store.ToolAuditRecord{}, errors.New("disk full")
}

func (failingStore) ListToolAuditRecords(context.Context, store.ListToolAuditInput) ([]store.ToolAuditRecord, error) {
	return nil, nil
}

func TestRecordWrapsStoreError(t *testing.T) {
	logger := New(nil, failingStore{})
	err := logger.Record(context.Background(), Entry{UserID: "u", ToolName: "createClient"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
