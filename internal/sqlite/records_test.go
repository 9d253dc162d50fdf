package sqlite

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/mesh-intelligence/sheetform/internal/records"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func TestBackend_RecordsRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}
	quiet := records.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	b := NewBackend()
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if _, err := b.CreateTable(types.RecordsTable); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	e := records.New(b, types.RecordsTable, quiet)
	res, err := e.Save(map[string]any{
		"name":    "Ann",
		"contact": map[string]any{"email": "ann@example.com"},
		"tags":    []any{"a", "b"},
		"flags":   map[string]any{},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if types.CellText(res.ID) != "1" {
		t.Errorf("Save ID = %v, want 1", res.ID)
	}
	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	reopened := attach(t, tmpDir)
	got, err := records.New(reopened, types.RecordsTable, quiet).GetByID(1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got["name"] != "Ann" {
		t.Errorf("name = %v", got["name"])
	}
	if !reflect.DeepEqual(got["contact"], map[string]any{"email": "ann@example.com"}) {
		t.Errorf("contact = %v", got["contact"])
	}
	if !reflect.DeepEqual(got["tags"], []any{"a", "b"}) {
		t.Errorf("tags = %#v", got["tags"])
	}
	if !reflect.DeepEqual(got["flags"], map[string]any{}) {
		t.Errorf("flags = %#v", got["flags"])
	}
}
