package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mesh-intelligence/sheetform/pkg/types"
)

func attach(t *testing.T, dir string, mutate ...func(*types.Config)) *Backend {
	t.Helper()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}
	for _, m := range mutate {
		m(&config)
	}
	b := NewBackend()
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()
	b := attach(t, tmpDir)

	for _, name := range []string{dbFile, tablesFile, cacheFile, cellsDir} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: tmpDir})
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir(), SyncStrategy: "weekly"})
	if !errors.Is(err, types.ErrSyncStrategyUnknown) {
		t.Errorf("expected ErrSyncStrategyUnknown, got %v", err)
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	if err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	g, err := b.CreateTable("records")
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Errorf("second Detach failed: %v", err)
	}

	if _, err := b.Table("records"); err != types.ErrWorkbookDetached {
		t.Errorf("Table after Detach: expected ErrWorkbookDetached, got %v", err)
	}
	if err := g.Set(1, 1, [][]any{{"x"}}); err != types.ErrWorkbookDetached {
		t.Errorf("Set after Detach: expected ErrWorkbookDetached, got %v", err)
	}
}

func TestBackend_CreateTable(t *testing.T) {
	b := attach(t, t.TempDir())

	first, err := b.CreateTable("records")
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	again, err := b.CreateTable("records")
	if err != nil {
		t.Fatalf("second CreateTable failed: %v", err)
	}
	if first.(*sheet).id != again.(*sheet).id {
		t.Errorf("CreateTable created a second table for the same name")
	}
	if _, err := b.CreateTable("structure"); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if _, err := b.CreateTable("bad/name"); !errors.Is(err, types.ErrInvalidTableName) {
		t.Errorf("expected ErrInvalidTableName, got %v", err)
	}
	if _, err := b.Table("missing"); !errors.Is(err, types.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}

	names, err := b.Tables()
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if want := []string{"records", "structure"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Tables = %v, want %v", names, want)
	}
}

func TestSheet_GetSet(t *testing.T) {
	b := attach(t, t.TempDir())
	g, err := b.CreateTable("records")
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	if n, _ := g.LastRow(); n != 0 {
		t.Errorf("LastRow of empty table = %d, want 0", n)
	}

	err = g.Set(2, 2, [][]any{
		{"text", 42, 1.5},
		{true, nil, types.List("[1,2]")},
	})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := g.Get(1, 1, 4, 5)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := [][]any{
		{"", "", "", "", ""},
		{"", "text", float64(42), 1.5, ""},
		{"", true, "", "[1,2]", ""},
		{"", "", "", "", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %v, want %v", got, want)
	}

	lastRow, _ := g.LastRow()
	lastCol, _ := g.LastColumn()
	if lastRow != 3 || lastCol != 4 {
		t.Errorf("extent = (%d, %d), want (3, 4)", lastRow, lastCol)
	}

	if err := g.Set(3, 2, [][]any{{"", "", ""}}); err != nil {
		t.Fatalf("blanking Set failed: %v", err)
	}
	if lastRow, _ = g.LastRow(); lastRow != 2 {
		t.Errorf("LastRow after blanking = %d, want 2", lastRow)
	}

	if _, err := g.Get(0, 1, 1, 1); !errors.Is(err, types.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}

	if err := g.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if lastRow, _ = g.LastRow(); lastRow != 0 {
		t.Errorf("LastRow after Clear = %d, want 0", lastRow)
	}
}

func TestSheet_HeaderRows(t *testing.T) {
	b := attach(t, t.TempDir())
	g, _ := b.CreateTable("records")

	if err := g.SetHeaderRows(10); err != nil {
		t.Fatalf("SetHeaderRows failed: %v", err)
	}
	if n, _ := g.HeaderRows(); n != 10 {
		t.Errorf("HeaderRows = %d, want 10", n)
	}
	if err := g.SetHeaderRows(-1); !errors.Is(err, types.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestBackend_PersistsJSONL(t *testing.T) {
	tmpDir := t.TempDir()
	b := attach(t, tmpDir)
	g, _ := b.CreateTable("records")
	id := g.(*sheet).id

	if err := g.Set(1, 1, [][]any{{"a", 2, true}, {"", "b"}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := g.SetHeaderRows(1); err != nil {
		t.Fatalf("SetHeaderRows failed: %v", err)
	}

	cells := readFile(t, cellsPath(tmpDir, id))
	want := `{"row":1,"values":["a",2,true]}` + "\n" + `{"row":2,"values":[null,"b"]}` + "\n"
	if cells != want {
		t.Errorf("cells file = %q, want %q", cells, want)
	}

	registry := readFile(t, filepath.Join(tmpDir, tablesFile))
	if !strings.Contains(registry, `"name":"records"`) || !strings.Contains(registry, `"header_rows":1`) {
		t.Errorf("tables.jsonl missing entry: %s", registry)
	}
}

func TestBackend_ReloadsFromJSONL(t *testing.T) {
	tmpDir := t.TempDir()

	first := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}
	if err := first.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	g, _ := first.CreateTable("records")
	g.Set(1, 1, [][]any{{"id", "name"}, {1, "Ann"}})
	g.SetHeaderRows(1)
	first.CreateTable("structure")
	if err := first.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// Garbage lines are skipped on load.
	f, err := os.OpenFile(filepath.Join(tmpDir, tablesFile), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	f.WriteString("not json\n")
	f.Close()

	second := attach(t, tmpDir)
	names, _ := second.Tables()
	if want := []string{"records", "structure"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Tables after reload = %v, want %v", names, want)
	}
	g, err = second.Table("records")
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	got, _ := g.Get(1, 1, 2, 2)
	if want := [][]any{{"id", "name"}, {float64(1), "Ann"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Get after reload = %v, want %v", got, want)
	}
	if n, _ := g.HeaderRows(); n != 1 {
		t.Errorf("HeaderRows after reload = %d, want 1", n)
	}
}

func TestBackend_SyncOnClose(t *testing.T) {
	tmpDir := t.TempDir()
	b := NewBackend()
	err := b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: tmpDir, SyncStrategy: types.SyncOnClose})
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	g, _ := b.CreateTable("records")
	g.Set(1, 1, [][]any{{"x"}})
	path := cellsPath(tmpDir, g.(*sheet).id)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("cells file written before Detach")
	}
	if registry := readFile(t, filepath.Join(tmpDir, tablesFile)); registry != "" {
		t.Errorf("registry written before Detach: %q", registry)
	}

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if cells := readFile(t, path); cells != `{"row":1,"values":["x"]}`+"\n" {
		t.Errorf("cells file after Detach = %q", cells)
	}
}

func TestBackend_SyncBatch(t *testing.T) {
	tmpDir := t.TempDir()
	b := attach(t, tmpDir, func(c *types.Config) {
		c.SyncStrategy = types.SyncBatch
		c.BatchSize = 3
		c.BatchInterval = time.Hour
	})

	a, _ := b.CreateTable("a")
	a.Set(1, 1, [][]any{{"x"}})
	if registry := readFile(t, filepath.Join(tmpDir, tablesFile)); registry != "" {
		t.Errorf("registry written before the batch filled: %q", registry)
	}

	// A third distinct target fills the batch.
	if _, err := b.CreateTable("b"); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if registry := readFile(t, filepath.Join(tmpDir, tablesFile)); strings.Count(registry, "\n") != 2 {
		t.Errorf("registry after flush = %q", registry)
	}
	if cells := readFile(t, cellsPath(tmpDir, a.(*sheet).id)); cells != `{"row":1,"values":["x"]}`+"\n" {
		t.Errorf("cells after flush = %q", cells)
	}
}
