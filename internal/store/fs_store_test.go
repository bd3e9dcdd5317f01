package store

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/ksweep/internal/metric"
)

// setupTestStore creates a temporary directory and returns an FSStore for testing.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	store, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}

	return store, tempDir
}

// createTestResults builds a result set covering keys 1..n.
func createTestResults(t *testing.T, n int) *ResultSet {
	t.Helper()

	rs := NewResultSet()
	for k := 1; k <= n; k++ {
		r := metric.Result{
			MSE:  0.001 * float64(k),
			PSNR: 40 - float64(k),
			SSIM: 1 - 0.01*float64(k),
		}
		if err := rs.Add(k, r); err != nil {
			t.Fatalf("Failed to add key %d: %v", k, err)
		}
	}
	return rs
}

func TestNewFSStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "plots")

	store, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if store.Dir() != dir {
		t.Errorf("Expected dir %s, got %s", dir, store.Dir())
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestFSStore_SaveLoad(t *testing.T) {
	store, tempDir := setupTestStore(t)

	rs := createTestResults(t, 5)
	if err := store.SaveResults("sliding_1", rs); err != nil {
		t.Fatalf("SaveResults failed: %v", err)
	}

	path := filepath.Join(tempDir, "sliding_1.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Result file not created: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temp file should not remain after save")
	}

	loaded, err := store.LoadResults("sliding_1")
	if err != nil {
		t.Fatalf("LoadResults failed: %v", err)
	}

	if loaded.Len() != rs.Len() {
		t.Fatalf("Expected %d keys, got %d", rs.Len(), loaded.Len())
	}
	for _, k := range rs.Keys() {
		want, _ := rs.Get(k)
		got, ok := loaded.Get(k)
		if !ok {
			t.Fatalf("Key %d missing after load", k)
		}
		if got != want {
			t.Errorf("Key %d: expected %+v, got %+v", k, want, got)
		}
	}
}

func TestFSStore_SaveOverwrites(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveResults("block_1", createTestResults(t, 5)); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.SaveResults("block_1", createTestResults(t, 2)); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.LoadResults("block_1")
	if err != nil {
		t.Fatalf("LoadResults failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Errorf("Expected 2 keys after overwrite, got %d", loaded.Len())
	}
}

func TestFSStore_LoadNotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.LoadResults("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Name != "missing" {
		t.Errorf("Expected NotFoundError for 'missing', got %v", err)
	}
}

func TestFSStore_LoadCorrupt(t *testing.T) {
	store, tempDir := setupTestStore(t)

	path := filepath.Join(tempDir, "broken.json")
	if err := os.WriteFile(path, []byte(`{"MSE": {"1": 0.1}}`), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_, err := store.LoadResults("broken")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Expected ErrCorrupt, got %v", err)
	}
}

func TestFSStore_InvalidName(t *testing.T) {
	store, _ := setupTestStore(t)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if err := store.SaveResults(name, NewResultSet()); err == nil {
			t.Errorf("Expected error for name %q", name)
		}
	}
}

func TestFSStore_ListResults(t *testing.T) {
	store, tempDir := setupTestStore(t)

	if err := store.SaveResults("overlap_1", createTestResults(t, 3)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.SaveResults("block_1", createTestResults(t, 4)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.SaveResults(PartialName("sliding_1"), createTestResults(t, 2)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Corrupt and unrelated files are skipped
	os.WriteFile(filepath.Join(tempDir, "junk.json"), []byte("not json"), 0644)
	os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("hello"), 0644)

	infos, err := store.ListResults()
	if err != nil {
		t.Fatalf("ListResults failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 result sets, got %d", len(infos))
	}

	expected := []string{"block_1", "overlap_1", "sliding_1.partial"}
	for i, name := range expected {
		if infos[i].Name != name {
			t.Errorf("Entry %d: expected %s, got %s", i, name, infos[i].Name)
		}
	}

	if infos[0].Keys != 4 || infos[0].MinK != 1 || infos[0].MaxK != 4 {
		t.Errorf("Unexpected info for block_1: %+v", infos[0])
	}
	if infos[0].Size == 0 {
		t.Error("Expected non-zero size")
	}
	if !infos[2].Partial() {
		t.Error("Expected sliding_1.partial to be reported as partial")
	}
}

func TestFSStore_DeleteResults(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveResults("block_1", createTestResults(t, 2)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	journal, err := NewJournalWriter(store.JournalPath("block_1"), false)
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	journal.Write(NewJournalEntry("run", 1, "out_1.txt", metric.Result{}, 0))
	journal.Close()

	if err := store.DeleteResults("block_1"); err != nil {
		t.Fatalf("DeleteResults failed: %v", err)
	}

	if _, err := os.Stat(store.ResultPath("block_1")); !os.IsNotExist(err) {
		t.Error("Result file still exists after delete")
	}
	if _, err := os.Stat(store.JournalPath("block_1")); !os.IsNotExist(err) {
		t.Error("Journal still exists after delete")
	}

	if err := store.DeleteResults("block_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFSStore_NonFiniteRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)

	rs := NewResultSet()
	rs.Add(1, metric.Result{MSE: 0, PSNR: math.Inf(1), SSIM: 1})
	rs.Add(2, metric.Result{MSE: 0.5, PSNR: 3.01, SSIM: math.NaN()})

	if err := store.SaveResults("exact", rs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.LoadResults("exact")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	r1, _ := loaded.Get(1)
	if !math.IsInf(r1.PSNR, 1) {
		t.Errorf("Expected +Inf PSNR, got %v", r1.PSNR)
	}
	r2, _ := loaded.Get(2)
	if !math.IsNaN(r2.SSIM) {
		t.Errorf("Expected NaN SSIM, got %v", r2.SSIM)
	}
}
