package store

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/ksweep/internal/metric"
)

func TestJournalWriter_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sliding_1.jsonl")

	writer, err := NewJournalWriter(path, false)
	if err != nil {
		t.Fatalf("Failed to create journal writer: %v", err)
	}

	results := []metric.Result{
		{MSE: 0, PSNR: math.Inf(1), SSIM: 1},
		{MSE: 0.01, PSNR: 20, SSIM: 0.9},
		{MSE: 0.02, PSNR: 16.99, SSIM: 0.8},
	}
	for i, r := range results {
		entry := NewJournalEntry("run-1", i+1, "out.txt", r, 15*time.Millisecond)
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := NewJournalReader(path)
	if err != nil {
		t.Fatalf("Failed to create journal reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != len(results) {
		t.Fatalf("Expected %d entries, got %d", len(results), len(entries))
	}

	for i, entry := range entries {
		if entry.K != i+1 {
			t.Errorf("Entry %d: expected K %d, got %d", i, i+1, entry.K)
		}
		if entry.RunID != "run-1" {
			t.Errorf("Entry %d: expected run id run-1, got %s", i, entry.RunID)
		}
		if entry.ElapsedMS != 15 {
			t.Errorf("Entry %d: expected 15ms, got %d", i, entry.ElapsedMS)
		}
	}
	if !math.IsInf(float64(entries[0].PSNR), 1) {
		t.Errorf("Expected +Inf PSNR in first entry, got %v", entries[0].PSNR)
	}
}

func TestJournalWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block_1.jsonl")

	w1, err := NewJournalWriter(path, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	w1.Write(NewJournalEntry("a", 1, "c1", metric.Result{MSE: 1}, 0))
	w1.Close()

	w2, err := NewJournalWriter(path, true)
	if err != nil {
		t.Fatalf("Failed to create appending writer: %v", err)
	}
	w2.Write(NewJournalEntry("b", 2, "c2", metric.Result{MSE: 2}, 0))
	w2.Close()

	reader, err := NewJournalReader(path)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(entries))
	}
}

func TestJournalWriter_FlushMakesEntriesVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.jsonl")

	writer, err := NewJournalWriter(path, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	writer.Write(NewJournalEntry("r", 1, "c", metric.Result{}, 0))
	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected flushed journal to be non-empty")
	}
}

func TestJournalReader_NotFound(t *testing.T) {
	_, err := NewJournalReader(filepath.Join(t.TempDir(), "missing.jsonl"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestJournalReader_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	os.WriteFile(path, []byte("{\"k\":1,\"mse\":0,\"psnr\":0,\"ssim\":0}\nnot json\n"), 0644)

	reader, err := NewJournalReader(path)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	if _, err := reader.ReadAll(); err == nil {
		t.Error("Expected error for malformed line")
	}
}

func TestReplayJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlap_1.jsonl")

	writer, err := NewJournalWriter(path, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	writer.Write(NewJournalEntry("a", 2, "c2", metric.Result{MSE: 0.2}, 0))
	writer.Write(NewJournalEntry("a", 1, "c1", metric.Result{MSE: 0.1}, 0))
	writer.Write(NewJournalEntry("b", 2, "c2", metric.Result{MSE: 0.3}, 0))
	writer.Close()

	rs, err := ReplayJournal(path)
	if err != nil {
		t.Fatalf("ReplayJournal failed: %v", err)
	}
	if rs.Len() != 2 {
		t.Fatalf("Expected 2 keys, got %d", rs.Len())
	}
	r, _ := rs.Get(2)
	if r.MSE != 0.3 {
		t.Errorf("Expected latest entry to win (0.3), got %v", r.MSE)
	}
}

func TestDeleteJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	os.WriteFile(path, []byte("{}\n"), 0644)

	if err := DeleteJournal(path); err != nil {
		t.Fatalf("DeleteJournal failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Journal still exists after delete")
	}
	if err := DeleteJournal(path); err != nil {
		t.Errorf("Deleting a missing journal should succeed, got %v", err)
	}
}
