package main

import (
	"errors"
	"testing"
	"time"

	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/cwbudde/ksweep/internal/store"
)

func writeTestJournal(t *testing.T, name string, keys ...int) {
	t.Helper()

	jw, err := store.NewJournalWriter(journalPath(cfg, name), false)
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	defer jw.Close()

	for _, k := range keys {
		r := metric.Result{MSE: 0.01 * float64(k), PSNR: 30, SSIM: 0.9}
		if err := jw.Write(store.NewJournalEntry("run-1", k, "image/output.txt", r, time.Millisecond)); err != nil {
			t.Fatalf("Failed to write journal entry: %v", err)
		}
	}
}

func TestLoadResumeState_PartialSet(t *testing.T) {
	useTestConfig(t)
	saveTestResults(t, "sliding_1.partial", 1, 2, 3)
	writeTestJournal(t, "sliding_1", 1)

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	prior, err := loadResumeState(st, cfg, "sliding_1")
	if err != nil {
		t.Fatalf("loadResumeState failed: %v", err)
	}
	if prior.Len() != 3 {
		t.Errorf("Expected the partial set with 3 keys, got %d", prior.Len())
	}
}

func TestLoadResumeState_JournalFallback(t *testing.T) {
	useTestConfig(t)
	writeTestJournal(t, "sliding_1", 1, 2)

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	prior, err := loadResumeState(st, cfg, "sliding_1")
	if err != nil {
		t.Fatalf("loadResumeState failed: %v", err)
	}
	if prior.Len() != 2 || !prior.Has(1) || !prior.Has(2) {
		t.Errorf("Expected keys 1 and 2 from the journal, got %v", prior.Keys())
	}
}

func TestLoadResumeState_NothingToResume(t *testing.T) {
	useTestConfig(t)

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	if _, err := loadResumeState(st, cfg, "sliding_1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
