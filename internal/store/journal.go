package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/ksweep/internal/metric"
)

// JournalEntry records one completed comparison of a sweep.
// Each entry is serialized as a JSON line in <name>.jsonl.
type JournalEntry struct {
	// RunID identifies the sweep run that produced the entry
	RunID string `json:"run"`

	// K is the block size that was compared
	K int `json:"k"`

	// Candidate is the candidate image path
	Candidate string `json:"candidate"`

	MSE  Value `json:"mse"`
	PSNR Value `json:"psnr"`
	SSIM Value `json:"ssim"`

	// ElapsedMS is the comparison wall time in milliseconds
	ElapsedMS int64 `json:"elapsedMs"`

	// Timestamp records when this entry was created
	Timestamp time.Time `json:"timestamp"`
}

// Result returns the metrics carried by the entry
func (e JournalEntry) Result() metric.Result {
	return metric.Result{MSE: float64(e.MSE), PSNR: float64(e.PSNR), SSIM: float64(e.SSIM)}
}

// NewJournalEntry builds an entry for k stamped with the current time
func NewJournalEntry(runID string, k int, candidate string, r metric.Result, elapsed time.Duration) JournalEntry {
	return JournalEntry{
		RunID:     runID,
		K:         k,
		Candidate: candidate,
		MSE:       Value(r.MSE),
		PSNR:      Value(r.PSNR),
		SSIM:      Value(r.SSIM),
		ElapsedMS: elapsed.Milliseconds(),
		Timestamp: time.Now(),
	}
}

// JournalWriter appends entries to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type JournalWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewJournalWriter opens the journal at path.
// If append is true, new entries are appended to an existing file.
func NewJournalWriter(path string, append bool) (*JournalWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	var file *os.File
	var err error
	if append {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &JournalWriter{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Write buffers an entry. It reaches the file on Flush or Close.
func (jw *JournalWriter) Write(entry JournalEntry) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	if _, err := jw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if err := jw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// Flush writes buffered entries and syncs the file to disk.
func (jw *JournalWriter) Flush() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal writer: %w", err)
	}
	if err := jw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal file: %w", err)
	}

	return nil
}

// Close flushes buffered data and closes the journal file.
func (jw *JournalWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := jw.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal file: %w", err)
	}

	return nil
}

// Path returns the filesystem path to the journal.
func (jw *JournalWriter) Path() string {
	return jw.path
}

// JournalReader reads entries from a JSONL file.
type JournalReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// NewJournalReader opens the journal at path.
func NewJournalReader(path string) (*JournalReader, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Name: path}
		}
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &JournalReader{
		file:    file,
		scanner: bufio.NewScanner(file),
	}, nil
}

// Read returns the next entry, or io.EOF when none remain.
func (jr *JournalReader) Read() (*JournalEntry, error) {
	if !jr.scanner.Scan() {
		if err := jr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		return nil, io.EOF
	}
	jr.line++

	var entry JournalEntry
	if err := json.Unmarshal(jr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entry on line %d: %w", jr.line, err)
	}

	return &entry, nil
}

// ReadAll reads all remaining entries.
func (jr *JournalReader) ReadAll() ([]JournalEntry, error) {
	var entries []JournalEntry

	for {
		entry, err := jr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

// Close closes the journal reader.
func (jr *JournalReader) Close() error {
	if err := jr.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal file: %w", err)
	}
	return nil
}

// ReplayJournal rebuilds a result set from the journal at path.
// Later entries for the same K replace earlier ones.
func ReplayJournal(path string) (*ResultSet, error) {
	reader, err := NewJournalReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	latest := make(map[int]metric.Result, len(entries))
	for _, e := range entries {
		if e.K <= 0 {
			return nil, &CorruptError{Name: path, Reason: fmt.Sprintf("invalid key %d", e.K)}
		}
		latest[e.K] = e.Result()
	}

	rs := NewResultSet()
	for k, r := range latest {
		rs.Add(k, r)
	}
	return rs, nil
}

// DeleteJournal removes the journal at path.
// Returns nil if the file doesn't exist.
func DeleteJournal(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}
	return nil
}
