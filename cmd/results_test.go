package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ksweep/internal/config"
	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/cwbudde/ksweep/internal/store"
)

// useTestConfig points the global configuration at a temp directory
func useTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	original := cfg
	cfg = config.Default()
	cfg.Store.Dir = dir
	cfg.Store.DB = filepath.Join(dir, "results.db")
	cfg.Render.Dir = dir
	cfg.Render.DPI = 40
	cfg.Render.Width = 6
	cfg.Render.Height = 4
	t.Cleanup(func() { cfg = original })
	return dir
}

// testCommand returns a command whose output is captured
func testCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	return cmd, &buf
}

func saveTestResults(t *testing.T, name string, keys ...int) {
	t.Helper()

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	rs := store.NewResultSet()
	for _, k := range keys {
		r := metric.Result{MSE: 0.01 * float64(k), PSNR: 40 - float64(k)/4, SSIM: 1 - float64(k)/128}
		if err := rs.Add(k, r); err != nil {
			t.Fatalf("Failed to add key %d: %v", k, err)
		}
	}
	if err := st.SaveResults(name, rs); err != nil {
		t.Fatalf("Failed to save %s: %v", name, err)
	}
}

func TestSelectResultsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.ResultInfo{
		{Name: "block_1", Updated: now.AddDate(0, 0, -10)},
		{Name: "overlap_1", Updated: now.AddDate(0, 0, -5)},
		{Name: "sliding_1", Updated: now.AddDate(0, 0, -1)},
		{Name: "sliding_0", Updated: now.AddDate(0, 0, -30)},
	}

	toDelete := selectResultsForDeletion(infos, false, 7, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 result sets to delete, got %d", len(toDelete))
	}
	if toDelete[0].Name != "block_1" || toDelete[1].Name != "sliding_0" {
		t.Errorf("Expected block_1 and sliding_0, got %s and %s", toDelete[0].Name, toDelete[1].Name)
	}
}

func TestSelectResultsForDeletion_Partial(t *testing.T) {
	now := time.Now()
	infos := []store.ResultInfo{
		{Name: "sliding_1", Updated: now},
		{Name: "sliding_1.partial", Updated: now},
		{Name: "block_1.partial", Updated: now.AddDate(0, 0, -3)},
	}

	toDelete := selectResultsForDeletion(infos, true, 0, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 result sets to delete, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if !info.Partial() {
			t.Errorf("Expected only partial sets, got %s", info.Name)
		}
	}
}

func TestSelectResultsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.ResultInfo{
		{Name: "a", Updated: now.AddDate(0, 0, -10)},
		{Name: "a.partial", Updated: now.AddDate(0, 0, -10)},
		{Name: "b.partial", Updated: now},
		{Name: "c", Updated: now},
	}

	toDelete := selectResultsForDeletion(infos, true, 7, now)

	// Old partials must only appear once
	if len(toDelete) != 3 {
		t.Fatalf("Expected 3 result sets to delete, got %d", len(toDelete))
	}
	for _, info := range toDelete {
		if info.Name == "c" {
			t.Error("Expected recent complete set c to be kept")
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestResultsListCommand_NoResults(t *testing.T) {
	useTestConfig(t)
	cmd, out := testCommand()

	if err := runListResults(cmd, nil); err != nil {
		t.Fatalf("runListResults failed: %v", err)
	}

	if !strings.Contains(out.String(), "No result sets found.") {
		t.Errorf("Expected empty listing message, got %q", out.String())
	}
}

func TestResultsListCommand_WithResults(t *testing.T) {
	useTestConfig(t)
	saveTestResults(t, "block_1", 1, 2, 4, 8)
	saveTestResults(t, "sliding_1.partial", 1, 2)

	cmd, out := testCommand()
	if err := runListResults(cmd, nil); err != nil {
		t.Fatalf("runListResults failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"NAME", "block_1", "1-8", "sliding_1.partial", "Total result sets: 2",
		"Block: block interpolation, clamped after the last pass",
		"Sliding: sliding interpolation, clamped after the last pass",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected listing to contain %q, got:\n%s", want, text)
		}
	}
}

func TestResultsShowCommand(t *testing.T) {
	useTestConfig(t)
	saveTestResults(t, "sliding_1", 1, 2, 3)

	cmd, out := testCommand()
	if err := runShowResults(cmd, []string{"sliding_1"}); err != nil {
		t.Fatalf("runShowResults failed: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "PSNR") || !strings.Contains(text, "best K=1") {
		t.Errorf("Expected metric table and summary, got:\n%s", text)
	}
}

func TestResultsShowCommand_NotFound(t *testing.T) {
	useTestConfig(t)
	cmd, _ := testCommand()

	err := runShowResults(cmd, []string{"missing"})
	if err == nil {
		t.Fatal("Expected error for missing result set")
	}
}

func TestResultsCleanCommand_Force(t *testing.T) {
	useTestConfig(t)
	saveTestResults(t, "sliding_1", 1, 2)
	saveTestResults(t, "sliding_1.partial", 1)

	cleanPartial, olderThanDays, forceClean = true, 0, true
	defer func() { cleanPartial, olderThanDays, forceClean = false, 0, false }()

	cmd, out := testCommand()
	if err := runCleanResults(cmd, nil); err != nil {
		t.Fatalf("runCleanResults failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 1 result set(s), 0 failed.") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	if _, err := st.LoadResults("sliding_1.partial"); err == nil {
		t.Error("Expected partial set to be deleted")
	}
	if _, err := st.LoadResults("sliding_1"); err != nil {
		t.Errorf("Expected complete set to be kept, got %v", err)
	}
}

func TestResultsCleanCommand_Aborted(t *testing.T) {
	useTestConfig(t)
	saveTestResults(t, "sliding_1.partial", 1)

	cleanPartial = true
	defer func() { cleanPartial = false }()

	cmd, out := testCommand()
	cmd.SetIn(strings.NewReader("n\n"))
	if err := runCleanResults(cmd, nil); err != nil {
		t.Fatalf("runCleanResults failed: %v", err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("Expected abort message, got:\n%s", out.String())
	}
}

func TestResultsCleanCommand_RequiresCriteria(t *testing.T) {
	useTestConfig(t)
	cmd, _ := testCommand()

	if err := runCleanResults(cmd, nil); err == nil {
		t.Error("Expected error when no criteria are given")
	}
}

func TestResultsImportExport(t *testing.T) {
	dir := useTestConfig(t)
	saveTestResults(t, "block_1", 1, 2)

	exported := filepath.Join(dir, "export", "block.json")
	cmd, _ := testCommand()
	if err := runExportResults(cmd, []string{"block_1", exported}); err != nil {
		t.Fatalf("runExportResults failed: %v", err)
	}
	if _, err := os.Stat(exported); err != nil {
		t.Fatalf("Expected exported file: %v", err)
	}

	cfg.Store.Driver = "sqlite"
	if err := runImportResults(cmd, []string{"imported", exported}); err != nil {
		t.Fatalf("runImportResults failed: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	rs, err := st.LoadResults("imported")
	if err != nil {
		t.Fatalf("Failed to load imported set: %v", err)
	}
	if rs.Len() != 2 {
		t.Errorf("Expected 2 keys, got %d", rs.Len())
	}
}

func TestResultsShowCommand_Keys(t *testing.T) {
	useTestConfig(t)
	saveTestResults(t, "sliding_1", 1, 2, 4, 8)

	showKeys = []int{8, 2}
	defer func() { showKeys = nil }()

	cmd, out := testCommand()
	if err := runShowResults(cmd, []string{"sliding_1"}); err != nil {
		t.Fatalf("runShowResults failed: %v", err)
	}
	if !strings.Contains(out.String(), "best K=2") {
		t.Errorf("Expected summary restricted to keys 2 and 8, got:\n%s", out.String())
	}

	showKeys = []int{3}
	if err := runShowResults(cmd, []string{"sliding_1"}); err == nil {
		t.Error("Expected error for key missing from the result set")
	}
}

func TestStrategyDescription(t *testing.T) {
	useTestConfig(t)

	tests := []struct {
		name string
		want string
	}{
		{"sliding_0", "Sliding (clamped each step): sliding interpolation, clamped after each pass"},
		{"overlap_1.partial", "Overlap: overlap interpolation, clamped after the last pass"},
		{"adhoc", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strategyDescription(tt.name); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
