package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/ksweep/internal/metric"
)

// Comparator evaluates one candidate against a reference.
// Implementations run synchronously and never retry.
type Comparator interface {
	Compare(ctx context.Context, reference, candidate string) (metric.Result, error)
}

// Exec runs an external comparison program as
// <Path> [Args...] <reference> <candidate> and parses its standard output.
type Exec struct {
	Path    string
	Args    []string      // inserted before the image paths
	Env     []string      // appended to the inherited environment
	Timeout time.Duration // 0 disables the timeout
	Parser  Parser        // nil means AutoParser
}

// NewExec creates an external comparator
func NewExec(path string, timeout time.Duration, parser Parser) *Exec {
	return &Exec{
		Path:    path,
		Timeout: timeout,
		Parser:  parser,
	}
}

// Check verifies that the comparator program can be found
func (e *Exec) Check() error {
	if e.Path == "" {
		return fmt.Errorf("no comparator program configured")
	}
	if _, err := exec.LookPath(e.Path); err != nil {
		return fmt.Errorf("comparator %s is not available: %w", e.Path, err)
	}
	return nil
}

// Compare invokes the program once and parses the captured report
func (e *Exec) Compare(ctx context.Context, reference, candidate string) (metric.Result, error) {
	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(e.Args)+2)
	args = append(args, e.Args...)
	args = append(args, reference, candidate)

	cmd := exec.CommandContext(runCtx, e.Path, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	slog.Debug("Comparator finished",
		"candidate", candidate,
		"elapsed", time.Since(start),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)

	// Interruption by the caller wins over everything the process printed
	if err := ctx.Err(); err != nil {
		return metric.Result{}, fmt.Errorf("comparator interrupted: %w", err)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return metric.Result{}, &ComparisonFailedError{
			Message: fmt.Sprintf("comparator timed out after %s", e.Timeout),
			Stderr:  stderr.String(),
			Timeout: true,
		}
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return metric.Result{}, &ComparisonFailedError{
			Message: fmt.Sprintf("failed to run comparator: %v", runErr),
			Stderr:  stderr.String(),
		}
	}

	parser := e.Parser
	if parser == nil {
		parser = AutoParser{}
	}

	result, err := parser.Parse(stdout.String())
	if err != nil {
		var failed *ComparisonFailedError
		if errors.As(err, &failed) {
			failed.Stderr = stderr.String()
			return metric.Result{}, failed
		}
		if exitErr != nil {
			return metric.Result{}, &ComparisonFailedError{
				Message: fmt.Sprintf("comparator exited with code %d: %s", exitErr.ExitCode(), firstLine(stderr.String())),
				Stderr:  stderr.String(),
			}
		}
		return metric.Result{}, err
	}

	if exitErr != nil {
		slog.Warn("Comparator exited with an error but produced a valid report",
			"candidate", candidate,
			"exit_code", exitErr.ExitCode(),
		)
	}
	return result, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// Native compares sample-grid files in process with the metric engine.
// The most recently used reference image is cached.
type Native struct {
	Peak float64
	Load func(path string) (*metric.Image, error)

	mu      sync.Mutex
	refPath string
	refImg  *metric.Image
}

// NewNative creates an in-process comparator for sample-grid files
func NewNative(peak float64) *Native {
	return &Native{
		Peak: peak,
		Load: metric.ReadTextImage,
	}
}

// Compare loads both images and evaluates all three metrics
func (n *Native) Compare(ctx context.Context, reference, candidate string) (metric.Result, error) {
	if err := ctx.Err(); err != nil {
		return metric.Result{}, fmt.Errorf("comparison interrupted: %w", err)
	}

	ref, err := n.reference(reference)
	if err != nil {
		return metric.Result{}, &ComparisonFailedError{Message: err.Error()}
	}

	cand, err := n.load(candidate)
	if err != nil {
		return metric.Result{}, &ComparisonFailedError{Message: err.Error()}
	}

	return metric.Compare(ref, cand, n.Peak)
}

func (n *Native) reference(path string) (*metric.Image, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.refImg != nil && n.refPath == path {
		return n.refImg, nil
	}

	img, err := n.load(path)
	if err != nil {
		return nil, err
	}
	n.refPath, n.refImg = path, img
	slog.Debug("Loaded reference", "path", path, "dims", img.Dims())
	return img, nil
}

func (n *Native) load(path string) (*metric.Image, error) {
	if n.Load != nil {
		return n.Load(path)
	}
	return metric.ReadTextImage(path)
}
