package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/ksweep/internal/metric"
)

// Parser turns the captured standard output of a comparator into a Result
type Parser interface {
	Parse(stdout string) (metric.Result, error)
}

// Report formats understood by NewParser
const (
	FormatAuto       = "auto"
	FormatLegacy     = "legacy"
	FormatStructured = "structured"
)

// NewParser returns the parser for a report format name
func NewParser(format string) (Parser, error) {
	switch format {
	case "", FormatAuto:
		return AutoParser{}, nil
	case FormatLegacy:
		return LegacyParser{}, nil
	case FormatStructured:
		return StructuredParser{}, nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}

// Legacy fixed-offset layout of the original comparison tool
const (
	legacyErrorLines  = 3
	legacyMessageLine = 2
	legacyMSELine     = 16
	legacyPSNRLine    = 17
	legacySSIMLine    = 18
	legacyLabelWidth  = 9
	legacyUnitWidth   = 3 // " dB"
)

// LegacyParser reads the fixed-offset report. A report of exactly three lines
// is an error report whose third line is the message; otherwise lines 16, 17
// and 18 carry MSE, PSNR and SSIM after a 9-character label.
type LegacyParser struct{}

func (LegacyParser) Parse(stdout string) (metric.Result, error) {
	lines := splitLines(stdout)

	if len(lines) == legacyErrorLines {
		return metric.Result{}, &ComparisonFailedError{Message: lines[legacyMessageLine]}
	}
	if len(lines) <= legacySSIMLine {
		return metric.Result{}, &MalformedReportError{
			Line:   -1,
			Reason: fmt.Sprintf("expected at least %d lines, got %d", legacySSIMLine+1, len(lines)),
		}
	}

	mse, err := legacyField(lines, legacyMSELine, 0)
	if err != nil {
		return metric.Result{}, err
	}
	psnr, err := legacyField(lines, legacyPSNRLine, legacyUnitWidth)
	if err != nil {
		return metric.Result{}, err
	}
	ssim, err := legacyField(lines, legacySSIMLine, 0)
	if err != nil {
		return metric.Result{}, err
	}

	return metric.Result{MSE: mse, PSNR: psnr, SSIM: ssim}, nil
}

// legacyField parses line idx from the label offset up to trim characters
// before the end. Offsets count characters, not bytes.
func legacyField(lines []string, idx, trim int) (float64, error) {
	line := []rune(lines[idx])
	if len(line) <= legacyLabelWidth+trim {
		return 0, &MalformedReportError{Line: idx, Content: lines[idx], Reason: "line too short"}
	}

	field := strings.TrimSpace(string(line[legacyLabelWidth : len(line)-trim]))
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, &MalformedReportError{Line: idx, Content: lines[idx], Err: err}
	}
	return v, nil
}

// StructuredHeader opens every structured report
const StructuredHeader = "#ksweep-report 1"

// StructuredParser reads the versioned key=value report:
//
//	#ksweep-report 1
//	mse=...
//	psnr=...
//	ssim=...
//
// An "error=<message>" line turns the report into an error report.
type StructuredParser struct{}

func (StructuredParser) Parse(stdout string) (metric.Result, error) {
	lines := splitLines(stdout)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != StructuredHeader {
		return metric.Result{}, &MalformedReportError{Line: 0, Reason: "missing " + StructuredHeader + " header"}
	}

	values := make(map[string]float64, 3)
	for i, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return metric.Result{}, &MalformedReportError{Line: i + 1, Content: line, Reason: "expected key=value"}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "error":
			return metric.Result{}, &ComparisonFailedError{Message: value}
		case "mse", "psnr", "ssim":
			if _, dup := values[key]; dup {
				return metric.Result{}, &MalformedReportError{Line: i + 1, Content: line, Reason: "duplicate key " + key}
			}
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return metric.Result{}, &MalformedReportError{Line: i + 1, Content: line, Err: err}
			}
			values[key] = v
		}
	}

	for _, key := range []string{"mse", "psnr", "ssim"} {
		if _, ok := values[key]; !ok {
			return metric.Result{}, &MalformedReportError{Line: -1, Reason: "missing key " + key}
		}
	}

	return metric.Result{MSE: values["mse"], PSNR: values["psnr"], SSIM: values["ssim"]}, nil
}

// AutoParser uses the structured format when its header is present and the
// legacy layout otherwise.
type AutoParser struct{}

func (AutoParser) Parse(stdout string) (metric.Result, error) {
	lines := splitLines(stdout)
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#ksweep-report") {
		return StructuredParser{}.Parse(stdout)
	}
	return LegacyParser{}.Parse(stdout)
}

// FormatReport renders r in the structured format
func FormatReport(r metric.Result) string {
	var b strings.Builder
	b.WriteString(StructuredHeader + "\n")
	fmt.Fprintf(&b, "mse=%s\n", strconv.FormatFloat(r.MSE, 'g', -1, 64))
	fmt.Fprintf(&b, "psnr=%s\n", strconv.FormatFloat(r.PSNR, 'g', -1, 64))
	fmt.Fprintf(&b, "ssim=%s\n", strconv.FormatFloat(r.SSIM, 'g', -1, 64))
	return b.String()
}

// FormatErrorReport renders a structured error report
func FormatErrorReport(message string) string {
	message = strings.ReplaceAll(message, "\n", " ")
	return StructuredHeader + "\nerror=" + message + "\n"
}

// splitLines trims the output and splits it into lines without carriage returns
func splitLines(out string) []string {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
