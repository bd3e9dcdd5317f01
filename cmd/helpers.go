package main

import (
	"fmt"
	"path/filepath"

	"github.com/cwbudde/ksweep/internal/align"
	"github.com/cwbudde/ksweep/internal/compare"
	"github.com/cwbudde/ksweep/internal/config"
	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/cwbudde/ksweep/internal/report"
	"github.com/cwbudde/ksweep/internal/store"
)

// openStore opens the configured result store
func openStore(c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		st, err := store.NewSQLiteStore(c.Store.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to open result database: %w", err)
		}
		return st, nil
	default:
		st, err := store.NewFSStore(c.Store.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create result store: %w", err)
		}
		return st, nil
	}
}

// journalPath returns where the sweep journal for name is written
func journalPath(c *config.Config, name string) string {
	if c.Store.Driver == "sqlite" {
		return filepath.Join(filepath.Dir(c.Store.DB), name+".jsonl")
	}
	return filepath.Join(c.Store.Dir, name+".jsonl")
}

// newComparator returns the external comparator when one is configured and
// the in-process one otherwise
func newComparator(c *config.Config) (compare.Comparator, error) {
	if c.Comparator.Path == "" {
		return compare.NewNative(c.Peak), nil
	}

	parser, err := compare.NewParser(c.Comparator.Format)
	if err != nil {
		return nil, err
	}

	e := compare.NewExec(c.Comparator.Path, c.Comparator.Timeout, parser)
	e.Args = c.Comparator.Args
	e.Env = c.Comparator.Env
	if err := e.Check(); err != nil {
		return nil, err
	}
	return e, nil
}

// newRenderer returns the configured plot renderer
func newRenderer(c *config.Config) (report.Renderer, error) {
	return report.NewRenderer(c.Render.Backend, report.Options{
		Width:  c.Render.Width,
		Height: c.Render.Height,
		DPI:    c.Render.DPI,
	})
}

// seriesRef names a stored result set and the label it is drawn with
type seriesRef struct {
	Label string
	Name  string
}

// loadInputs loads every referenced result set from st
func loadInputs(st store.Store, refs []seriesRef) ([]align.Input, error) {
	inputs := make([]align.Input, 0, len(refs))
	for _, ref := range refs {
		rs, err := st.LoadResults(ref.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ref.Name, err)
		}
		inputs = append(inputs, align.Input{Name: ref.Label, Results: rs})
	}
	return inputs, nil
}

// renderDual draws the PSNR/SSIM view of one result set
func renderDual(r report.Renderer, path, name string, rs *store.ResultSet) error {
	inputs := []align.Input{{Name: name, Results: rs}}

	psnr, err := align.Align(inputs, metric.KindPSNR, nil)
	if err != nil {
		return err
	}
	ssim, err := align.Align(inputs, metric.KindSSIM, nil)
	if err != nil {
		return err
	}

	return r.Render(path, report.DualFigure(psnr[0], ssim[0]))
}
