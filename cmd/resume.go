package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ksweep/internal/config"
	"github.com/cwbudde/ksweep/internal/store"
	"github.com/cwbudde/ksweep/internal/sweep"
)

var resumeCmd = &cobra.Command{
	Use:   "resume NAME",
	Short: "Continue an unfinished sweep",
	Long: `Loads the partial results kept for NAME after a failed or interrupted
sweep and compares only the keys still missing. On success the complete set
replaces the partial one.

When no partial set was stored (for example after the process was killed),
the keys recorded in the sweep journal are used instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sweepName = args[0]
		sc := sweepConfig(cmd)
		if err := sc.Validate(); err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		prior, err := loadResumeState(st, cfg, sc.Name)
		st.Close()
		if err != nil {
			return err
		}

		lo, hi, _ := prior.Range()
		slog.Info("Resuming sweep", "name", sc.Name, "completed", prior.Len(), "first", lo, "last", hi)

		if err := executeSweep(cmd, sc, prior); err != nil {
			return fmt.Errorf("resume %s: %w", sc.Name, err)
		}
		return nil
	},
}

func init() {
	addSweepFlags(resumeCmd)
	rootCmd.AddCommand(resumeCmd)
}

// loadResumeState returns the partial set stored for name. Without one it
// falls back to the keys recorded in the sweep journal.
func loadResumeState(st store.Store, c *config.Config, name string) (*store.ResultSet, error) {
	prior, err := sweep.LoadPartial(st, name)
	if err == nil {
		return prior, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	path := journalPath(c, name)
	replayed, jerr := store.ReplayJournal(path)
	if errors.Is(jerr, store.ErrNotFound) {
		return nil, err
	}
	if jerr != nil {
		return nil, fmt.Errorf("failed to replay journal %s: %w", path, jerr)
	}
	if replayed.Len() == 0 {
		return nil, err
	}

	slog.Info("Recovered keys from sweep journal", "name", name, "journal", path, "keys", replayed.Len())
	return replayed, nil
}
