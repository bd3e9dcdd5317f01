package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ksweep/internal/store"
	"github.com/cwbudde/ksweep/internal/sweep"
)

var (
	sweepName      string
	sweepReference string
	sweepTemplate  string
	sweepFrom      int
	sweepTo        int
	sweepNoPlot    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep [NAME]",
	Short: "Compare every K in the configured range and store the results",
	Long: `Compares the candidate image for each K against the reference, in
ascending order, and stores the results under NAME (default sliding_1).

The sweep stops at the first failing K. Completed keys are kept as
NAME.partial and can be continued with "ksweep resume NAME".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			sweepName = args[0]
		}
		return runSweep(cmd)
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepName, "name", "sliding_1", "Result set name")
	addSweepFlags(sweepCmd)
	rootCmd.AddCommand(sweepCmd)
}

// addSweepFlags registers the range flags shared by sweep, compare and resume
func addSweepFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sweepReference, "reference", "", "Reference image (overrides config)")
	cmd.Flags().StringVar(&sweepTemplate, "candidate", "", "Candidate template with {K} (overrides config)")
	cmd.Flags().IntVar(&sweepFrom, "from", 0, "First K (overrides config)")
	cmd.Flags().IntVar(&sweepTo, "to", 0, "Last K (overrides config)")
	cmd.Flags().BoolVar(&sweepNoPlot, "no-plot", false, "Skip the PSNR/SSIM plot")
}

// sweepConfig merges flags over the loaded configuration
func sweepConfig(cmd *cobra.Command) sweep.Config {
	sc := sweep.Config{
		Name:      sweepName,
		Reference: cfg.Reference,
		Template:  cfg.Candidate,
		From:      cfg.Keys.From,
		To:        cfg.Keys.To,
	}
	if cmd.Flags().Changed("reference") {
		sc.Reference = sweepReference
	}
	if cmd.Flags().Changed("candidate") {
		sc.Template = sweepTemplate
	}
	if cmd.Flags().Changed("from") {
		sc.From = sweepFrom
	}
	if cmd.Flags().Changed("to") {
		sc.To = sweepTo
	}
	return sc
}

func runSweep(cmd *cobra.Command) error {
	sc := sweepConfig(cmd)
	if err := sc.Validate(); err != nil {
		return err
	}
	return executeSweep(cmd, sc, nil)
}

// executeSweep runs (or resumes) a sweep, persists the outcome and plots it
func executeSweep(cmd *cobra.Command, sc sweep.Config, prior *store.ResultSet) error {
	comparator, err := newComparator(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	journal, err := store.NewJournalWriter(journalPath(cfg, sc.Name), prior != nil)
	if err != nil {
		return err
	}
	defer journal.Close()

	runner := sweep.NewRunner(sc, comparator)
	runner.Journal = journal
	runner.Observer = func(p sweep.Progress) {
		slog.Info("Compared",
			"k", p.K,
			"progress", fmt.Sprintf("%d/%d", p.Done, p.Total),
			"mse", p.Result.MSE,
			"psnr", p.Result.PSNR,
			"ssim", p.Result.SSIM,
			"elapsed", p.Elapsed,
		)
	}

	rs, sweepErr := runner.Resume(cmd.Context(), prior)
	if err := sweep.Persist(st, sc.Name, rs, sweepErr); err != nil {
		if hint := resumeHint(err, sc.Name, rs.Len()); hint != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), hint)
		}
		return err
	}

	status := runner.Status()
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d keys as %s (run %s, %s)\n",
		rs.Len(), sc.Name, status.ID, status.Duration().Round(time.Millisecond))

	if sweepNoPlot {
		return nil
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}
	path := cfg.PlotPath(sc.Name + ".png")
	if err := renderDual(renderer, path, sc.Name, rs); err != nil {
		return fmt.Errorf("failed to plot %s: %w", sc.Name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Plot written to %s\n", path)
	return nil
}

// resumeHint tells the user how to continue a failed sweep, but only when
// its completed keys were actually stored
func resumeHint(err error, name string, keys int) string {
	var failed *sweep.Error
	var saveErr *sweep.PartialSaveError
	if keys == 0 || !errors.As(err, &failed) || errors.As(err, &saveErr) {
		return ""
	}
	return fmt.Sprintf("Completed keys saved as %s; continue with: ksweep resume %s", store.PartialName(name), name)
}
