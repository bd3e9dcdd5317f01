package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ksweep/internal/sweep"
)

var compareGlob bool

var compareCmd = &cobra.Command{
	Use:   "compare [PATTERN | FILE...]",
	Short: "Compare candidate images against the reference",
	Long: `With a single argument, compares every file matching the glob PATTERN.
With several arguments, compares each FILE in the given order. Either way one
line of metrics is printed per file and the first failure stops the run.

Without arguments, runs the configured sweep (see "ksweep sweep"), or with
--glob compares the files matching the configured glob.`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&sweepName, "name", "sliding_1", "Result set name when sweeping")
	compareCmd.Flags().BoolVar(&compareGlob, "glob", false, "Compare the files matching the configured glob instead of sweeping")
	addSweepFlags(compareCmd)
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && compareGlob {
		if cfg.Glob == "" {
			return fmt.Errorf("no glob configured")
		}
		args = []string{cfg.Glob}
	}
	if len(args) == 0 {
		return runSweep(cmd)
	}

	candidates, err := sweep.ExpandCandidates(args)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no files match %s", args[0])
	}

	reference := cfg.Reference
	if cmd.Flags().Changed("reference") {
		reference = sweepReference
	}

	comparator, err := newComparator(cfg)
	if err != nil {
		return err
	}

	width := sweep.LabelWidth(candidates)
	out := cmd.OutOrStdout()
	_, err = sweep.CompareFiles(cmd.Context(), comparator, reference, candidates, func(fr sweep.FileResult) {
		fmt.Fprintln(out, sweep.FormatFileResult(fr, width))
	})
	return err
}
