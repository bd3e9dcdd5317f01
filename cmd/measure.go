package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ksweep/internal/compare"
	"github.com/cwbudde/ksweep/internal/metric"
)

var measurePeak float64

var measureCmd = &cobra.Command{
	Use:   "measure REFERENCE CANDIDATE",
	Short: "Compute MSE, PSNR and SSIM for one image pair",
	Long: `Compares two sample-grid files in process and prints a structured
report:

  #ksweep-report 1
  mse=...
  psnr=...
  ssim=...

On failure an error report (error=...) is printed and the exit code is 1.
The output format lets ksweep act as its own external comparator.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		peak := cfg.Peak
		if cmd.Flags().Changed("peak") {
			peak = measurePeak
		}

		r, err := measurePair(args[0], args[1], peak)
		if err != nil {
			fmt.Fprint(cmd.OutOrStdout(), compare.FormatErrorReport(err.Error()))
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), compare.FormatReport(r))
		return nil
	},
}

func measurePair(refPath, candPath string, peak float64) (metric.Result, error) {
	ref, err := metric.ReadTextImage(refPath)
	if err != nil {
		return metric.Result{}, err
	}
	cand, err := metric.ReadTextImage(candPath)
	if err != nil {
		return metric.Result{}, err
	}
	return metric.Compare(ref, cand, peak)
}

func init() {
	measureCmd.Flags().Float64Var(&measurePeak, "peak", 1.0, "Maximum sample value (overrides config)")
	rootCmd.AddCommand(measureCmd)
}
