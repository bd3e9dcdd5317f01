package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ksweep/internal/align"
	"github.com/cwbudde/ksweep/internal/config"
	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/cwbudde/ksweep/internal/report"
	"github.com/cwbudde/ksweep/internal/store"
)

var (
	plotOut    string
	plotMetric string
	plotSeries []string
	plotKeys   []int
	plotLog    bool
	plotYLabel string
	plotTitle  string

	plotSkipMissing bool
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Draw stored results",
	Long:  `Draw PNG plots of stored result sets, either one configured figure at a time or all of them.`,
}

var plotDualCmd = &cobra.Command{
	Use:   "dual NAME",
	Short: "Plot PSNR and SSIM against K for one result set",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlotDual,
}

var plotCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Plot one metric of several result sets against K",
	Long: `Plots one metric for each --series over the keys all series share, or
over --keys when given (every listed key must be present in every series).

Series are given as LABEL=NAME, or just NAME to use the configured label.
With --skip-missing, listed keys absent from any series are left out.`,
	Example: `  ksweep plot compare --metric SSIM --series "Clamped each step=sliding_0" --series "Clamp at last step=sliding_1"
  ksweep plot compare --metric MSE --log --series block_1 --series overlap_1 --keys 1,2,4,8,16,32,64`,
	RunE: runPlotCompare,
}

var plotAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Draw every plot listed in the configuration",
	RunE:  runPlotAll,
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.AddCommand(plotDualCmd)
	plotCmd.AddCommand(plotCompareCmd)
	plotCmd.AddCommand(plotAllCmd)

	plotDualCmd.Flags().StringVar(&plotOut, "out", "", "Output file (default <render dir>/NAME.png)")

	plotCompareCmd.Flags().StringVar(&plotOut, "out", "", "Output file (default <render dir>/<metric>.png)")
	plotCompareCmd.Flags().StringVar(&plotMetric, "metric", "SSIM", "Metric to plot (MSE, PSNR, SSIM)")
	plotCompareCmd.Flags().StringArrayVar(&plotSeries, "series", nil, "Series as LABEL=NAME or NAME (repeatable)")
	plotCompareCmd.Flags().IntSliceVar(&plotKeys, "keys", nil, "Explicit keys to plot (default: keys shared by all series)")
	plotCompareCmd.Flags().BoolVar(&plotLog, "log", false, "Use a logarithmic Y axis")
	plotCompareCmd.Flags().StringVar(&plotYLabel, "ylabel", "", "Y axis label (default: metric name)")
	plotCompareCmd.Flags().StringVar(&plotTitle, "title", "", "Plot title")
	plotCompareCmd.MarkFlagRequired("series")

	for _, c := range []*cobra.Command{plotCompareCmd, plotAllCmd} {
		c.Flags().BoolVar(&plotSkipMissing, "skip-missing", false, "Drop explicit keys that some series lack instead of failing")
	}
}

func runPlotDual(cmd *cobra.Command, args []string) error {
	name := args[0]

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rs, err := st.LoadResults(name)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	path := plotOut
	if path == "" {
		path = cfg.PlotPath(name + ".png")
	}
	if err := renderDual(renderer, path, name, rs); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Plot written to %s\n", path)
	return nil
}

func runPlotCompare(cmd *cobra.Command, args []string) error {
	kind, err := metric.ParseKind(plotMetric)
	if err != nil {
		return err
	}

	p := config.Plot{
		File:   plotOut,
		Metric: string(kind),
		YLabel: plotYLabel,
		Title:  plotTitle,
		Log:    plotLog,
		Keys:   plotKeys,
	}
	if p.File == "" {
		p.File = strings.ToLower(string(kind)) + ".png"
	}
	for _, s := range plotSeries {
		p.Series = append(p.Series, parseSeriesFlag(s))
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	path := p.File
	if !cmd.Flags().Changed("out") {
		path = cfg.PlotPath(p.File)
	}
	if err := drawPlot(st, renderer, p, path, plotSkipMissing); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Plot written to %s\n", path)
	return nil
}

func runPlotAll(cmd *cobra.Command, args []string) error {
	if len(cfg.Plots) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plots configured.")
		return nil
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	renderer, err := newRenderer(cfg)
	if err != nil {
		return err
	}

	failed := 0
	for _, p := range cfg.Plots {
		path := cfg.PlotPath(p.File)
		if err := drawPlot(st, renderer, p, path, plotSkipMissing); err != nil {
			slog.Error("Failed to draw plot", "file", path, "error", err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Plot written to %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d plots failed", failed, len(cfg.Plots))
	}
	return nil
}

// parseSeriesFlag splits LABEL=NAME; a bare NAME keeps the configured label
func parseSeriesFlag(s string) config.PlotSeries {
	if label, name, ok := strings.Cut(s, "="); ok {
		return config.PlotSeries{Strategy: name, Label: label}
	}
	return config.PlotSeries{Strategy: s}
}

// drawPlot loads, aligns and renders one comparison figure. With skipMissing,
// explicit keys not present in every series are dropped before aligning.
func drawPlot(st store.Store, renderer report.Renderer, p config.Plot, path string, skipMissing bool) error {
	kind, err := metric.ParseKind(p.Metric)
	if err != nil {
		return err
	}

	refs := make([]seriesRef, 0, len(p.Series))
	for _, ps := range p.Series {
		refs = append(refs, seriesRef{Label: cfg.SeriesLabel(ps), Name: ps.Strategy})
	}

	inputs, err := loadInputs(st, refs)
	if err != nil {
		return err
	}

	var keys []int
	if len(p.Keys) > 0 {
		keys = p.Keys
		if skipMissing {
			keys = align.Filter(inputs, p.Keys)
			if len(keys) == 0 {
				return fmt.Errorf("plot %s: none of the requested keys is present in every series", p.File)
			}
			if len(keys) < len(p.Keys) {
				slog.Warn("Skipping keys missing from some series", "plot", p.File, "requested", len(p.Keys), "kept", len(keys))
			}
		}
	}
	series, err := align.Align(inputs, kind, keys)
	if err != nil {
		return err
	}

	for _, s := range series {
		sum, err := align.Summarize(s)
		if err != nil || sum.Count == 0 {
			continue
		}
		slog.Info("Series summary",
			"plot", p.File,
			"series", s.Name,
			"metric", kind,
			"keys", len(s.Points),
			"min", sum.Min,
			"max", sum.Max,
			"median", sum.Median,
			"best_k", sum.BestK,
		)
	}

	ylabel := p.YLabel
	if ylabel == "" {
		ylabel = string(kind)
	}
	return renderer.Render(path, report.ComparisonFigure(p.Title, ylabel, series, p.Log))
}
