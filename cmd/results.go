package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ksweep/internal/align"
	"github.com/cwbudde/ksweep/internal/metric"
	"github.com/cwbudde/ksweep/internal/store"
)

var (
	showKeys      []int
	olderThanDays int
	cleanPartial  bool
	forceClean    bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored result sets",
	Long: `Manage stored result sets including listing, inspecting, importing and cleaning.
Unfinished sweeps are kept as NAME.partial until they are resumed.`,
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored result sets",
	Long:  `Display all result sets with key count, key range, modification time and file size.`,
	Args:  cobra.NoArgs,
	RunE:  runListResults,
}

var showResultsCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print the metrics of one result set",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowResults,
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old or unfinished result sets",
	Long: `Delete result sets based on retention policy.
You can delete unfinished (partial) sweeps, result sets older than N days, or both.`,
	Args: cobra.NoArgs,
	RunE: runCleanResults,
}

var importResultsCmd = &cobra.Command{
	Use:   "import NAME FILE",
	Short: "Store a result document under NAME",
	Long: `Reads a JSON result document (as written by the file store) and saves it
under NAME in the configured store.`,
	Args: cobra.ExactArgs(2),
	RunE: runImportResults,
}

var exportResultsCmd = &cobra.Command{
	Use:   "export NAME FILE",
	Short: "Write a stored result set as a JSON result document",
	Args:  cobra.ExactArgs(2),
	RunE:  runExportResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.AddCommand(listResultsCmd)
	resultsCmd.AddCommand(showResultsCmd)
	resultsCmd.AddCommand(cleanResultsCmd)
	resultsCmd.AddCommand(importResultsCmd)
	resultsCmd.AddCommand(exportResultsCmd)

	showResultsCmd.Flags().IntSliceVar(&showKeys, "keys", nil, "Only show these keys (default: all)")

	cleanResultsCmd.Flags().BoolVar(&cleanPartial, "partial", false, "Delete unfinished (partial) result sets")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete result sets older than N days (0 = no age limit)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListResults(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list result sets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No result sets found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKEYS\tK RANGE\tMODIFIED\tSIZE\tSTRATEGY")
	fmt.Fprintln(w, "----\t----\t-------\t--------\t----\t--------")

	for _, info := range infos {
		keyRange := "-"
		if info.Keys > 0 {
			keyRange = fmt.Sprintf("%d-%d", info.MinK, info.MaxK)
		}

		size := "-"
		if info.Size > 0 {
			size = formatBytes(info.Size)
		}

		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			info.Name,
			info.Keys,
			keyRange,
			info.Updated.Local().Format("2006-01-02 15:04:05"),
			size,
			strategyDescription(info.Name),
		)
	}

	w.Flush()

	fmt.Fprintf(out, "\nTotal result sets: %d\n", len(infos))
	return nil
}

func runShowResults(cmd *cobra.Command, args []string) error {
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

	var keys []int
	if len(showKeys) > 0 {
		keys = showKeys
	}

	inputs := []align.Input{{Name: name, Results: rs}}
	series := make(map[metric.Kind]align.NamedSeries, len(metric.Kinds))
	for _, kind := range metric.Kinds {
		aligned, err := align.Align(inputs, kind, keys)
		if err != nil {
			return err
		}
		series[kind] = aligned[0]
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "K\tMSE\tPSNR\tSSIM\t")
	for i, p := range series[metric.KindMSE].Points {
		fmt.Fprintf(w, "%d\t%.6g\t%.4f\t%.4f\t\n", p.K, p.Value,
			series[metric.KindPSNR].Points[i].Value,
			series[metric.KindSSIM].Points[i].Value)
	}
	w.Flush()

	fmt.Fprintln(out)
	for _, kind := range metric.Kinds {
		sum, err := align.Summarize(series[kind])
		if err != nil {
			return err
		}
		if sum.Count == 0 {
			fmt.Fprintf(out, "%-5s no finite values\n", kind)
			continue
		}
		fmt.Fprintf(out, "%-5s min=%.6g max=%.6g mean=%.6g median=%.6g best K=%d\n",
			kind, sum.Min, sum.Max, sum.Mean, sum.Median, sum.BestK)
	}
	return nil
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	if !cleanPartial && olderThanDays == 0 {
		return fmt.Errorf("must specify either --partial or --older-than")
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list result sets: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No result sets to clean.")
		return nil
	}

	toDelete := selectResultsForDeletion(infos, cleanPartial, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No result sets match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d result set(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%d keys, %s)\n",
			info.Name,
			info.Keys,
			info.Updated.Local().Format("2006-01-02 15:04:05"),
		)
	}

	// Ask for confirmation unless --force is set
	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := st.DeleteResults(info.Name); err != nil {
			slog.Error("Failed to delete result set", "name", info.Name, "error", err)
			failed++
		} else {
			slog.Info("Deleted result set", "name", info.Name)
			deleted++
		}
	}

	fmt.Fprintf(out, "\nDeleted %d result set(s), %d failed.\n", deleted, failed)
	return nil
}

func runImportResults(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	rs, err := store.LoadFile(path)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveResults(name, rs); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d keys from %s as %s\n", rs.Len(), path, name)
	return nil
}

func runExportResults(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rs, err := st.LoadResults(name)
	if err != nil {
		return err
	}

	if err := store.SaveFile(path, rs); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d keys of %s to %s\n", rs.Len(), name, path)
	return nil
}

// strategyDescription describes the configured strategy a result set was
// stored under, or "-" for ad-hoc names
func strategyDescription(name string) string {
	s, ok := cfg.Strategy(strings.TrimSuffix(name, store.PartialSuffix))
	if !ok {
		return "-"
	}
	if s.Label != "" {
		return s.Label + ": " + s.Description()
	}
	return s.Description()
}

// selectResultsForDeletion picks partial result sets and/or those last
// written before now minus olderThanDays. The result is sorted by name.
func selectResultsForDeletion(infos []store.ResultInfo, partial bool, olderThanDays int, now time.Time) []store.ResultInfo {
	var toDelete []store.ResultInfo

	var cutoff time.Time
	if olderThanDays > 0 {
		cutoff = now.AddDate(0, 0, -olderThanDays)
	}

	for _, info := range infos {
		switch {
		case partial && info.Partial():
			toDelete = append(toDelete, info)
		case olderThanDays > 0 && info.Updated.Before(cutoff):
			toDelete = append(toDelete, info)
		}
	}

	sort.Slice(toDelete, func(i, j int) bool { return toDelete[i].Name < toDelete[j].Name })
	return toDelete
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
