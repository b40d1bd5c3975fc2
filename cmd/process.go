package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brewlab/brewlog-cli/internal/csvio"
	"github.com/brewlab/brewlog-cli/internal/model"
	"github.com/brewlab/brewlog-cli/internal/pipeline"
	"github.com/brewlab/brewlog-cli/internal/store"
)

const defaultInputPath = "data/cups_of_coffee.csv"

var (
	processForceFull bool
	processDryRun    bool
	processStats     bool
	processDebugHash bool
	processVersion   string
)

var processCmd = &cobra.Command{
	Use:   "process [input] [output]",
	Short: "Process the brew log, recomputing stale entries",
	Long: "Loads the brew log CSV, recomputes entries whose raw inputs changed (or all entries " +
		"with --force-full), refreshes per-bean aggregates, and writes the table back. " +
		"Output defaults to the input path.",
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		inputPath := defaultInputPath
		if len(args) > 0 {
			inputPath = args[0]
		}
		outputPath := inputPath
		if len(args) > 1 {
			outputPath = args[1]
		}

		if processVersion != "" {
			cfg.Process.TargetVersion = processVersion
		}

		table, extraCols, err := csvio.Load(inputPath)
		if err != nil {
			return eris.Wrapf(err, "load %s", inputPath)
		}
		zap.L().Info("loaded brew log",
			zap.String("path", inputPath),
			zap.Int("entries", len(table)),
		)

		if processDebugHash {
			pipeline.LogHashDebugInfo(table, cfg.Process.RawHashFields)
		}

		proc := pipeline.New(cfg.Process)

		if processDryRun {
			return dryRun(ctx, cmd.OutOrStdout(), proc, table)
		}

		mode := store.ModeSelective
		var result model.Table
		var report *model.Report
		if processForceFull {
			mode = store.ModeFull
			result, report, err = proc.ProcessFull(ctx, table)
		} else {
			result, report, err = proc.ProcessSelective(ctx, table)
		}
		if err != nil {
			return eris.Wrap(err, "process")
		}

		if err := csvio.Save(outputPath, result, extraCols); err != nil {
			return eris.Wrapf(err, "save %s", outputPath)
		}
		zap.L().Info("saved brew log",
			zap.String("path", outputPath),
			zap.Int("entries_processed", report.EntriesProcessed),
			zap.Float64("efficiency_ratio", report.EfficiencyRatio),
		)

		recordRun(ctx, inputPath, mode, report)

		if processStats {
			formatReport(cmd.OutOrStdout(), report)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().BoolVar(&processForceFull, "force-full", false, "recompute every entry, ignoring change detection")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "report which entries would be recomputed without writing anything")
	processCmd.Flags().BoolVar(&processStats, "stats", false, "print the processing report after the run")
	processCmd.Flags().BoolVar(&processDebugHash, "debug-hash", false, "log hash components per entry for change-detection debugging")
	processCmd.Flags().StringVar(&processVersion, "target-version", "", "override the configured calculation version")
	rootCmd.AddCommand(processCmd)
}

// dryRun evaluates staleness without recomputing or writing.
func dryRun(ctx context.Context, out io.Writer, proc *pipeline.Processor, table model.Table) error {
	decisions, err := proc.DecideAll(ctx, table)
	if err != nil {
		return eris.Wrap(err, "dry run")
	}

	var flagged []model.Decision
	for _, d := range decisions {
		if d.NeedsProcessing() {
			flagged = append(flagged, d)
		}
	}

	if len(flagged) == 0 {
		fmt.Fprintln(out, "All entries up to date; nothing to process.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BREW_ID\tREASONS")
	for _, d := range flagged {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", d.BrewID, joinReasons(d.Reasons))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "\n%d of %d entries would be processed.\n", len(flagged), len(decisions))
	return nil
}

func joinReasons(reasons []model.TriggerKind) string {
	s := ""
	for i, r := range reasons {
		if i > 0 {
			s += ", "
		}
		s += string(r)
	}
	return s
}

// recordRun stores the report in the run-history database. Failures are
// logged and swallowed: history is an audit trail, not part of the pipeline.
func recordRun(ctx context.Context, inputPath, mode string, report *model.Report) {
	st, err := initStore()
	if err != nil {
		zap.L().Warn("run history unavailable", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("run history migrate failed", zap.Error(err))
		return
	}
	if _, err := st.RecordRun(ctx, inputPath, mode, report); err != nil {
		zap.L().Warn("run history record failed", zap.Error(err))
	}
}

// formatReport writes the processing report to w.
func formatReport(out io.Writer, r *model.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total entries:\t%d\n", r.TotalEntries)
	_, _ = fmt.Fprintf(w, "Entries processed:\t%d\n", r.EntriesProcessed)
	_, _ = fmt.Fprintf(w, "Efficiency ratio:\t%.2f\n", r.EfficiencyRatio)
	_, _ = fmt.Fprintf(w, "Processing time:\t%.3fs\n", r.ProcessingTimeSeconds)
	_, _ = fmt.Fprintf(w, "Version applied:\t%s\n", r.VersionApplied)
	_, _ = fmt.Fprintf(w, "Hash mismatches:\t%d\n", r.HashMismatchesCount)
	_, _ = fmt.Fprintf(w, "Validation failures:\t%d\n", r.ValidationFailuresCount)

	if len(r.TriggerBreakdown) > 0 {
		_, _ = fmt.Fprintln(w, "Trigger breakdown:")
		kinds := make([]string, 0, len(r.TriggerBreakdown))
		for k := range r.TriggerBreakdown {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", k, r.TriggerBreakdown[model.TriggerKind(k)])
		}
	}
	_ = w.Flush()
}
