// Package pipeline orchestrates selective recomputation of the brew table:
// staleness decisions, per-row recomputation through the calculation engine,
// the mandatory full-dataset bean aggregate pass, and metadata stamping.
package pipeline

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brewlab/brewlog-cli/internal/config"
	"github.com/brewlab/brewlog-cli/internal/engine"
	"github.com/brewlab/brewlog-cli/internal/model"
)

// Processor runs the selective or full recomputation pipeline over one
// in-memory table snapshot. One Processor instance per invocation; callers
// own persistence and writer serialization.
type Processor struct {
	cfg    config.ProcessConfig
	engine *engine.Engine
}

// New builds a Processor from the processing configuration.
func New(cfg config.ProcessConfig) *Processor {
	return &Processor{cfg: cfg, engine: engine.New(cfg)}
}

// computeResult is one flagged row's outcome, batch-merged into a fresh table
// copy only after all workers finish. Rows never commit partially.
type computeResult struct {
	index int
	rec   model.Record
	calc  model.Calculated
	err   error
}

// ProcessSelective recomputes only rows whose decision reasons are non-empty,
// then refreshes bean aggregates for the whole table and stamps metadata on
// the rows that were recomputed successfully. The input table is never
// mutated; the returned table is a fresh copy.
func (p *Processor) ProcessSelective(ctx context.Context, table model.Table) (model.Table, *model.Report, error) {
	start := time.Now()

	report := newReport(p.cfg.TargetVersion, len(table))

	decisions, err := p.DecideAll(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	tally(report, decisions)

	var flagged []int
	for _, d := range decisions {
		if d.NeedsProcessing() {
			flagged = append(flagged, d.Index)
		}
	}

	if len(flagged) == 0 {
		// Defined terminal state: nothing stale, perfect efficiency.
		zap.L().Info("no entries require processing", zap.Int("total", len(table)))
		report.EfficiencyRatio = 1.0
		report.ProcessingTimeSeconds = time.Since(start).Seconds()
		return table, report, nil
	}

	zap.L().Info("processing flagged entries",
		zap.Int("flagged", len(flagged)),
		zap.Int("total", len(table)),
	)

	// Chronological order so predecessor-dependent statistics see a real
	// predecessor even when only a subset is reprocessed.
	sortFlaggedByDate(table, flagged)

	result := table.Clone()
	succeeded := p.recomputeRows(ctx, result, flagged)
	if err := applyBeanAggregates(ctx, result, p.cfg.Workers); err != nil {
		return nil, nil, err
	}
	p.stampMetadata(result, succeeded)

	finishReport(report, result, succeeded, start)
	return result, report, nil
}

// ProcessFull force-recomputes every row, ignoring the decision policy. Used
// for version migrations and corrupted-metadata recovery.
func (p *Processor) ProcessFull(ctx context.Context, table model.Table) (model.Table, *model.Report, error) {
	start := time.Now()

	report := newReport(p.cfg.TargetVersion, len(table))

	if len(table) == 0 {
		report.EfficiencyRatio = 1.0
		report.ProcessingTimeSeconds = time.Since(start).Seconds()
		return table, report, nil
	}

	flagged := make([]int, len(table))
	for i := range table {
		flagged[i] = i
	}
	sortFlaggedByDate(table, flagged)

	result := table.Clone()
	succeeded := p.recomputeRows(ctx, result, flagged)
	if err := applyBeanAggregates(ctx, result, p.cfg.Workers); err != nil {
		return nil, nil, err
	}
	p.stampMetadata(result, succeeded)

	finishReport(report, result, succeeded, start)
	return result, report, nil
}

// DecideAll evaluates the staleness policy over every row. The policy is
// pure per-row, so evaluation fans out across workers with index-addressed
// fan-in.
func (p *Processor) DecideAll(ctx context.Context, table model.Table) ([]model.Decision, error) {
	decisions := make([]model.Decision, len(table))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i := range table {
		i := i
		g.Go(func() error {
			currentHash := RawDataHash(table[i].Record, p.cfg.RawHashFields)
			d := Decide(table[i], currentHash, p.cfg.TargetVersion, p.cfg.Tolerances)
			d.Index = i
			decisions[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return decisions, nil
}

// recomputeRows runs the engine over the flagged rows and batch-merges the
// successful results into table. Row-local failures are logged with row
// identity and skipped: the row keeps its previous calculated fields and
// previous metadata, so the next run flags it again.
func (p *Processor) recomputeRows(ctx context.Context, table model.Table, flagged []int) []int {
	results := make([]computeResult, len(flagged))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for pos, idx := range flagged {
		pos, idx := pos, idx
		g.Go(func() error {
			results[pos] = p.computeOne(table[idx].Record, idx)
			return nil
		})
	}
	_ = g.Wait()

	var succeeded []int
	for _, res := range results {
		if res.err != nil {
			zap.L().Error("row recomputation failed",
				zap.Int("index", res.index),
				zap.String("brew_id", table[res.index].BrewID),
				zap.Error(res.err),
			)
			continue
		}
		row := &table[res.index]
		row.Record = res.rec
		// Preserve the aggregate columns; the aggregate pass that follows
		// rewrites them for every row from the merged table.
		res.calc.BeanUsageCount = row.Calc.BeanUsageCount
		res.calc.AvgRatingThisBean = row.Calc.AvgRatingThisBean
		res.calc.ImprovementVsLast = row.Calc.ImprovementVsLast
		row.Calc = res.calc
		succeeded = append(succeeded, res.index)
	}
	return succeeded
}

func (p *Processor) computeOne(rec model.Record, idx int) computeResult {
	if err := p.engine.Validate(rec); err != nil {
		return computeResult{index: idx, err: err}
	}
	normalized, err := p.engine.Normalize(rec)
	if err != nil {
		return computeResult{index: idx, err: err}
	}
	calc, err := p.engine.ComputeRow(normalized)
	if err != nil {
		return computeResult{index: idx, err: err}
	}
	return computeResult{index: idx, rec: normalized, calc: calc}
}

// stampMetadata writes the content hash, target version, and current UTC
// timestamp for rows that were recomputed successfully in this run. The hash
// covers the post-normalization raw fields, so an unchanged row hashes
// identically on the next run.
func (p *Processor) stampMetadata(table model.Table, succeeded []int) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, idx := range succeeded {
		table[idx].Meta = model.Metadata{
			RawDataHash:        RawDataHash(table[idx].Record, p.cfg.RawHashFields),
			CalculationVersion: p.cfg.TargetVersion,
			LastProcessed:      now,
		}
	}
}

// sortFlaggedByDate orders the flagged indexes by brew date ascending, stable
// on original order; unparseable dates sort last.
func sortFlaggedByDate(table model.Table, flagged []int) {
	sort.SliceStable(flagged, func(a, b int) bool {
		ta, okA := parseBrewDate(table[flagged[a]].BrewDate)
		tb, okB := parseBrewDate(table[flagged[b]].BrewDate)
		if okA != okB {
			return okA
		}
		if !okA {
			return false
		}
		return ta < tb
	})
}

func newReport(version string, total int) *model.Report {
	return &model.Report{
		TotalEntries:     total,
		VersionApplied:   version,
		TriggerBreakdown: make(map[model.TriggerKind]int),
	}
}

// tally fills the trigger breakdown and the mismatch/failure counters from
// the run's decisions. Each trigger counts once per row that exhibited it,
// independent of how many triggers co-occurred.
func tally(report *model.Report, decisions []model.Decision) {
	for _, d := range decisions {
		for _, reason := range d.Reasons {
			report.TriggerBreakdown[reason]++
		}
		if d.Has(model.TriggerHashMismatch) {
			report.HashMismatchesCount++
		}
		if d.Has(model.TriggerValidationInconsistency) {
			report.ValidationFailuresCount++
		}
	}
}

func finishReport(report *model.Report, table model.Table, succeeded []int, start time.Time) {
	report.EntriesProcessed = len(succeeded)
	for _, idx := range succeeded {
		if id := table[idx].BrewID; id != "" {
			report.ProcessedBrewIDs = append(report.ProcessedBrewIDs, id)
		}
	}
	sort.Strings(report.ProcessedBrewIDs)

	if report.TotalEntries > 0 {
		report.EfficiencyRatio = 1.0 - float64(report.EntriesProcessed)/float64(report.TotalEntries)
	} else {
		report.EfficiencyRatio = 1.0
	}
	report.ProcessingTimeSeconds = time.Since(start).Seconds()
}
