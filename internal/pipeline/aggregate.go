package pipeline

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/brewlab/brewlog-cli/internal/engine"
	"github.com/brewlab/brewlog-cli/internal/model"
)

// applyBeanAggregates recomputes the three per-bean aggregate columns (usage
// count, running average rating, rating delta vs the chronologically previous
// brew of the same bean) for every row in the table. These depend on the
// complete current dataset, so the pass always covers all rows regardless of
// which subset was recomputed. It mutates table in place and never touches
// hash/version/timestamp metadata.
//
// Groups are independent, so they fan out across workers; within a group the
// running average and delta are order-dependent and stay sequential.
func applyBeanAggregates(ctx context.Context, table model.Table, workers int) error {
	groups := groupByBean(table)

	g, _ := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, indexes := range groups {
		indexes := indexes
		g.Go(func() error {
			aggregateGroup(table, indexes)
			return nil
		})
	}

	return g.Wait()
}

// groupByBean partitions row indexes by bean identity, each group sorted by
// brew date ascending (stable on the original row order for ties and
// unparseable dates, which sort last).
func groupByBean(table model.Table) map[string][]int {
	groups := make(map[string][]int)
	for i, row := range table {
		groups[row.BeanName] = append(groups[row.BeanName], i)
	}

	for _, indexes := range groups {
		sortChronologically(table, indexes)
	}
	return groups
}

func sortChronologically(table model.Table, indexes []int) {
	sort.SliceStable(indexes, func(a, b int) bool {
		ta, okA := parseBrewDate(table[indexes[a]].BrewDate)
		tb, okB := parseBrewDate(table[indexes[b]].BrewDate)
		if okA != okB {
			return okA
		}
		if !okA {
			return false
		}
		return ta < tb
	})
}

func parseBrewDate(value string) (t int64, ok bool) {
	parsed, err := engine.ParseDate(model.FieldBrewDate, value)
	if err != nil {
		return 0, false
	}
	return parsed.Unix(), true
}

// aggregateGroup fills the aggregate columns for one bean's rows, given the
// group's indexes in chronological order.
func aggregateGroup(table model.Table, indexes []int) {
	count := len(indexes)

	ratingSum := 0.0
	ratingCount := 0
	for _, idx := range indexes {
		if r := table[idx].Rating; r != nil {
			ratingSum += *r
			ratingCount++
		}
	}
	var avg *float64
	if ratingCount > 0 {
		avg = model.Float(roundEven1(ratingSum / float64(ratingCount)))
	}

	for pos, idx := range indexes {
		row := &table[idx]
		row.Calc.BeanUsageCount = model.Int(count)
		if avg != nil {
			row.Calc.AvgRatingThisBean = model.Float(*avg)
		} else {
			row.Calc.AvgRatingThisBean = nil
		}

		// Delta vs the immediate chronological predecessor; nil for the first
		// brew of the bean or when either rating is absent.
		row.Calc.ImprovementVsLast = nil
		if pos > 0 && row.Rating != nil {
			prev := table[indexes[pos-1]].Rating
			if prev != nil {
				row.Calc.ImprovementVsLast = model.Float(roundEven1(*row.Rating - *prev))
			}
		}
	}
}

func roundEven1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
