package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewlab/brewlog-cli/internal/model"
)

func aggRow(id, bean, date string, rating *float64) model.Row {
	return model.Row{Record: model.Record{
		BrewID:   id,
		BrewDate: date,
		BeanName: bean,
		Rating:   rating,
	}}
}

func TestApplyBeanAggregates_GroupsByBeanIdentity(t *testing.T) {
	table := model.Table{
		aggRow("a-1", "A", "2025-01-01", model.Float(6)),
		aggRow("b-1", "B", "2025-01-02", model.Float(9)),
		aggRow("a-2", "A", "2025-01-03", model.Float(8)),
	}
	require.NoError(t, applyBeanAggregates(context.Background(), table, 2))

	assert.Equal(t, 2, *table[0].Calc.BeanUsageCount)
	assert.Equal(t, 1, *table[1].Calc.BeanUsageCount)
	assert.Equal(t, 2, *table[2].Calc.BeanUsageCount)

	assert.Equal(t, 7.0, *table[0].Calc.AvgRatingThisBean)
	assert.Equal(t, 9.0, *table[1].Calc.AvgRatingThisBean)
}

func TestApplyBeanAggregates_DeltaUsesChronologyNotRowOrder(t *testing.T) {
	// Rows stored out of date order.
	table := model.Table{
		aggRow("x-2", "X", "2025-01-05", model.Float(9)),
		aggRow("x-1", "X", "2025-01-01", model.Float(6)),
	}
	require.NoError(t, applyBeanAggregates(context.Background(), table, 1))

	// x-1 is chronologically first: no predecessor.
	assert.Nil(t, table[1].Calc.ImprovementVsLast)
	require.NotNil(t, table[0].Calc.ImprovementVsLast)
	assert.Equal(t, 3.0, *table[0].Calc.ImprovementVsLast)
}

func TestApplyBeanAggregates_MissingRatings(t *testing.T) {
	table := model.Table{
		aggRow("x-1", "X", "2025-01-01", nil),
		aggRow("x-2", "X", "2025-01-02", model.Float(8)),
		aggRow("x-3", "X", "2025-01-03", model.Float(7)),
	}
	require.NoError(t, applyBeanAggregates(context.Background(), table, 1))

	// Average ignores absent ratings: (8+7)/2 = 7.5.
	assert.Equal(t, 7.5, *table[0].Calc.AvgRatingThisBean)

	// x-2's predecessor has no rating: delta stays nil.
	assert.Nil(t, table[1].Calc.ImprovementVsLast)
	require.NotNil(t, table[2].Calc.ImprovementVsLast)
	assert.Equal(t, -1.0, *table[2].Calc.ImprovementVsLast)
}

func TestApplyBeanAggregates_NoRatingsAtAll(t *testing.T) {
	table := model.Table{aggRow("x-1", "X", "2025-01-01", nil)}
	require.NoError(t, applyBeanAggregates(context.Background(), table, 1))

	assert.Equal(t, 1, *table[0].Calc.BeanUsageCount)
	assert.Nil(t, table[0].Calc.AvgRatingThisBean)
	assert.Nil(t, table[0].Calc.ImprovementVsLast)
}

func TestApplyBeanAggregates_AverageRoundsHalfToEven(t *testing.T) {
	table := model.Table{
		aggRow("x-1", "X", "2025-01-01", model.Float(7)),
		aggRow("x-2", "X", "2025-01-02", model.Float(8)),
		aggRow("x-3", "X", "2025-01-03", model.Float(9.5)),
	}
	require.NoError(t, applyBeanAggregates(context.Background(), table, 1))

	// (7+8+9.5)/3 = 8.1666... -> 8.2
	assert.Equal(t, 8.2, *table[0].Calc.AvgRatingThisBean)
}

func TestApplyBeanAggregates_EmptyTable(t *testing.T) {
	assert.NoError(t, applyBeanAggregates(context.Background(), model.Table{}, 4))
}
