package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brewlab/brewlog-cli/internal/config"
	"github.com/brewlab/brewlog-cli/internal/model"
)

const targetVersion = "1.2.0"

var testTolerances = config.Tolerances{Ratio: 0.1, ExtractionYield: 0.1}

// processedRow builds a row that looks fully processed and self-consistent.
func processedRow() model.Row {
	row := model.Row{Record: hashRecord()}
	row.Calc = model.Calculated{
		Ratio:              model.Float(16.7),
		ExtractionYield:    model.Float(18.0),
		GramsPerLiter:      model.Float(60.0),
		StrengthCategory:   model.String("Ideal"),
		ExtractionCategory: model.String("Ideal"),
		BrewingZone:        model.String("Ideal-Ideal"),
		BrewScore:          model.Float(8.2),
		UnifiedScore:       model.Float(92.0),
		BeanUsageCount:     model.Int(1),
		AvgRatingThisBean:  model.Float(7.0),
	}
	row.Meta = model.Metadata{
		RawDataHash:        RawDataHash(row.Record, config.DefaultRawHashFields),
		CalculationVersion: targetVersion,
		LastProcessed:      "2025-06-01T12:00:00Z",
	}
	return row
}

func decide(row model.Row) model.Decision {
	currentHash := RawDataHash(row.Record, config.DefaultRawHashFields)
	return Decide(row, currentHash, targetVersion, testTolerances)
}

func TestDecide_CleanRowNeedsNothing(t *testing.T) {
	d := decide(processedRow())
	assert.False(t, d.NeedsProcessing())
	assert.Empty(t, d.Reasons)
}

func TestDecide_MissingCalculatedFields(t *testing.T) {
	row := processedRow()
	row.Calc.Ratio = nil
	d := decide(row)
	assert.True(t, d.Has(model.TriggerMissingCalculatedFields))
}

func TestDecide_OptionalNilCalculatedFieldsAreNotMissing(t *testing.T) {
	row := processedRow()
	// Legitimate final states: no purchase date, first brew of the bean.
	row.Calc.DaysSinceRoast = nil
	row.Calc.ImprovementVsLast = nil
	d := decide(row)
	assert.False(t, d.NeedsProcessing())
}

func TestDecide_RatingDependentFieldsMissingOnlyWithRating(t *testing.T) {
	row := processedRow()
	row.Rating = nil
	row.Calc.BrewScore = nil
	row.Calc.AvgRatingThisBean = nil
	// Record must be re-hashed since rating feeds the hash.
	row.Meta.RawDataHash = RawDataHash(row.Record, config.DefaultRawHashFields)
	d := decide(row)
	assert.False(t, d.Has(model.TriggerMissingCalculatedFields))

	row.Rating = model.Float(7)
	row.Meta.RawDataHash = RawDataHash(row.Record, config.DefaultRawHashFields)
	d = decide(row)
	assert.True(t, d.Has(model.TriggerMissingCalculatedFields))
}

func TestDecide_HashMismatch(t *testing.T) {
	row := processedRow()
	row.Rating = model.Float(9.5) // raw edit without re-stamping
	d := decide(row)
	assert.True(t, d.Has(model.TriggerHashMismatch))
	assert.False(t, d.Has(model.TriggerMissingHash))
}

func TestDecide_EmptyCurrentHashDoesNotFireMismatch(t *testing.T) {
	row := processedRow()
	d := Decide(row, "", targetVersion, testTolerances)
	assert.False(t, d.Has(model.TriggerHashMismatch))
}

func TestDecide_MissingHash(t *testing.T) {
	row := processedRow()
	row.Meta.RawDataHash = ""
	d := decide(row)
	assert.True(t, d.Has(model.TriggerMissingHash))
	// An empty stored hash also differs from the current hash.
	assert.True(t, d.Has(model.TriggerHashMismatch))
}

func TestDecide_VersionMismatch(t *testing.T) {
	row := processedRow()
	row.Meta.CalculationVersion = "1.1.0"
	d := decide(row)
	assert.True(t, d.Has(model.TriggerVersionMismatch))
	assert.False(t, d.Has(model.TriggerMissingVersion))
}

func TestDecide_MissingVersion(t *testing.T) {
	row := processedRow()
	row.Meta.CalculationVersion = ""
	d := decide(row)
	assert.True(t, d.Has(model.TriggerMissingVersion))
	assert.True(t, d.Has(model.TriggerVersionMismatch))
}

func TestDecide_ValidationInconsistency(t *testing.T) {
	row := processedRow()
	row.Calc.Ratio = model.Float(12.0) // drifted derived column
	d := decide(row)
	assert.True(t, d.Has(model.TriggerValidationInconsistency))
}

func TestDecide_YieldInconsistency(t *testing.T) {
	row := processedRow()
	row.Calc.ExtractionYield = model.Float(21.0)
	d := decide(row)
	assert.True(t, d.Has(model.TriggerValidationInconsistency))
}

func TestDecide_InconsistencyWithinToleranceIsClean(t *testing.T) {
	row := processedRow()
	// Stored 16.7 vs exact 300/18 = 16.666..., diff under 0.1.
	d := decide(row)
	assert.False(t, d.Has(model.TriggerValidationInconsistency))
}

func TestDecide_InconsistencySkippedWhenFieldsMissing(t *testing.T) {
	row := processedRow()
	row.Calc.Ratio = nil
	d := decide(row)
	assert.True(t, d.Has(model.TriggerMissingCalculatedFields))
	assert.False(t, d.Has(model.TriggerValidationInconsistency))
}

func TestDecide_AmbiguousComparisonBiasesTowardRecompute(t *testing.T) {
	row := processedRow()
	row.DoseGrams = model.Float(0) // division blows up; recompute, don't fail
	d := Decide(row, RawDataHash(row.Record, config.DefaultRawHashFields), targetVersion, testTolerances)
	assert.True(t, d.Has(model.TriggerValidationInconsistency))
}

func TestDecide_MultipleReasonsCoFire(t *testing.T) {
	row := model.Row{Record: hashRecord()} // brand new: nothing calculated, no metadata
	d := decide(row)
	assert.True(t, d.Has(model.TriggerMissingCalculatedFields))
	assert.True(t, d.Has(model.TriggerHashMismatch))
	assert.True(t, d.Has(model.TriggerMissingHash))
	assert.True(t, d.Has(model.TriggerVersionMismatch))
	assert.True(t, d.Has(model.TriggerMissingVersion))
}
