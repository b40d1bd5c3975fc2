package pipeline

import (
	"math"

	"github.com/brewlab/brewlog-cli/internal/config"
	"github.com/brewlab/brewlog-cli/internal/model"
)

// Decide evaluates the staleness policy for one row. The checks are
// independent and non-short-circuiting: a row can accumulate several trigger
// reasons in one run, all of which are recorded for the statistics report.
// Decide is pure and never mutates metadata.
func Decide(row model.Row, currentHash, targetVersion string, tol config.Tolerances) model.Decision {
	d := model.Decision{
		BrewID:      row.BrewID,
		CurrentHash: currentHash,
		StoredHash:  row.Meta.RawDataHash,
	}

	missing := missingCalculatedFields(row)
	if len(missing) > 0 {
		d.Reasons = append(d.Reasons, model.TriggerMissingCalculatedFields)
	}

	if currentHash != row.Meta.RawDataHash && currentHash != "" {
		d.Reasons = append(d.Reasons, model.TriggerHashMismatch)
	}

	if row.Meta.RawDataHash == "" {
		d.Reasons = append(d.Reasons, model.TriggerMissingHash)
	}

	if row.Meta.CalculationVersion != targetVersion {
		d.Reasons = append(d.Reasons, model.TriggerVersionMismatch)
	}

	if row.Meta.CalculationVersion == "" {
		d.Reasons = append(d.Reasons, model.TriggerMissingVersion)
	}

	// Consistency of stored derived values against current raw fields, only
	// meaningful when the calculated fields are all present. Catches derived
	// columns edited externally without touching the hash column.
	if len(missing) == 0 && inconsistent(row, tol) {
		d.Reasons = append(d.Reasons, model.TriggerValidationInconsistency)
	}

	return d
}

// missingCalculatedFields returns the names of calculated fields that should
// be present but are not. Fields whose inputs are absent (rating-dependent
// scores, days since roast, the predecessor delta) are excluded: a nil there
// is a legitimate final state, and counting it would re-flag the row forever.
func missingCalculatedFields(row model.Row) []string {
	var missing []string
	c := row.Calc

	if c.Ratio == nil {
		missing = append(missing, "brew_ratio_to_1")
	}
	if c.ExtractionYield == nil {
		missing = append(missing, "final_extraction_yield_percent")
	}
	if c.GramsPerLiter == nil {
		missing = append(missing, "coffee_grams_per_liter")
	}
	if c.StrengthCategory == nil {
		missing = append(missing, "score_strength_category")
	}
	if c.ExtractionCategory == nil {
		missing = append(missing, "score_extraction_category")
	}
	if c.BrewingZone == nil {
		missing = append(missing, "score_brewing_zone")
	}
	if c.UnifiedScore == nil {
		missing = append(missing, "unified_brewing_score")
	}
	if c.BeanUsageCount == nil {
		missing = append(missing, "bean_usage_count")
	}
	if row.Rating != nil {
		if c.BrewScore == nil {
			missing = append(missing, "score_brew")
		}
		if c.AvgRatingThisBean == nil {
			missing = append(missing, "score_avg_rating_this_bean")
		}
	}

	return missing
}

// inconsistent recomputes ratio and extraction yield from the current raw
// fields and compares against the stored values within the configured
// tolerances. Any ambiguity (missing raw inputs, division blowing up to
// NaN/Inf) biases toward recompute; an extra recompute is far cheaper than
// a missed one.
func inconsistent(row model.Row, tol config.Tolerances) bool {
	if row.DoseGrams == nil || row.WaterVolumeML == nil ||
		row.TDSPercent == nil || row.BrewMassGrams == nil {
		return true
	}

	expectedRatio := *row.WaterVolumeML / *row.DoseGrams
	if outsideTolerance(expectedRatio, *row.Calc.Ratio, tol.Ratio) {
		return true
	}

	expectedYield := (*row.BrewMassGrams * *row.TDSPercent) / *row.DoseGrams
	if outsideTolerance(expectedYield, *row.Calc.ExtractionYield, tol.ExtractionYield) {
		return true
	}

	return false
}

func outsideTolerance(expected, actual, tol float64) bool {
	diff := math.Abs(expected - actual)
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		return true
	}
	return diff > tol
}
