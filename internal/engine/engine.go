// Package engine derives brewing metrics for a single row: ratios, extraction
// yield, classification categories, and composite scores. The engine is a
// pure per-row function: it never reads processing metadata and never sees
// other rows, so callers are free to fan it out across workers.
package engine

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/brewlab/brewlog-cli/internal/config"
	"github.com/brewlab/brewlog-cli/internal/model"
	"github.com/brewlab/brewlog-cli/internal/scoring"
)

const (
	categoryWeak   = "Weak"
	categoryIdeal  = "Ideal"
	categoryStrong = "Strong"
	categoryUnder  = "Under"
	categoryOver   = "Over"
)

// ratingWeight and zoneWeight blend the user rating with the zone bonus in
// the composite brew score.
const (
	ratingWeight = 0.6
	zoneWeight   = 0.4
)

// Engine computes calculated fields from raw fields under a fixed
// configuration.
type Engine struct {
	cfg    config.ProcessConfig
	scorer *scoring.Scorer
}

// New builds an Engine from the processing configuration.
func New(cfg config.ProcessConfig) *Engine {
	return &Engine{
		cfg: cfg,
		scorer: scoring.New(scoring.Params{
			SigmaE:           cfg.Score.SigmaE,
			SigmaT:           cfg.Score.SigmaT,
			DecayK:           cfg.Score.DecayK,
			TargetExtraction: cfg.Score.TargetExtraction,
			TargetTDS:        cfg.Score.TargetTDS,
		}),
	}
}

// Validate enforces required fields, positivity, configured ranges, and date
// parseability. A brew mass exceeding 1.1x the water volume is a logged
// warning, not a failure.
func (e *Engine) Validate(rec model.Record) error {
	required := []struct {
		field string
		value *float64
	}{
		{model.FieldDoseGrams, rec.DoseGrams},
		{model.FieldWaterVolumeML, rec.WaterVolumeML},
		{model.FieldTDSPercent, rec.TDSPercent},
		{model.FieldBrewMassGrams, rec.BrewMassGrams},
	}
	for _, f := range required {
		if f.value == nil {
			return &ValidationError{Field: f.field, Reason: "required field is missing"}
		}
		if *f.value <= 0 {
			return &ValidationError{Field: f.field, Reason: fmt.Sprintf("must be greater than 0, got %v", *f.value)}
		}
		if err := e.checkRange(f.field, *f.value); err != nil {
			return err
		}
	}
	if strings.TrimSpace(rec.BeanName) == "" {
		return &ValidationError{Field: model.FieldBeanName, Reason: "required field is missing"}
	}
	if strings.TrimSpace(rec.BrewDate) == "" {
		return &ValidationError{Field: model.FieldBrewDate, Reason: "required field is missing"}
	}

	if rec.Rating != nil {
		if err := e.checkRange(model.FieldRating, *rec.Rating); err != nil {
			return err
		}
	}

	if _, err := ParseDate(model.FieldBrewDate, rec.BrewDate); err != nil {
		return err
	}
	if strings.TrimSpace(rec.BeanPurchaseDate) != "" {
		if _, err := ParseDate(model.FieldBeanPurchaseDate, rec.BeanPurchaseDate); err != nil {
			return err
		}
	}

	if *rec.BrewMassGrams > *rec.WaterVolumeML*1.1 {
		zap.L().Warn("brew mass significantly exceeds water volume",
			zap.String("brew_id", rec.BrewID),
			zap.Float64("final_brew_mass_grams", *rec.BrewMassGrams),
			zap.Float64("water_volume_ml", *rec.WaterVolumeML),
		)
	}

	return nil
}

func (e *Engine) checkRange(field string, value float64) error {
	r, ok := e.cfg.ValidationRanges[field]
	if !ok {
		return nil
	}
	if value < r.Min || value > r.Max {
		return &ValidationError{
			Field:  field,
			Reason: fmt.Sprintf("value %v outside valid range %v-%v", value, r.Min, r.Max),
		}
	}
	return nil
}

// Normalize returns a copy of the record with its date fields rewritten in
// the standard ISO-8601 form. Legacy DD/MM/YY inputs are converted; already
// standard dates pass through unchanged.
func (e *Engine) Normalize(rec model.Record) (model.Record, error) {
	out := rec

	brewDate, err := ParseDate(model.FieldBrewDate, rec.BrewDate)
	if err != nil {
		return rec, err
	}
	out.BrewDate = FormatDate(brewDate)

	if strings.TrimSpace(rec.BeanPurchaseDate) != "" {
		purchaseDate, err := ParseDate(model.FieldBeanPurchaseDate, rec.BeanPurchaseDate)
		if err != nil {
			return rec, err
		}
		out.BeanPurchaseDate = FormatDate(purchaseDate)
	} else {
		out.BeanPurchaseDate = ""
	}

	return out, nil
}

// ComputeRow derives the row-local calculated fields from the raw fields.
// Callers are expected to Validate first; ComputeRow still guards the
// arithmetic and returns a ComputationError on division by zero rather than
// coercing to zero or infinity. Bean aggregates are not computed here; they
// depend on the full dataset and are filled in by the pipeline's aggregate
// pass.
//
// All rounding is round-half-to-even at the stated precision, always from
// the unrounded inputs.
func (e *Engine) ComputeRow(rec model.Record) (model.Calculated, error) {
	var calc model.Calculated

	if rec.DoseGrams == nil || rec.WaterVolumeML == nil || rec.TDSPercent == nil || rec.BrewMassGrams == nil {
		return calc, &ValidationError{Field: "raw fields", Reason: "required numeric field is missing"}
	}

	dose := *rec.DoseGrams
	volume := *rec.WaterVolumeML
	tds := *rec.TDSPercent
	mass := *rec.BrewMassGrams

	if dose == 0 {
		return calc, &ComputationError{Metric: "brew_ratio_to_1", Reason: "coffee_dose_grams is zero"}
	}
	if volume == 0 {
		return calc, &ComputationError{Metric: "coffee_grams_per_liter", Reason: "water_volume_ml is zero"}
	}

	calc.Ratio = model.Float(roundEven(volume/dose, 1))
	calc.ExtractionYield = model.Float(roundEven((mass*tds)/dose, 2))
	calc.GramsPerLiter = model.Float(roundEven((dose/volume)*1000, 1))

	strength := e.classifyStrength(tds)
	extraction := e.classifyExtraction(*calc.ExtractionYield)
	zone := extraction + "-" + strength
	calc.StrengthCategory = model.String(strength)
	calc.ExtractionCategory = model.String(extraction)
	calc.BrewingZone = model.String(zone)

	calc.BrewScore = e.brewScore(rec.Rating, zone)

	if unified := e.scorer.Score(calc.ExtractionYield, &tds, calc.GramsPerLiter); unified != nil {
		calc.UnifiedScore = model.Float(roundEven(*unified, 1))
	}

	calc.DaysSinceRoast = e.daysSinceRoast(rec)

	return calc, nil
}

func (e *Engine) classifyStrength(tds float64) string {
	switch {
	case tds < e.cfg.StrengthThresholds.WeakMax:
		return categoryWeak
	case tds <= e.cfg.StrengthThresholds.IdealMax:
		return categoryIdeal
	default:
		return categoryStrong
	}
}

func (e *Engine) classifyExtraction(yield float64) string {
	switch {
	case yield < e.cfg.ExtractionThresholds.UnderMax:
		return categoryUnder
	case yield <= e.cfg.ExtractionThresholds.IdealMax:
		return categoryIdeal
	default:
		return categoryOver
	}
}

// brewScore blends the user rating with a bonus for the brewing zone.
// Nil when the rating is absent.
func (e *Engine) brewScore(rating *float64, zone string) *float64 {
	if rating == nil {
		return nil
	}

	var bonus float64
	switch {
	case zone == categoryIdeal+"-"+categoryIdeal:
		bonus = e.cfg.ZoneBonuses.IdealIdeal
	case strings.Contains(zone, categoryIdeal):
		bonus = e.cfg.ZoneBonuses.IdealOther
	default:
		bonus = e.cfg.ZoneBonuses.Other
	}

	return model.Float(roundEven(*rating*ratingWeight+bonus*zoneWeight, 1))
}

// daysSinceRoast is the whole-day difference between brew date and bean
// purchase date. Nil if either date is absent; a negative difference is
// logged and reported as nil rather than raised.
func (e *Engine) daysSinceRoast(rec model.Record) *int {
	if strings.TrimSpace(rec.BeanPurchaseDate) == "" {
		return nil
	}
	brewDate, err := ParseDate(model.FieldBrewDate, rec.BrewDate)
	if err != nil {
		return nil
	}
	purchaseDate, err := ParseDate(model.FieldBeanPurchaseDate, rec.BeanPurchaseDate)
	if err != nil {
		return nil
	}

	days := int(brewDate.Sub(purchaseDate).Hours() / 24)
	if days < 0 {
		zap.L().Warn("brew date precedes bean purchase date",
			zap.String("brew_id", rec.BrewID),
			zap.Int("days", days),
		)
		return nil
	}
	return model.Int(days)
}

// roundEven rounds half to even at the given number of decimal places.
func roundEven(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.RoundToEven(v*factor) / factor
}
