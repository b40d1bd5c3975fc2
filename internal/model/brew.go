package model

// Raw field column names as they appear in the CSV. The four numeric fields
// plus brew_date and bean_name are required for processing.
const (
	FieldBrewID           = "brew_id"
	FieldDoseGrams        = "coffee_dose_grams"
	FieldWaterVolumeML    = "water_volume_ml"
	FieldTDSPercent       = "final_tds_percent"
	FieldBrewMassGrams    = "final_brew_mass_grams"
	FieldBrewDate         = "brew_date"
	FieldBeanName         = "bean_name"
	FieldRating           = "score_overall_rating"
	FieldBeanPurchaseDate = "bean_purchase_date"
)

// Record holds the raw input fields of one brewing observation. Raw fields
// are supplied externally and never derived; the pipeline only normalizes
// date strings to ISO-8601. Nil pointers mean the value is absent.
type Record struct {
	BrewID           string            `json:"brew_id"`
	DoseGrams        *float64          `json:"coffee_dose_grams"`
	WaterVolumeML    *float64          `json:"water_volume_ml"`
	TDSPercent       *float64          `json:"final_tds_percent"`
	BrewMassGrams    *float64          `json:"final_brew_mass_grams"`
	BrewDate         string            `json:"brew_date"`
	BeanName         string            `json:"bean_name"`
	Rating           *float64          `json:"score_overall_rating,omitempty"`
	BeanPurchaseDate string            `json:"bean_purchase_date,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"` // passthrough columns, preserved verbatim
}

// Calculated holds the derived columns for one row. All fields are written
// exclusively by the processing pipeline, never hand-edited. The three bean
// aggregate fields depend on the full dataset, not just this row.
type Calculated struct {
	DaysSinceRoast     *int     `json:"beans_days_since_roast,omitempty"`
	Ratio              *float64 `json:"brew_ratio_to_1,omitempty"`
	ExtractionYield    *float64 `json:"final_extraction_yield_percent,omitempty"`
	GramsPerLiter      *float64 `json:"coffee_grams_per_liter,omitempty"`
	StrengthCategory   *string  `json:"score_strength_category,omitempty"`
	ExtractionCategory *string  `json:"score_extraction_category,omitempty"`
	BrewingZone        *string  `json:"score_brewing_zone,omitempty"`
	BrewScore          *float64 `json:"score_brew,omitempty"`
	UnifiedScore       *float64 `json:"unified_brewing_score,omitempty"`
	BeanUsageCount     *int     `json:"bean_usage_count,omitempty"`
	AvgRatingThisBean  *float64 `json:"score_avg_rating_this_bean,omitempty"`
	ImprovementVsLast  *float64 `json:"score_improvement_vs_last,omitempty"`
}

// Metadata tracks processing state per row. It is present and self-consistent
// iff the row was processed at or after the last raw-field change.
type Metadata struct {
	RawDataHash        string `json:"raw_data_hash,omitempty"`
	CalculationVersion string `json:"calculation_version,omitempty"`
	LastProcessed      string `json:"last_processed_timestamp,omitempty"` // UTC, RFC 3339
}

// Row is one table entry: raw record plus derived columns plus processing
// metadata. Row identity is the position in the table; BrewID is diagnostic.
type Row struct {
	Record
	Calc Calculated
	Meta Metadata
}

// Table is an ordered in-memory snapshot of the brew log.
type Table []Row

// Clone returns a deep copy of the table. Pointer fields are reallocated so
// mutations of the copy never leak into the source snapshot.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = row
		out[i].DoseGrams = cloneFloat(row.DoseGrams)
		out[i].WaterVolumeML = cloneFloat(row.WaterVolumeML)
		out[i].TDSPercent = cloneFloat(row.TDSPercent)
		out[i].BrewMassGrams = cloneFloat(row.BrewMassGrams)
		out[i].Rating = cloneFloat(row.Rating)
		if row.Extra != nil {
			extra := make(map[string]string, len(row.Extra))
			for k, v := range row.Extra {
				extra[k] = v
			}
			out[i].Extra = extra
		}
		out[i].Calc = row.Calc.clone()
	}
	return out
}

func (c Calculated) clone() Calculated {
	return Calculated{
		DaysSinceRoast:     cloneInt(c.DaysSinceRoast),
		Ratio:              cloneFloat(c.Ratio),
		ExtractionYield:    cloneFloat(c.ExtractionYield),
		GramsPerLiter:      cloneFloat(c.GramsPerLiter),
		StrengthCategory:   cloneString(c.StrengthCategory),
		ExtractionCategory: cloneString(c.ExtractionCategory),
		BrewingZone:        cloneString(c.BrewingZone),
		BrewScore:          cloneFloat(c.BrewScore),
		UnifiedScore:       cloneFloat(c.UnifiedScore),
		BeanUsageCount:     cloneInt(c.BeanUsageCount),
		AvgRatingThisBean:  cloneFloat(c.AvgRatingThisBean),
		ImprovementVsLast:  cloneFloat(c.ImprovementVsLast),
	}
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v. Convenience for building records.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
