// Package csvio is the persistence collaborator for the brew table: CSV load
// and save with passthrough of unknown columns, plus XLSX export. All file
// I/O lives here; the processing pipeline only ever sees an in-memory table.
package csvio

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/brewlab/brewlog-cli/internal/model"
)

// Calculated and metadata column names, in canonical output order.
const (
	colDaysSinceRoast     = "beans_days_since_roast"
	colRatio              = "brew_ratio_to_1"
	colExtractionYield    = "final_extraction_yield_percent"
	colGramsPerLiter      = "coffee_grams_per_liter"
	colStrengthCategory   = "score_strength_category"
	colExtractionCategory = "score_extraction_category"
	colBrewingZone        = "score_brewing_zone"
	colBrewScore          = "score_brew"
	colUnifiedScore       = "unified_brewing_score"
	colBeanUsageCount     = "bean_usage_count"
	colAvgRatingThisBean  = "score_avg_rating_this_bean"
	colImprovementVsLast  = "score_improvement_vs_last"
	colRawDataHash        = "raw_data_hash"
	colCalculationVersion = "calculation_version"
	colLastProcessed      = "last_processed_timestamp"
)

// knownColumns is the canonical write order for every column the pipeline
// owns or understands. Passthrough columns follow, in their original file
// order.
var knownColumns = []string{
	model.FieldBrewID,
	model.FieldBrewDate,
	model.FieldBeanName,
	model.FieldBeanPurchaseDate,
	model.FieldDoseGrams,
	model.FieldWaterVolumeML,
	model.FieldTDSPercent,
	model.FieldBrewMassGrams,
	model.FieldRating,
	colDaysSinceRoast,
	colRatio,
	colExtractionYield,
	colGramsPerLiter,
	colStrengthCategory,
	colExtractionCategory,
	colBrewingZone,
	colBrewScore,
	colUnifiedScore,
	colBeanUsageCount,
	colAvgRatingThisBean,
	colImprovementVsLast,
	colRawDataHash,
	colCalculationVersion,
	colLastProcessed,
}

// requiredColumns must exist in the header for a load to succeed. Missing
// values inside a row are a row-local concern left to validation.
var requiredColumns = []string{
	model.FieldDoseGrams,
	model.FieldWaterVolumeML,
	model.FieldTDSPercent,
	model.FieldBrewMassGrams,
	model.FieldBrewDate,
	model.FieldBeanName,
}

// Load reads a brew table from CSV. It returns the table and the ordered
// list of passthrough column names so Save can round-trip them. Unparseable
// numeric cells load as absent rather than failing the whole file.
func Load(path string) (model.Table, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "csvio: open")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "csvio: read")
	}
	if len(records) == 0 {
		return nil, nil, eris.New("csvio: file has no header row")
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.TrimSpace(col)] = i
	}

	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, nil, eris.Errorf("csvio: missing required column %q", col)
		}
	}

	known := make(map[string]bool, len(knownColumns))
	for _, col := range knownColumns {
		known[col] = true
	}
	var extraCols []string
	for _, col := range header {
		if name := strings.TrimSpace(col); !known[name] {
			extraCols = append(extraCols, name)
		}
	}

	table := make(model.Table, 0, len(records)-1)
	for _, raw := range records[1:] {
		table = append(table, parseRow(raw, colIdx, extraCols))
	}
	return table, extraCols, nil
}

func parseRow(raw []string, colIdx map[string]int, extraCols []string) model.Row {
	get := func(col string) string {
		idx, ok := colIdx[col]
		if !ok || idx >= len(raw) {
			return ""
		}
		return strings.TrimSpace(raw[idx])
	}

	row := model.Row{
		Record: model.Record{
			BrewID:           get(model.FieldBrewID),
			DoseGrams:        parseFloat(get(model.FieldDoseGrams)),
			WaterVolumeML:    parseFloat(get(model.FieldWaterVolumeML)),
			TDSPercent:       parseFloat(get(model.FieldTDSPercent)),
			BrewMassGrams:    parseFloat(get(model.FieldBrewMassGrams)),
			BrewDate:         get(model.FieldBrewDate),
			BeanName:         get(model.FieldBeanName),
			Rating:           parseFloat(get(model.FieldRating)),
			BeanPurchaseDate: get(model.FieldBeanPurchaseDate),
		},
		Calc: model.Calculated{
			DaysSinceRoast:     parseInt(get(colDaysSinceRoast)),
			Ratio:              parseFloat(get(colRatio)),
			ExtractionYield:    parseFloat(get(colExtractionYield)),
			GramsPerLiter:      parseFloat(get(colGramsPerLiter)),
			StrengthCategory:   parseString(get(colStrengthCategory)),
			ExtractionCategory: parseString(get(colExtractionCategory)),
			BrewingZone:        parseString(get(colBrewingZone)),
			BrewScore:          parseFloat(get(colBrewScore)),
			UnifiedScore:       parseFloat(get(colUnifiedScore)),
			BeanUsageCount:     parseInt(get(colBeanUsageCount)),
			AvgRatingThisBean:  parseFloat(get(colAvgRatingThisBean)),
			ImprovementVsLast:  parseFloat(get(colImprovementVsLast)),
		},
		Meta: model.Metadata{
			RawDataHash:        get(colRawDataHash),
			CalculationVersion: get(colCalculationVersion),
			LastProcessed:      get(colLastProcessed),
		},
	}

	for _, col := range extraCols {
		if v := get(col); v != "" {
			if row.Extra == nil {
				row.Extra = make(map[string]string)
			}
			row.Extra[col] = v
		}
	}

	return row
}

// Save writes the table back to CSV: known columns in canonical order, then
// the passthrough columns in their original order.
func Save(path string, table model.Table, extraCols []string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "csvio: create")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)

	header := append(append([]string{}, knownColumns...), extraCols...)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "csvio: write header")
	}

	for _, row := range table {
		record := make([]string, 0, len(header))
		for _, col := range knownColumns {
			record = append(record, cellValue(row, col))
		}
		for _, col := range extraCols {
			record = append(record, row.Extra[col])
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "csvio: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "csvio: flush")
	}
	return f.Sync()
}

func cellValue(row model.Row, col string) string {
	switch col {
	case model.FieldBrewID:
		return row.BrewID
	case model.FieldBrewDate:
		return row.BrewDate
	case model.FieldBeanName:
		return row.BeanName
	case model.FieldBeanPurchaseDate:
		return row.BeanPurchaseDate
	case model.FieldDoseGrams:
		return formatFloat(row.DoseGrams)
	case model.FieldWaterVolumeML:
		return formatFloat(row.WaterVolumeML)
	case model.FieldTDSPercent:
		return formatFloat(row.TDSPercent)
	case model.FieldBrewMassGrams:
		return formatFloat(row.BrewMassGrams)
	case model.FieldRating:
		return formatFloat(row.Rating)
	case colDaysSinceRoast:
		return formatInt(row.Calc.DaysSinceRoast)
	case colRatio:
		return formatFloat(row.Calc.Ratio)
	case colExtractionYield:
		return formatFloat(row.Calc.ExtractionYield)
	case colGramsPerLiter:
		return formatFloat(row.Calc.GramsPerLiter)
	case colStrengthCategory:
		return formatString(row.Calc.StrengthCategory)
	case colExtractionCategory:
		return formatString(row.Calc.ExtractionCategory)
	case colBrewingZone:
		return formatString(row.Calc.BrewingZone)
	case colBrewScore:
		return formatFloat(row.Calc.BrewScore)
	case colUnifiedScore:
		return formatFloat(row.Calc.UnifiedScore)
	case colBeanUsageCount:
		return formatInt(row.Calc.BeanUsageCount)
	case colAvgRatingThisBean:
		return formatFloat(row.Calc.AvgRatingThisBean)
	case colImprovementVsLast:
		return formatFloat(row.Calc.ImprovementVsLast)
	case colRawDataHash:
		return row.Meta.RawDataHash
	case colCalculationVersion:
		return row.Meta.CalculationVersion
	case colLastProcessed:
		return row.Meta.LastProcessed
	default:
		return ""
	}
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	if s == "" {
		return nil
	}
	// Tolerate "12.0" style cells written by spreadsheet tools.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	i := int(v)
	return &i
}

func parseString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
