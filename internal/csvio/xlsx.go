package csvio

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/brewlab/brewlog-cli/internal/model"
)

// WriteXLSX exports the table to a spreadsheet with the same column layout
// as Save. Numeric cells are written as numbers so spreadsheet tools can
// chart them directly; everything else is written as text.
func WriteXLSX(path string, table model.Table, extraCols []string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Brews")
	if err != nil {
		return eris.Wrap(err, "csvio: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range knownColumns {
		header.AddCell().SetString(col)
	}
	for _, col := range extraCols {
		header.AddCell().SetString(col)
	}

	for _, row := range table {
		out := sheet.AddRow()
		for _, col := range knownColumns {
			writeCell(out.AddCell(), row, col)
		}
		for _, col := range extraCols {
			out.AddCell().SetString(row.Extra[col])
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "csvio: save xlsx")
	}
	return nil
}

func writeCell(cell *xlsx.Cell, row model.Row, col string) {
	switch col {
	case model.FieldDoseGrams:
		setFloatCell(cell, row.DoseGrams)
	case model.FieldWaterVolumeML:
		setFloatCell(cell, row.WaterVolumeML)
	case model.FieldTDSPercent:
		setFloatCell(cell, row.TDSPercent)
	case model.FieldBrewMassGrams:
		setFloatCell(cell, row.BrewMassGrams)
	case model.FieldRating:
		setFloatCell(cell, row.Rating)
	case colDaysSinceRoast:
		setIntCell(cell, row.Calc.DaysSinceRoast)
	case colRatio:
		setFloatCell(cell, row.Calc.Ratio)
	case colExtractionYield:
		setFloatCell(cell, row.Calc.ExtractionYield)
	case colGramsPerLiter:
		setFloatCell(cell, row.Calc.GramsPerLiter)
	case colBrewScore:
		setFloatCell(cell, row.Calc.BrewScore)
	case colUnifiedScore:
		setFloatCell(cell, row.Calc.UnifiedScore)
	case colBeanUsageCount:
		setIntCell(cell, row.Calc.BeanUsageCount)
	case colAvgRatingThisBean:
		setFloatCell(cell, row.Calc.AvgRatingThisBean)
	case colImprovementVsLast:
		setFloatCell(cell, row.Calc.ImprovementVsLast)
	default:
		cell.SetString(cellValue(row, col))
	}
}

func setFloatCell(cell *xlsx.Cell, v *float64) {
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetFloat(*v)
}

func setIntCell(cell *xlsx.Cell, v *int) {
	if v == nil {
		cell.SetString("")
		return
	}
	cell.SetInt(*v)
}
