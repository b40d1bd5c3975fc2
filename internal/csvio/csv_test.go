package csvio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewlab/brewlog-cli/internal/model"
)

func writeTestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brews.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Basic(t *testing.T) {
	path := writeTestCSV(t, strings.Join([]string{
		"brew_id,brew_date,bean_name,coffee_dose_grams,water_volume_ml,final_tds_percent,final_brew_mass_grams,score_overall_rating",
		"b1,2025-06-01,Kiamugumo,18,300,1.35,270,8.5",
		"b2,2025-06-02,Kiamugumo,17.5,290,1.28,262,",
	}, "\n") + "\n")

	table, extraCols, err := Load(path)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Empty(t, extraCols)

	row := table[0]
	assert.Equal(t, "b1", row.BrewID)
	assert.Equal(t, "2025-06-01", row.BrewDate)
	assert.Equal(t, "Kiamugumo", row.BeanName)
	require.NotNil(t, row.DoseGrams)
	assert.Equal(t, 18.0, *row.DoseGrams)
	require.NotNil(t, row.Rating)
	assert.Equal(t, 8.5, *row.Rating)

	assert.Nil(t, table[1].Rating)
}

func TestLoad_MissingRequiredColumn(t *testing.T) {
	path := writeTestCSV(t, "brew_id,brew_date,bean_name\nb1,2025-06-01,X\n")

	_, _, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coffee_dose_grams")
}

func TestLoad_JunkNumericCell(t *testing.T) {
	path := writeTestCSV(t, strings.Join([]string{
		"brew_id,brew_date,bean_name,coffee_dose_grams,water_volume_ml,final_tds_percent,final_brew_mass_grams",
		"b1,2025-06-01,X,abc,300,1.35,270",
	}, "\n") + "\n")

	table, _, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, table[0].DoseGrams)
	require.NotNil(t, table[0].WaterVolumeML)
	assert.Equal(t, 300.0, *table[0].WaterVolumeML)
}

func TestLoad_PassthroughColumns(t *testing.T) {
	path := writeTestCSV(t, strings.Join([]string{
		"brew_id,brew_date,bean_name,coffee_dose_grams,water_volume_ml,final_tds_percent,final_brew_mass_grams,grinder_setting,notes",
		"b1,2025-06-01,X,18,300,1.35,270,14,fruity",
	}, "\n") + "\n")

	table, extraCols, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"grinder_setting", "notes"}, extraCols)
	assert.Equal(t, "14", table[0].Extra["grinder_setting"])
	assert.Equal(t, "fruity", table[0].Extra["notes"])
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	table := model.Table{
		{
			Record: model.Record{
				BrewID:           "b1",
				DoseGrams:        model.Float(18),
				WaterVolumeML:    model.Float(300),
				TDSPercent:       model.Float(1.35),
				BrewMassGrams:    model.Float(270),
				BrewDate:         "2025-06-01",
				BeanName:         "Kiamugumo",
				Rating:           model.Float(8.5),
				BeanPurchaseDate: "2025-05-20",
				Extra:            map[string]string{"notes": "fruity"},
			},
			Calc: model.Calculated{
				DaysSinceRoast:     model.Int(12),
				Ratio:              model.Float(16.7),
				ExtractionYield:    model.Float(20.25),
				GramsPerLiter:      model.Float(60),
				StrengthCategory:   model.String("strength_ideal"),
				ExtractionCategory: model.String("extraction_ideal"),
				BrewingZone:        model.String("zone_ideal"),
				BrewScore:          model.Float(9.1),
				UnifiedScore:       model.Float(84.3),
				BeanUsageCount:     model.Int(3),
				AvgRatingThisBean:  model.Float(8.2),
			},
			Meta: model.Metadata{
				RawDataHash:        "abc123",
				CalculationVersion: "1.2.0",
				LastProcessed:      "2025-06-02T10:00:00Z",
			},
		},
		{
			Record: model.Record{
				BrewID:        "b2",
				DoseGrams:     model.Float(17.5),
				WaterVolumeML: model.Float(290),
				TDSPercent:    model.Float(1.28),
				BrewMassGrams: model.Float(262),
				BrewDate:      "2025-06-02",
				BeanName:      "Kiamugumo",
			},
		},
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Save(path, table, []string{"notes"}))

	loaded, extraCols, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, extraCols)
	require.Len(t, loaded, 2)
	assert.Equal(t, table[0], loaded[0])

	// Row 2 had no Extra map; the empty passthrough cell must load back
	// as absent, not as an empty-string entry.
	assert.Equal(t, table[1], loaded[1])
}

func TestSave_FloatPrecision(t *testing.T) {
	table := model.Table{{
		Record: model.Record{
			BrewID:        "b1",
			DoseGrams:     model.Float(18.123456789),
			WaterVolumeML: model.Float(300),
			TDSPercent:    model.Float(1.35),
			BrewMassGrams: model.Float(270),
			BrewDate:      "2025-06-01",
			BeanName:      "X",
		},
	}}

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Save(path, table, nil))

	loaded, _, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded[0].DoseGrams)
	assert.Equal(t, 18.123456789, *loaded[0].DoseGrams)
}

func TestWriteXLSX(t *testing.T) {
	table := model.Table{{
		Record: model.Record{
			BrewID:        "b1",
			DoseGrams:     model.Float(18),
			WaterVolumeML: model.Float(300),
			TDSPercent:    model.Float(1.35),
			BrewMassGrams: model.Float(270),
			BrewDate:      "2025-06-01",
			BeanName:      "Kiamugumo",
			Extra:         map[string]string{"notes": "fruity"},
		},
	}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, table, []string{"notes"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
