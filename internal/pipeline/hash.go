package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/brewlab/brewlog-cli/internal/model"
)

// hashDelimiter separates serialized field values. Not expected in the data.
const hashDelimiter = "|"

// RawDataHash fingerprints the configured raw-field subset of a record.
// The digest is order-sensitive over fields and is a change detector, not a
// security boundary, so MD5 is fine here. An empty return value means
// "unknown", which the decision policy treats as force-recompute.
//
// Serialization per field: absent -> empty string, float -> fixed six-decimal
// form (avoids platform float-formatting drift), everything else -> its
// natural string form. Unknown field names serialize from the passthrough
// columns, or empty when not present there either.
func RawDataHash(rec model.Record, fields []string) string {
	components := make([]string, 0, len(fields))
	for _, field := range fields {
		components = append(components, hashComponent(rec, field))
	}

	sum := md5.Sum([]byte(strings.Join(components, hashDelimiter)))
	return hex.EncodeToString(sum[:])
}

func hashComponent(rec model.Record, field string) string {
	switch field {
	case model.FieldBrewID:
		return rec.BrewID
	case model.FieldDoseGrams:
		return floatComponent(rec.DoseGrams)
	case model.FieldWaterVolumeML:
		return floatComponent(rec.WaterVolumeML)
	case model.FieldTDSPercent:
		return floatComponent(rec.TDSPercent)
	case model.FieldBrewMassGrams:
		return floatComponent(rec.BrewMassGrams)
	case model.FieldBeanName:
		return rec.BeanName
	case model.FieldBrewDate:
		return rec.BrewDate
	case model.FieldBeanPurchaseDate:
		return rec.BeanPurchaseDate
	case model.FieldRating:
		return floatComponent(rec.Rating)
	default:
		return rec.Extra[field]
	}
}

func floatComponent(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}
