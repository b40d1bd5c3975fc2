package pipeline

import (
	"go.uber.org/zap"

	"github.com/brewlab/brewlog-cli/internal/model"
)

// LogHashDebugInfo emits the hash configuration and a sample calculation for
// the table's first row. Diagnostic only, behind the --debug-hash flag.
func LogHashDebugInfo(table model.Table, fields []string) {
	log := zap.L().With(
		zap.Strings("raw_hash_fields", fields),
		zap.String("hash_algorithm", "md5"),
	)

	if len(table) == 0 {
		log.Info("hash debug: empty table")
		return
	}

	first := table[0]
	components := make([]string, 0, len(fields))
	for _, field := range fields {
		components = append(components, hashComponent(first.Record, field))
	}

	log.Info("hash debug: sample calculation",
		zap.String("brew_id", first.BrewID),
		zap.Strings("components", components),
		zap.String("calculated_hash", RawDataHash(first.Record, fields)),
		zap.String("stored_hash", first.Meta.RawDataHash),
	)
}
