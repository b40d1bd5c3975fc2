package model

// Report summarizes one processing run. It is purely observational and
// never influences the next run's decisions.
type Report struct {
	TotalEntries            int                 `json:"total_entries"`
	EntriesProcessed        int                 `json:"entries_processed"`
	TriggerBreakdown        map[TriggerKind]int `json:"trigger_breakdown"`
	ProcessingTimeSeconds   float64             `json:"processing_time_seconds"`
	VersionApplied          string              `json:"version_applied"`
	EfficiencyRatio         float64             `json:"efficiency_ratio"`
	HashMismatchesCount     int                 `json:"hash_mismatches_count"`
	ValidationFailuresCount int                 `json:"validation_failures_count"`
	ProcessedBrewIDs        []string            `json:"processed_brew_ids"`
}
