package model

// TriggerKind names a reason a row was flagged for recomputation.
type TriggerKind string

const (
	TriggerMissingCalculatedFields TriggerKind = "missing_calculated_fields"
	TriggerHashMismatch            TriggerKind = "hash_mismatch"
	TriggerMissingHash             TriggerKind = "missing_hash"
	TriggerVersionMismatch         TriggerKind = "version_mismatch"
	TriggerMissingVersion          TriggerKind = "missing_version"
	TriggerValidationInconsistency TriggerKind = "validation_inconsistency"
)

// Decision is the outcome of the staleness policy for one row in one run.
// A row can accumulate multiple reasons simultaneously; all are recorded for
// the statistics report but only one recomputation occurs. Decisions are
// ephemeral and never persisted.
type Decision struct {
	Index       int           `json:"index"`
	BrewID      string        `json:"brew_id,omitempty"`
	Reasons     []TriggerKind `json:"reasons"`
	CurrentHash string        `json:"current_hash"`
	StoredHash  string        `json:"stored_hash"`
}

// NeedsProcessing reports whether the row must be recomputed.
func (d Decision) NeedsProcessing() bool { return len(d.Reasons) > 0 }

// Has reports whether the decision includes the given trigger.
func (d Decision) Has(kind TriggerKind) bool {
	for _, r := range d.Reasons {
		if r == kind {
			return true
		}
	}
	return false
}
