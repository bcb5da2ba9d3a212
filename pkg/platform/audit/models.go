package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names the domain event that produced an audit entry.
type Action string

const (
	ActionInfractionRecorded   Action = "infraction_recorded"
	ActionInfractionDuplicate  Action = "infraction_duplicate"
	ActionNoteRecorded         Action = "note_recorded"
	ActionNCMECReportRecorded  Action = "ncmec_report_recorded"
	ActionSubmissionRejected   Action = "submission_rejected"
	ActionLockAcquisitionMiss  Action = "lock_acquisition_miss"
)

// Event captures a write-path outcome for the audit trail. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	RecordID     uuid.UUID `json:"recordId,omitempty"`
	ShopperID    string    `json:"shopperId,omitempty"`
	CompositeKey string    `json:"compositeKey,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	Detail       string    `json:"detail,omitempty"`
}
