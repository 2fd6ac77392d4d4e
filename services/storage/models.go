package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResultStatus is the persisted lifecycle state of a task result.
type ResultStatus string

const (
	StatusPending ResultStatus = "PENDING"
	StatusSuccess ResultStatus = "SUCCESS"
	StatusSkipped ResultStatus = "SKIPPED"
	StatusFailed  ResultStatus = "FAILED"
)

// TaskResultRecord tracks one dispatched evaluation. A record is created as
// PENDING when its job is dispatched and transitions exactly once: to SUCCESS
// with the verdict payload when the verdict arrives, or to FAILED with an
// error when the job could not be published. A verdict always yields
// SUCCESS, whatever it reports. Verdict is stored opaquely; interpreting it
// is the API layer's concern.
type TaskResultRecord struct {
	ID          int64           `json:"id" db:"id"`
	JobID       *uuid.UUID      `json:"jobId" db:"job_id"`
	Status      ResultStatus    `json:"status" db:"status"`
	Verdict     json.RawMessage `json:"verdict,omitempty" db:"verdict"`
	StartedAt   time.Time       `json:"startedAt" db:"started_at"`
	CompletedAt *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
	Error       *string         `json:"error,omitempty" db:"error"`
}
