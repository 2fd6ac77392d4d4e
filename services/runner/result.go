package runner

import "github.com/google/uuid"

// Status is the executor's per-program verdict code.
type Status string

const (
	StatusOK  Status = "OK"  // ran to completion
	StatusMLE Status = "MLE" // memory limit exceeded
	StatusTLE Status = "TLE" // time limit exceeded
	StatusRTE Status = "RTE" // runtime error
	StatusWA  Status = "WA"  // wrong answer
)

// ProgramResult is the outcome of one program run. ID matches the test case
// id the program was compiled from. Whether OK means "accepted" is the
// verdict consumer's policy, not the executor's.
type ProgramResult struct {
	ID            int    `json:"id"`
	Status        Status `json:"status"`
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	ElapsedTimeNS *int64 `json:"elapsed_time_ns,omitempty"`
}

// JobResult is the verdict envelope published by the executor once a job
// finishes. ID echoes the job id it answers.
type JobResult struct {
	ID      uuid.UUID       `json:"id"`
	Success bool            `json:"success"`
	Error   *string         `json:"error,omitempty"`
	Results []ProgramResult `json:"results"`
}
