// Package dispatch connects compiled evaluations to the executor: it ships
// jobs onto the work queue and reconciles the verdicts that come back into
// task-result records.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gradeflow/api/pkg/broker"
	"gradeflow/api/services/problem"
	"gradeflow/api/services/runner"
	"gradeflow/api/services/storage"
)

// Publisher is the slice of the broker publisher the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, payload []byte, contentType string) error
}

var _ Publisher = (*broker.Publisher)(nil)

// Dispatcher compiles a programming task against a submission and publishes
// the resulting job, recording a pending result for later reconciliation.
type Dispatcher struct {
	publisher Publisher
	store     storage.Storage
}

func NewDispatcher(publisher Publisher, store storage.Storage) (*Dispatcher, error) {
	if publisher == nil || store == nil {
		return nil, fmt.Errorf("dispatcher requires a publisher and storage")
	}
	return &Dispatcher{publisher: publisher, store: store}, nil
}

// Dispatch validates the submission, compiles every test case, publishes the
// job and records it as pending. Compilation and validation failures surface
// before anything is published; a publish failure after the record is
// created marks the record failed so it does not linger as pending.
func (d *Dispatcher) Dispatch(ctx context.Context, task *problem.ProgrammingTask, inputs []problem.RequiredInput) (runner.Job, error) {
	job, err := task.CreateJob(inputs)
	if err != nil {
		return runner.Job{}, fmt.Errorf("task %d: %w", task.ID, err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return runner.Job{}, fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	if _, err := d.store.CreatePending(ctx, job.ID); err != nil {
		return runner.Job{}, fmt.Errorf("record job %s: %w", job.ID, err)
	}
	if err := d.publisher.Publish(ctx, payload, "application/json"); err != nil {
		if markErr := d.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			slog.Error("failed to mark undispatched job", "jobId", job.ID, "error", markErr)
		}
		return runner.Job{}, fmt.Errorf("dispatch job %s: %w", job.ID, err)
	}

	slog.Info("job dispatched", "jobId", job.ID, "taskId", task.ID, "programs", len(job.Programs))
	return job, nil
}
