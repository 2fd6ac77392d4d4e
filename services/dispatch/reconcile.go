package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gradeflow/api/services/runner"
	"gradeflow/api/services/storage"
)

// Reconciler applies executor verdicts to pending task-result records. It is
// wired as the broker consumer's handler, so one verdict is processed at a
// time.
type Reconciler struct {
	store storage.Storage
}

func NewReconciler(store storage.Storage) (*Reconciler, error) {
	if store == nil {
		return nil, fmt.Errorf("reconciler requires storage")
	}
	return &Reconciler{store: store}, nil
}

// Handle processes one verdict envelope. Anomalies - malformed payloads and
// verdicts for unknown or already-settled jobs - are logged and dropped:
// re-delivering them cannot make them reconcilable, and holding the message
// would block everything behind it.
func (r *Reconciler) Handle(ctx context.Context, body []byte) error {
	var result runner.JobResult
	if err := json.Unmarshal(body, &result); err != nil {
		slog.Warn("discarding malformed verdict", "error", err)
		return nil
	}

	if err := r.store.Reconcile(ctx, result.ID, json.RawMessage(body)); err != nil {
		if errors.Is(err, storage.ErrNoPendingResult) {
			slog.Warn("verdict for unknown or settled job", "jobId", result.ID)
			return nil
		}
		// Surface storage failures to the consumer's log; the message is
		// still acknowledged to preserve liveness.
		return fmt.Errorf("reconcile job %s: %w", result.ID, err)
	}

	slog.Info("job reconciled", "jobId", result.ID, "success", result.Success, "programs", len(result.Results))
	return nil
}
