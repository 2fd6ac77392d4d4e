package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoPendingResult is returned when a verdict arrives for a job id that has
// no record still in the PENDING state - either the job is unknown or the
// record already transitioned.
var ErrNoPendingResult = errors.New("no pending task result for job")

// queryTimeout bounds every storage operation; result rows are tiny and a
// slow database should surface as an error rather than stall the consumer.
const queryTimeout = 5 * time.Second

// DB abstracts the database operations used by the storage layer.
// Satisfied by *pgxpool.Pool in production and pgxmock in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Storage defines the task-result data access used by dispatch and
// reconciliation. The interface keeps both sides decoupled from the
// persistence layer and mockable in tests.
type Storage interface {
	// CreatePending records a freshly dispatched job.
	CreatePending(ctx context.Context, jobID uuid.UUID) (*TaskResultRecord, error)
	// Reconcile transitions the job's record from PENDING to SUCCESS,
	// storing the verdict. Returns ErrNoPendingResult if no record is
	// waiting on the job.
	Reconcile(ctx context.Context, jobID uuid.UUID, verdict json.RawMessage) error
	// MarkFailed transitions the job's record from PENDING to FAILED with
	// an error description. Returns ErrNoPendingResult if no record is
	// waiting on the job.
	MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error
	// GetByJobID fetches the record tracking the given job.
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*TaskResultRecord, error)
}

// pgStorage implements Storage on PostgreSQL.
type pgStorage struct {
	DB DB
}

// NewInstance creates a PostgreSQL-backed Storage implementation.
func NewInstance(db *pgxpool.Pool) (Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: db connection cannot be nil")
	}
	return &pgStorage{DB: db}, nil
}

// NewInstanceWithDB creates a Storage over an explicit DB, used by tests to
// inject pgxmock.
func NewInstanceWithDB(db DB) (Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("storage: db connection cannot be nil")
	}
	return &pgStorage{DB: db}, nil
}

// CreatePending inserts the dispatch-time record: PENDING, started now, no
// verdict yet. The insert is a single statement, so it commits atomically
// with respect to concurrent reconciliation.
func (r *pgStorage) CreatePending(ctx context.Context, jobID uuid.UUID) (*TaskResultRecord, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	record := &TaskResultRecord{JobID: &jobID, Status: StatusPending}
	err := r.DB.QueryRow(timeoutCtx, `
        INSERT INTO task_results (job_id, status, started_at)
        VALUES ($1, $2, now())
        RETURNING id, started_at`,
		jobID, StatusPending).Scan(&record.ID, &record.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pending task result: %w", err)
	}
	return record, nil
}

// Reconcile applies the single allowed transition PENDING -> SUCCESS,
// storing the verdict payload verbatim. The status predicate makes the
// update idempotent: a re-delivered or late verdict matches no row and
// surfaces as ErrNoPendingResult.
func (r *pgStorage) Reconcile(ctx context.Context, jobID uuid.UUID, verdict json.RawMessage) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.DB.Exec(timeoutCtx, `
        UPDATE task_results
        SET status = $2, verdict = $3, completed_at = now()
        WHERE job_id = $1 AND status = $4`,
		jobID, StatusSuccess, verdict, StatusPending)
	if err != nil {
		return fmt.Errorf("reconcile task result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoPendingResult
	}
	return nil
}

// MarkFailed applies the PENDING -> FAILED transition with an error message.
func (r *pgStorage) MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.DB.Exec(timeoutCtx, `
        UPDATE task_results
        SET status = $2, error = $3, completed_at = now()
        WHERE job_id = $1 AND status = $4`,
		jobID, StatusFailed, errMsg, StatusPending)
	if err != nil {
		return fmt.Errorf("mark task result failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoPendingResult
	}
	return nil
}

// GetByJobID fetches the record tracking a job. Returns pgx.ErrNoRows when
// the job is unknown.
func (r *pgStorage) GetByJobID(ctx context.Context, jobID uuid.UUID) (*TaskResultRecord, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	record := &TaskResultRecord{}
	err := r.DB.QueryRow(timeoutCtx, `
        SELECT id, job_id, status, verdict, started_at, completed_at, error
        FROM task_results
        WHERE job_id = $1`,
		jobID).Scan(
		&record.ID,
		&record.JobID,
		&record.Status,
		&record.Verdict,
		&record.StartedAt,
		&record.CompletedAt,
		&record.Error,
	)
	if err != nil {
		return nil, err // pgx.ErrNoRows if not found
	}
	return record, nil
}
