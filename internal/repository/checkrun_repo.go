package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// SQLiteCheckRunRepository implements CheckRunRepository for SQLite.
type SQLiteCheckRunRepository struct {
	db Querier
}

// NewSQLiteCheckRunRepository creates a new SQLite check run repository.
func NewSQLiteCheckRunRepository(db *sql.DB) *SQLiteCheckRunRepository {
	return &SQLiteCheckRunRepository{db: db}
}

func (r *SQLiteCheckRunRepository) Create(ctx context.Context, run *models.CheckRun) error {
	query := `
		INSERT INTO check_runs (id, product_id, trigger_source, status, error_code,
			error_message, metadata, snapshot_key, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.ProductID,
		run.Trigger,
		run.Status,
		nullString(run.ErrorCode),
		nullString(run.ErrorMessage),
		nullString(run.MetadataJSON),
		nullString(run.SnapshotKey),
		run.StartedAt.Format(time.RFC3339),
		nullTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create check run: %w", err)
	}
	return nil
}

func (r *SQLiteCheckRunRepository) Finish(ctx context.Context, run *models.CheckRun) error {
	query := `
		UPDATE check_runs SET status = ?, error_code = ?, error_message = ?,
			metadata = ?, finished_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		run.Status,
		nullString(run.ErrorCode),
		nullString(run.ErrorMessage),
		nullString(run.MetadataJSON),
		nullTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish check run: %w", err)
	}
	return nil
}

func (r *SQLiteCheckRunRepository) SetSnapshotKey(ctx context.Context, id, key string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE check_runs SET snapshot_key = ? WHERE id = ?", key, id)
	if err != nil {
		return fmt.Errorf("failed to set snapshot key: %w", err)
	}
	return nil
}

const checkRunColumns = `id, product_id, trigger_source, status, error_code,
	error_message, metadata, snapshot_key, started_at, finished_at`

func (r *SQLiteCheckRunRepository) GetByID(ctx context.Context, id string) (*models.CheckRun, error) {
	query := `SELECT ` + checkRunColumns + ` FROM check_runs WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	var run models.CheckRun
	var trigger, status string
	var errorCode, errorMessage, metadata, snapshotKey, finishedAt sql.NullString
	var startedAt string

	err := row.Scan(
		&run.ID, &run.ProductID, &trigger, &status, &errorCode,
		&errorMessage, &metadata, &snapshotKey, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan check run: %w", err)
	}

	run.Trigger = models.CheckTrigger(trigger)
	run.Status = models.CheckRunStatus(status)
	run.ErrorCode = errorCode.String
	run.ErrorMessage = errorMessage.String
	run.MetadataJSON = metadata.String
	run.SnapshotKey = snapshotKey.String
	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	run.FinishedAt = parseTimePtr(finishedAt)
	return &run, nil
}

func (r *SQLiteCheckRunRepository) GetByProductID(ctx context.Context, productID int64, limit, offset int) ([]*models.CheckRun, error) {
	query := `SELECT ` + checkRunColumns + ` FROM check_runs WHERE product_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query check runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.CheckRun
	for rows.Next() {
		var run models.CheckRun
		var trigger, status string
		var errorCode, errorMessage, metadata, snapshotKey, finishedAt sql.NullString
		var startedAt string

		err := rows.Scan(
			&run.ID, &run.ProductID, &trigger, &status, &errorCode,
			&errorMessage, &metadata, &snapshotKey, &startedAt, &finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check run: %w", err)
		}

		run.Trigger = models.CheckTrigger(trigger)
		run.Status = models.CheckRunStatus(status)
		run.ErrorCode = errorCode.String
		run.ErrorMessage = errorMessage.String
		run.MetadataJSON = metadata.String
		run.SnapshotKey = snapshotKey.String
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.FinishedAt = parseTimePtr(finishedAt)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// DeleteOlderThan deletes finished runs started before the cutoff.
// Open runs are never pruned.
func (r *SQLiteCheckRunRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM check_runs WHERE started_at < ? AND status IN ('success', 'failed')`
	result, err := r.db.ExecContext(ctx, query, before.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old check runs: %w", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}
