package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/models"
)

// SQLiteSchedulerLogRepository implements SchedulerLogRepository for SQLite.
type SQLiteSchedulerLogRepository struct {
	db Querier
}

// NewSQLiteSchedulerLogRepository creates a new SQLite scheduler log repository.
func NewSQLiteSchedulerLogRepository(db *sql.DB) *SQLiteSchedulerLogRepository {
	return &SQLiteSchedulerLogRepository{db: db}
}

func (r *SQLiteSchedulerLogRepository) Create(ctx context.Context, log *models.SchedulerLog) error {
	query := `
		INSERT INTO scheduler_logs (id, run_started_at, run_finished_at, products_checked,
			items_checked, success, error_summary, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.RunStartedAt.Format(time.RFC3339),
		nullTime(log.RunFinishedAt),
		log.ProductsChecked,
		log.ItemsChecked,
		nullBool(log.Success),
		nullString(log.ErrorSummary),
		nullString(log.MetadataJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler log: %w", err)
	}
	return nil
}

func (r *SQLiteSchedulerLogRepository) Finalize(ctx context.Context, log *models.SchedulerLog) error {
	query := `
		UPDATE scheduler_logs SET run_finished_at = ?, products_checked = ?,
			items_checked = ?, success = ?, error_summary = ?, metadata = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		nullTime(log.RunFinishedAt),
		log.ProductsChecked,
		log.ItemsChecked,
		nullBool(log.Success),
		nullString(log.ErrorSummary),
		nullString(log.MetadataJSON),
		log.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize scheduler log: %w", err)
	}
	return nil
}

const schedulerLogColumns = `id, run_started_at, run_finished_at, products_checked,
	items_checked, success, error_summary, metadata`

func (r *SQLiteSchedulerLogRepository) GetByID(ctx context.Context, id string) (*models.SchedulerLog, error) {
	query := `SELECT ` + schedulerLogColumns + ` FROM scheduler_logs WHERE id = ?`
	return r.scanLog(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteSchedulerLogRepository) GetLatest(ctx context.Context) (*models.SchedulerLog, error) {
	query := `SELECT ` + schedulerLogColumns + ` FROM scheduler_logs ORDER BY run_started_at DESC, id DESC LIMIT 1`
	return r.scanLog(r.db.QueryRowContext(ctx, query))
}

func (r *SQLiteSchedulerLogRepository) List(ctx context.Context, limit, offset int) ([]*models.SchedulerLog, error) {
	query := `SELECT ` + schedulerLogColumns + ` FROM scheduler_logs
		ORDER BY run_started_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduler logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.SchedulerLog
	for rows.Next() {
		log, err := r.scanLogFromRows(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// MarkStaleOpenRuns closes sweep rows left open by a previous process.
// Used at startup so interrupted sweeps don't read as still running.
func (r *SQLiteSchedulerLogRepository) MarkStaleOpenRuns(ctx context.Context) (int64, error) {
	query := `
		UPDATE scheduler_logs
		SET run_finished_at = ?, success = 0, error_summary = ?
		WHERE run_finished_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		time.Now().UTC().Format(time.RFC3339),
		"sweep interrupted: marked stale at startup",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale scheduler logs: %w", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

func (r *SQLiteSchedulerLogRepository) scanLog(row *sql.Row) (*models.SchedulerLog, error) {
	var log models.SchedulerLog
	var runStartedAt string
	var runFinishedAt, errorSummary, metadata sql.NullString
	var success sql.NullInt64

	err := row.Scan(
		&log.ID, &runStartedAt, &runFinishedAt, &log.ProductsChecked,
		&log.ItemsChecked, &success, &errorSummary, &metadata,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scheduler log: %w", err)
	}

	log.RunStartedAt, _ = time.Parse(time.RFC3339, runStartedAt)
	log.RunFinishedAt = parseTimePtr(runFinishedAt)
	log.Success = boolPtr(success)
	log.ErrorSummary = errorSummary.String
	log.MetadataJSON = metadata.String
	return &log, nil
}

func (r *SQLiteSchedulerLogRepository) scanLogFromRows(rows *sql.Rows) (*models.SchedulerLog, error) {
	var log models.SchedulerLog
	var runStartedAt string
	var runFinishedAt, errorSummary, metadata sql.NullString
	var success sql.NullInt64

	err := rows.Scan(
		&log.ID, &runStartedAt, &runFinishedAt, &log.ProductsChecked,
		&log.ItemsChecked, &success, &errorSummary, &metadata,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan scheduler log: %w", err)
	}

	log.RunStartedAt, _ = time.Parse(time.RFC3339, runStartedAt)
	log.RunFinishedAt = parseTimePtr(runFinishedAt)
	log.Success = boolPtr(success)
	log.ErrorSummary = errorSummary.String
	log.MetadataJSON = metadata.String
	return &log, nil
}
