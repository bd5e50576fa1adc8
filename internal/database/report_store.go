package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

// DatabasePool defines the pool operations the report store needs. It is
// satisfied by both *pgxpool.Pool and pgxmock pools.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// ReportStore persists rendered daily reports.
type ReportStore struct {
	pool DatabasePool
}

// NewReportStore creates a report store over a database pool.
func NewReportStore(pool DatabasePool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Save inserts a rendered report. A second run for the same date replaces
// the stored content.
func (s *ReportStore) Save(ctx context.Context, report *models.DailyReport) error {
	query := `
		INSERT INTO daily_reports (id, report_date, symbols, content, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (report_date)
		DO UPDATE SET id = EXCLUDED.id, symbols = EXCLUDED.symbols,
			content = EXCLUDED.content, generated_at = EXCLUDED.generated_at`
	_, err := s.pool.Exec(ctx, query,
		report.ID, report.ReportDate, report.Symbols, report.Content, report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to save daily report: %w", err)
	}
	return nil
}

// GetByDate returns the stored report for one calendar date, or pgx.ErrNoRows.
func (s *ReportStore) GetByDate(ctx context.Context, date time.Time) (*models.DailyReport, error) {
	query := `
		SELECT id, report_date, symbols, content, generated_at
		FROM daily_reports WHERE report_date = $1`
	var report models.DailyReport
	err := s.pool.QueryRow(ctx, query, date).Scan(
		&report.ID, &report.ReportDate, &report.Symbols, &report.Content, &report.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily report: %w", err)
	}
	return &report, nil
}

// List returns the most recent reports, newest first.
func (s *ReportStore) List(ctx context.Context, limit int) ([]*models.DailyReport, error) {
	query := `
		SELECT id, report_date, symbols, content, generated_at
		FROM daily_reports ORDER BY report_date DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.DailyReport
	for rows.Next() {
		var report models.DailyReport
		if err := rows.Scan(&report.ID, &report.ReportDate, &report.Symbols, &report.Content, &report.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily report: %w", err)
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily reports: %w", err)
	}
	return reports, nil
}
