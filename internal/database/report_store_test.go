package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantdesk/quantdesk-go/internal/models"
)

func newMockStore(t *testing.T) (*ReportStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewReportStore(mockPool), mockPool
}

func sampleReport() *models.DailyReport {
	return &models.DailyReport{
		ID:          "11111111-2222-3333-4444-555555555555",
		ReportDate:  time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Symbols:     []string{"AAPL", "MSFT", "GOOGL"},
		Content:     "DAILY TRADING REPORT",
		GeneratedAt: time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC),
	}
}

func TestReportStoreSave(t *testing.T) {
	t.Run("inserts the report", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		report := sampleReport()

		mockPool.ExpectExec("INSERT INTO daily_reports").
			WithArgs(report.ID, report.ReportDate, report.Symbols, report.Content, report.GeneratedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Save(context.Background(), report))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("database errors are wrapped", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		report := sampleReport()

		mockPool.ExpectExec("INSERT INTO daily_reports").
			WithArgs(report.ID, report.ReportDate, report.Symbols, report.Content, report.GeneratedAt).
			WillReturnError(errors.New("connection refused"))

		err := store.Save(context.Background(), report)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save daily report")
	})
}

func TestReportStoreGetByDate(t *testing.T) {
	store, mockPool := newMockStore(t)
	want := sampleReport()

	mockPool.ExpectQuery("SELECT id, report_date, symbols, content, generated_at").
		WithArgs(want.ReportDate).
		WillReturnRows(pgxmock.NewRows([]string{"id", "report_date", "symbols", "content", "generated_at"}).
			AddRow(want.ID, want.ReportDate, want.Symbols, want.Content, want.GeneratedAt))

	got, err := store.GetByDate(context.Background(), want.ReportDate)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Symbols, got.Symbols)
	assert.Equal(t, want.Content, got.Content)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReportStoreList(t *testing.T) {
	t.Run("returns newest first", func(t *testing.T) {
		store, mockPool := newMockStore(t)
		newer := sampleReport()
		older := sampleReport()
		older.ID = "66666666-7777-8888-9999-000000000000"
		older.ReportDate = newer.ReportDate.AddDate(0, 0, -1)

		mockPool.ExpectQuery("SELECT id, report_date, symbols, content, generated_at").
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "report_date", "symbols", "content", "generated_at"}).
				AddRow(newer.ID, newer.ReportDate, newer.Symbols, newer.Content, newer.GeneratedAt).
				AddRow(older.ID, older.ReportDate, older.Symbols, older.Content, older.GeneratedAt))

		reports, err := store.List(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.Equal(t, newer.ID, reports[0].ID)
		assert.Equal(t, older.ID, reports[1].ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("empty table yields no reports", func(t *testing.T) {
		store, mockPool := newMockStore(t)

		mockPool.ExpectQuery("SELECT id, report_date, symbols, content, generated_at").
			WithArgs(5).
			WillReturnRows(pgxmock.NewRows([]string{"id", "report_date", "symbols", "content", "generated_at"}))

		reports, err := store.List(context.Background(), 5)
		require.NoError(t, err)
		assert.Empty(t, reports)
	})
}
