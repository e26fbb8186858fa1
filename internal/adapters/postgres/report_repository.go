package postgres_adapter

import (
	"context"
	"errors"
	"fmt"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/domain"
	"real-estate-search-service/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createReportsTable = `
CREATE TABLE IF NOT EXISTS search_reports (
	report_key TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DBTX - часть pgxpool.Pool, которой пользуется репозиторий
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresReportRepository - key-value хранилище отчетов в таблице search_reports
type PostgresReportRepository struct {
	db DBTX
}

func NewPostgresReportRepository(db DBTX) (*PostgresReportRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres connection cannot be nil")
	}
	return &PostgresReportRepository{db: db}, nil
}

// EnsureSchema создает таблицу отчетов, если ее еще нет
func (r *PostgresReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createReportsTable); err != nil {
		return fmt.Errorf("failed to create search_reports table: %w", err)
	}
	return nil
}

// SaveReport перезаписывает отчет по ключу
func (r *PostgresReportRepository) SaveReport(ctx context.Context, key, content string) error {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component":  "PostgresReportRepository",
		"method":     "SaveReport",
		"report_key": key,
	})

	if key == "" {
		return fmt.Errorf("report key cannot be empty")
	}

	query := `
		INSERT INTO search_reports (report_key, content, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (report_key) DO UPDATE
		SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query, key, content); err != nil {
		repoLogger.Error("Failed to save report", err, nil)
		return fmt.Errorf("failed to save report %q: %w", key, err)
	}

	repoLogger.Debug("Report saved.", port.Fields{"bytes": len(content)})
	return nil
}

// GetReport возвращает отчет по ключу или domain.ErrReportNotFound
func (r *PostgresReportRepository) GetReport(ctx context.Context, key string) (string, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component":  "PostgresReportRepository",
		"method":     "GetReport",
		"report_key": key,
	})

	var content string
	err := r.db.QueryRow(ctx, `SELECT content FROM search_reports WHERE report_key = $1`, key).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrReportNotFound
		}
		repoLogger.Error("Failed to load report", err, nil)
		return "", fmt.Errorf("failed to load report %q: %w", key, err)
	}
	return content, nil
}
