package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/jackc/pgx/v5"
)

type AnalyticsRepository interface {
	Record(ctx context.Context, record *models.AccessRecord) error
	ListByShortCode(ctx context.Context, code string) ([]models.AccessRecord, error)
}

type analyticsRepository struct {
	db *PostgresDB
}

func NewAnalyticsRepository(db *PostgresDB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Record(ctx context.Context, record *models.AccessRecord) error {
	query := `
		INSERT INTO analytics (short_code, accessed_at, ip_address, user_agent, referrer, location)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, 'Unknown'))
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		record.ShortCode,
		record.AccessedAt,
		nullable(record.IPAddress),
		nullable(record.UserAgent),
		nullable(record.Referrer),
		nullable(record.Location),
	).Scan(&record.ID)

	if err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}

	return nil
}

// ListByShortCode возвращает переходы от новых к старым
func (r *analyticsRepository) ListByShortCode(ctx context.Context, code string) ([]models.AccessRecord, error) {
	query := `
		SELECT id, short_code, accessed_at,
			COALESCE(ip_address, ''), COALESCE(user_agent, ''),
			COALESCE(referrer, ''), COALESCE(location, '')
		FROM analytics
		WHERE short_code = $1
		ORDER BY accessed_at DESC, id DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list access records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AccessRecord, error) {
		var rec models.AccessRecord
		err := row.Scan(
			&rec.ID,
			&rec.ShortCode,
			&rec.AccessedAt,
			&rec.IPAddress,
			&rec.UserAgent,
			&rec.Referrer,
			&rec.Location,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan access records: %w", err)
	}

	return records, nil
}

// nullable пишет пустую строку как NULL
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
