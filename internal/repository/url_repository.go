package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/shorturls/internal/models"
	"github.com/jackc/pgx/v5"
)

var (
	ErrURLNotFound = errors.New("short url not found")
	ErrCodeExists  = errors.New("short code already exists")
)

type URLRepository interface {
	Create(ctx context.Context, url *models.ShortURL) error
	GetByShortCode(ctx context.Context, code string) (*models.ShortURL, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	UpdateAccessInfo(ctx context.Context, code string, at time.Time) error
	Deactivate(ctx context.Context, code string) error
}

type urlRepository struct {
	db *PostgresDB
}

func NewURLRepository(db *PostgresDB) URLRepository {
	return &urlRepository{db: db}
}

func (r *urlRepository) Create(ctx context.Context, url *models.ShortURL) error {
	query := `
		INSERT INTO urls (original_url, short_code, created_at, expires_at, is_active, access_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		url.OriginalURL,
		url.ShortCode,
		url.CreatedAt,
		url.ExpiresAt,
		url.IsActive,
		url.AccessCount,
	).Scan(&url.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create short url: %w", err)
	}

	return nil
}

func (r *urlRepository) GetByShortCode(ctx context.Context, code string) (*models.ShortURL, error) {
	query := `
		SELECT id, original_url, short_code, created_at, expires_at, is_active, access_count, last_accessed
		FROM urls
		WHERE short_code = $1
	`

	url := &models.ShortURL{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&url.ID,
		&url.OriginalURL,
		&url.ShortCode,
		&url.CreatedAt,
		&url.ExpiresAt,
		&url.IsActive,
		&url.AccessCount,
		&url.LastAccessed,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrURLNotFound
		}
		return nil, fmt.Errorf("failed to get short url: %w", err)
	}

	return url, nil
}

// CodeExists учитывает и неактивные ссылки: коды не переиспользуются
func (r *urlRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}

	return exists, nil
}

func (r *urlRepository) UpdateAccessInfo(ctx context.Context, code string, at time.Time) error {
	query := `
		UPDATE urls
		SET access_count = access_count + 1, last_accessed = $2
		WHERE short_code = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, code, at)
	if err != nil {
		return fmt.Errorf("failed to update access info: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrURLNotFound
	}

	return nil
}

func (r *urlRepository) Deactivate(ctx context.Context, code string) error {
	query := `UPDATE urls SET is_active = FALSE WHERE short_code = $1`

	result, err := r.db.Pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to deactivate short url: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrURLNotFound
	}

	return nil
}
