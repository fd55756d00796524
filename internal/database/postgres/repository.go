package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"
)

type urlRecord struct {
	ShortPath   string        `db:"short_path"`
	OriginalURL string        `db:"original_url"`
	CreatedAt   int64         `db:"created_at"`
	ExpiresAt   sql.NullInt64 `db:"expires_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ShortPath:   r.ShortPath,
		OriginalURL: r.OriginalURL,
		CreatedAt:   r.CreatedAt,
	}

	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Int64
		url.ExpiresAt = &expiresAt
	}

	return url
}

func nullableExpiresAt(url *models.URL) sql.NullInt64 {
	if url.ExpiresAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *url.ExpiresAt, Valid: true}
}

// URLRepository is the durable store for URL records. It performs no
// expiration filtering on reads by short path: interpreting expiration is the
// caller's responsibility, so stale-but-unswept records stay visible for
// explicit deletion.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

// Insert stores a new URL record. The primary key on short_path is the final
// authority on availability: losing a race to a concurrent creator surfaces as
// database.ErrShortPathExists.
func (r *URLRepository) Insert(ctx context.Context, url *models.URL) error {
	const op = "database.postgres.URLRepository.Insert"

	query := `INSERT INTO urls(short_path, original_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, url.ShortPath, url.OriginalURL, url.CreatedAt, nullableExpiresAt(url))
	if err != nil {
		if isUniqueViolationError(err) {
			return fmt.Errorf("%s: %w", op, database.ErrShortPathExists)
		}

		return fmt.Errorf("%s: failed to insert url record: %w", op, err)
	}

	return nil
}

// GetByShortPath retrieves a record by its short path, expired or not.
func (r *URLRepository) GetByShortPath(ctx context.Context, shortPath string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortPath"

	rec := new(urlRecord)
	query := `SELECT short_path, original_url, created_at, expires_at
		FROM urls
		WHERE short_path = $1`

	err := r.db.GetContext(ctx, rec, query, shortPath)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// GetLiveByOriginalURL retrieves a record matching the original URL whose
// expiration is null or still in the future at the given time.
func (r *URLRepository) GetLiveByOriginalURL(ctx context.Context, originalURL string, now int64) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetLiveByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT short_path, original_url, created_at, expires_at
		FROM urls
		WHERE original_url = $1 AND (expires_at IS NULL OR expires_at > $2)
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, originalURL, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

// Delete removes a record by its short path. Deleting an absent record is not
// an error.
func (r *URLRepository) Delete(ctx context.Context, shortPath string) error {
	const op = "database.postgres.URLRepository.Delete"

	query := `DELETE FROM urls WHERE short_path = $1`

	_, err := r.db.ExecContext(ctx, query, shortPath)
	if err != nil {
		return fmt.Errorf("%s: failed to delete url record: %w", op, err)
	}

	return nil
}

// DeleteExpired bulk-removes every record whose expiration is at or before the
// given time and returns the number of removed records.
func (r *URLRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	const op = "database.postgres.URLRepository.DeleteExpired"

	query := `DELETE FROM urls WHERE expires_at IS NOT NULL AND expires_at <= $1`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete expired url records: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}

	return affected, nil
}
