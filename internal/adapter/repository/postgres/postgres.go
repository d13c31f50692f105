package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/slug-shortener/internal/entity"
)

const (
	uniqueViolationErrCode = "23505"

	slugConstraint        = "urls_slug_key"
	originalURLConstraint = "urls_original_url_key"
)

// uniqueViolationError maps a unique constraint violation to the entity error
// of the violated column. It returns nil for any other error.
func uniqueViolationError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationErrCode {
		return nil
	}

	switch pgErr.ConstraintName {
	case slugConstraint:
		return entity.ErrSlugExists
	case originalURLConstraint:
		return entity.ErrOriginalURLExists
	default:
		return entity.ErrUniqueViolation
	}
}

type urlDB struct {
	ID          int64        `db:"id"`
	Slug        string       `db:"slug"`
	OriginalURL string       `db:"original_url"`
	CreatedAt   time.Time    `db:"created_at"`
	Hits        int64        `db:"hits"`
	ExpiresAt   sql.NullTime `db:"expires_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	url := &entity.URL{
		ID:          u.ID,
		Slug:        u.Slug,
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
		Hits:        u.Hits,
	}

	if u.ExpiresAt.Valid {
		t := u.ExpiresAt.Time
		url.ExpiresAt = &t
	}

	return url
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// URLRepository persists URLs in the urls table.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) FindBySlug(ctx context.Context, slug string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindBySlug"
	const query = `SELECT id, slug, original_url, created_at, hits, expires_at FROM urls WHERE slug = $1`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByOriginalURL"
	const query = `
		SELECT id, slug, original_url, created_at, hits, expires_at FROM urls
		WHERE original_url_hash = sha256($1::text::bytea) AND original_url = $1`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, originalURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) CreateUnique(ctx context.Context, slug, originalURL string, expiresAt *time.Time) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.CreateUnique"
	const query = `
		INSERT INTO urls(slug, original_url, expires_at) VALUES ($1, $2, $3)
		RETURNING id, slug, original_url, created_at, hits, expires_at`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, slug, originalURL, nullTime(expiresAt)); err != nil {
		if uniqueErr := uniqueViolationError(err); uniqueErr != nil {
			return nil, fmt.Errorf("%s: %w", op, uniqueErr)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) IncrementHits(ctx context.Context, slug string) error {
	const op = "adapter.repository.postgres.URLRepository.IncrementHits"
	const query = `UPDATE urls SET hits = hits + 1 WHERE slug = $1`

	if _, err := r.db.ExecContext(ctx, query, slug); err != nil {
		return fmt.Errorf("%s: failed to update urls table row: %w", op, err)
	}

	return nil
}

func (r *URLRepository) Stats(ctx context.Context, slug string) (*entity.URLStats, error) {
	const op = "adapter.repository.postgres.URLRepository.Stats"

	url, err := r.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url.Stats(), nil
}
