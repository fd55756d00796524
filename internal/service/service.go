// Package service implements the URL record lifecycle: creation with dedup
// and collision handling, cache-first resolution with lazy expiration, and
// removal of expired records. All state lives in the two injected stores; the
// service itself is stateless between calls.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/vadimbarashkov/shortlink/internal/database"
	"github.com/vadimbarashkov/shortlink/internal/models"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const defaultCreateAttempts = 6

var (
	// ErrInvalidURL is returned when the original URL is not an absolute
	// http or https URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidShortPath is returned when a caller-supplied short path has
	// the wrong length.
	ErrInvalidShortPath = errors.New("invalid short path")
	// ErrShortPathTaken is returned when a caller-supplied short path is
	// occupied by a live record.
	ErrShortPathTaken = errors.New("short path taken")
	// ErrMaxRetriesExceeded is returned when the maximum number of attempts
	// to find a free generated short path is exceeded.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short path")
)

// URLRepository defines the durable store contract the lifecycle logic
// depends on. The store performs no expiration filtering on GetByShortPath;
// its uniqueness constraint on the short path is the final arbiter for
// concurrent creators.
type URLRepository interface {
	// Insert stores a new URL record, failing with database.ErrShortPathExists
	// if the short path is already occupied.
	Insert(ctx context.Context, url *models.URL) error

	// GetByShortPath retrieves a record by short path, expired or not.
	// Returns database.ErrURLNotFound if no record exists.
	GetByShortPath(ctx context.Context, shortPath string) (*models.URL, error)

	// GetLiveByOriginalURL retrieves a record for the original URL that is
	// still live at the given time. Returns database.ErrURLNotFound if none.
	GetLiveByOriginalURL(ctx context.Context, originalURL string, now int64) (*models.URL, error)

	// Delete removes a record by short path. Absent records are not an error.
	Delete(ctx context.Context, shortPath string) error

	// DeleteExpired bulk-removes records expired at the given time and
	// returns the number removed.
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// URLCache defines the cache contract. Absence is "unknown", never "deleted":
// a cold cache falls back to the durable store.
type URLCache interface {
	// Put stores a snapshot of the record with a TTL derived from its
	// expiration.
	Put(ctx context.Context, url *models.URL, now int64) error

	// Get returns the cached snapshot, reporting absence via the second
	// return value.
	Get(ctx context.Context, shortPath string) (*models.URL, bool, error)

	// Delete evicts the snapshot for the short path.
	Delete(ctx context.Context, shortPath string) error
}

// URLService orchestrates URL record creation, resolution and expiration
// across the durable store and the cache.
type URLService struct {
	repo           URLRepository
	cache          URLCache
	clock          Clock
	logger         *slog.Logger
	createAttempts int
}

// NewURLService creates a URLService. createAttempts bounds the retry loop
// for generated short paths; values below 1 fall back to the default.
func NewURLService(repo URLRepository, cache URLCache, clock Clock, logger *slog.Logger, createAttempts int) *URLService {
	if createAttempts < 1 {
		createAttempts = defaultCreateAttempts
	}

	return &URLService{
		repo:           repo,
		cache:          cache,
		clock:          clock,
		logger:         logger,
		createAttempts: createAttempts,
	}
}

// CreateResult is the outcome of Create. IsExisting reports whether an
// already-live record for the same original URL was reused instead of a new
// one being inserted.
type CreateResult struct {
	URL        *models.URL
	IsExisting bool
}

// Create stores a mapping from a short path to the original URL.
//
// If a live record for the same original URL already exists, it is returned
// with IsExisting set and no new record is inserted, which makes Create
// idempotent per live URL. Otherwise the caller-supplied short path is used
// (after an availability check that evicts an expired occupant), or a random
// one is generated with a bounded number of attempts. The durable insert is
// the final authority: losing a race on the short path retries a generated
// candidate and fails a caller-supplied one with ErrShortPathTaken.
func (s *URLService) Create(ctx context.Context, originalURL, shortPath string, expiration models.Expiration) (*CreateResult, error) {
	const op = "service.URLService.Create"

	normalizedURL, err := normalizeURL(originalURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clock.Now()

	existing, err := s.repo.GetLiveByOriginalURL(ctx, normalizedURL, now)
	if err == nil {
		s.fillCache(ctx, existing, now)
		return &CreateResult{URL: existing, IsExisting: true}, nil
	}
	if !errors.Is(err, database.ErrURLNotFound) {
		return nil, fmt.Errorf("%s: failed to look up original url: %w", op, err)
	}

	url := &models.URL{
		OriginalURL: normalizedURL,
		CreatedAt:   now,
		ExpiresAt:   expiration.ExpiresAt(now),
	}

	if shortPath != "" {
		if len(shortPath) != models.ShortPathLength {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidShortPath)
		}

		url.ShortPath = shortPath
		if err := s.insert(ctx, url, now); err != nil {
			if errors.Is(err, database.ErrShortPathExists) {
				return nil, fmt.Errorf("%s: %w", op, ErrShortPathTaken)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &CreateResult{URL: url}, nil
	}

	for i := 0; i < s.createAttempts; i++ {
		candidate, err := gonanoid.Generate(models.ShortPathAlphabet, models.ShortPathLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short path: %w", op, err)
		}

		url.ShortPath = candidate
		err = s.insert(ctx, url, now)
		if err != nil {
			if errors.Is(err, database.ErrShortPathExists) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &CreateResult{URL: url}, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// insert claims the record's short path: an expired occupant is removed from
// both stores first to free the slot, a live one surfaces as
// database.ErrShortPathExists without touching the durable store. The insert
// itself can still lose a race, which surfaces the same way.
func (s *URLService) insert(ctx context.Context, url *models.URL, now int64) error {
	occupant, err := s.repo.GetByShortPath(ctx, url.ShortPath)
	if err == nil {
		if occupant.LiveAt(now) {
			return database.ErrShortPathExists
		}

		if err := s.remove(ctx, url.ShortPath); err != nil {
			return fmt.Errorf("failed to evict expired occupant: %w", err)
		}
	} else if !errors.Is(err, database.ErrURLNotFound) {
		return fmt.Errorf("failed to check short path availability: %w", err)
	}

	if err := s.repo.Insert(ctx, url); err != nil {
		return err
	}

	s.fillCache(ctx, url, now)

	return nil
}

// Resolve returns the live record for the short path, reading through the
// cache. An expired record found in either store is deleted from both and
// reported as database.ErrURLNotFound, indistinguishable from a record that
// never existed. A store hit backfills the cache.
func (s *URLService) Resolve(ctx context.Context, shortPath string) (*models.URL, error) {
	const op = "service.URLService.Resolve"

	now := s.clock.Now()

	cached, ok, err := s.cache.Get(ctx, shortPath)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read cache: %w", op, err)
	}
	if ok {
		if !cached.LiveAt(now) {
			if err := s.remove(ctx, shortPath); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return cached, nil
	}

	url, err := s.repo.GetByShortPath(ctx, shortPath)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve short path: %w", op, err)
	}

	if !url.LiveAt(now) {
		if err := s.remove(ctx, shortPath); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	s.fillCache(ctx, url, now)

	return url, nil
}

// Exists reports whether the short path resolves to a live record. It is
// Resolve with the record discarded.
func (s *URLService) Exists(ctx context.Context, shortPath string) (bool, error) {
	const op = "service.URLService.Exists"

	_, err := s.Resolve(ctx, shortPath)
	if err != nil {
		if errors.Is(err, database.ErrURLNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// RemoveExpired bulk-removes durably expired records. Matching cache entries
// are left to their own TTLs or to lazy expiration on the next read.
func (s *URLService) RemoveExpired(ctx context.Context) (int64, error) {
	const op = "service.URLService.RemoveExpired"

	affected, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("%s: failed to remove expired urls: %w", op, err)
	}

	return affected, nil
}

// remove deletes the record from the durable store and evicts its cache
// entry, so the cache never serves a record just deleted durably.
func (s *URLService) remove(ctx context.Context, shortPath string) error {
	if err := s.repo.Delete(ctx, shortPath); err != nil {
		return err
	}

	return s.cache.Delete(ctx, shortPath)
}

// fillCache writes the record into the cache best-effort. The cache is an
// optimization, never a correctness dependency: failures are logged and
// swallowed, the record stays durably readable via store fallback.
func (s *URLService) fillCache(ctx context.Context, url *models.URL, now int64) {
	if err := s.cache.Put(ctx, url, now); err != nil {
		s.logger.Warn(
			"failed to fill cache",
			slog.String("short_path", url.ShortPath),
			slog.Any("err", err),
		)
	}
}

// normalizeURL validates that raw is an absolute http or https URL and
// returns its canonical string form.
func normalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", ErrInvalidURL
	}

	return parsed.String(), nil
}
