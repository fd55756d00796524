package models

// ShortPathLength is the length of every short path, generated or caller-supplied.
const ShortPathLength = 4

// ShortPathAlphabet is the character set used for generated short paths.
const ShortPathAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Expiration is the lifetime requested for a URL at creation time.
type Expiration string

const (
	Expiration12h     Expiration = "12h"
	Expiration7d      Expiration = "7d"
	ExpirationForever Expiration = "forever"
)

// Valid reports whether e is one of the supported expiration options.
func (e Expiration) Valid() bool {
	switch e {
	case Expiration12h, Expiration7d, ExpirationForever:
		return true
	}
	return false
}

// ExpiresAt converts the expiration option into an absolute timestamp relative
// to now (epoch milliseconds). ExpirationForever yields nil, meaning the URL
// never expires.
func (e Expiration) ExpiresAt(now int64) *int64 {
	var offset int64

	switch e {
	case Expiration12h:
		offset = 12 * 60 * 60 * 1000
	case Expiration7d:
		offset = 7 * 24 * 60 * 60 * 1000
	default:
		return nil
	}

	ts := now + offset
	return &ts
}

// URL represents a short-path-to-URL mapping and its associated metadata.
type URL struct {
	// ShortPath is the fixed-length identifier the original URL resolves from.
	// Acts as the primary key.
	ShortPath string `json:"shortPath"`
	// OriginalURL is the original, full-length URL that the short path points to.
	OriginalURL string `json:"originalUrl"`
	// CreatedAt is the creation timestamp in epoch milliseconds. Set once, immutable.
	CreatedAt int64 `json:"createdAt"`
	// ExpiresAt is the absolute expiration timestamp in epoch milliseconds.
	// Nil means the URL never expires.
	ExpiresAt *int64 `json:"expiresAt"`
}

// LiveAt reports whether the URL is still live at the given time.
// Expiration is evaluated strictly: a URL whose ExpiresAt equals now is expired.
func (u *URL) LiveAt(now int64) bool {
	return u.ExpiresAt == nil || *u.ExpiresAt > now
}
