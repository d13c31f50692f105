// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, along with its
// associated metadata, and any relevant error definitions.
package entity

import "time"

// URL represents a shortened URL.
type URL struct {
	ID          int64      // ID is the unique identifier of the URL assigned by the storage.
	Slug        string     // Slug is the generated code used in the public short link.
	OriginalURL string     // OriginalURL is the normalized URL that the slug resolves to.
	CreatedAt   time.Time  // CreatedAt is the timestamp when the URL was created.
	Hits        int64      // Hits is the number of non-expired resolutions of the slug.
	ExpiresAt   *time.Time // ExpiresAt is the moment the URL stops redirecting, nil if never.
}

// IsExpired reports whether the URL is expired at the given time.
// A URL is expired once now reaches ExpiresAt.
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && !now.Before(*u.ExpiresAt)
}

// Stats returns the statistics view of the URL.
func (u *URL) Stats() *URLStats {
	return &URLStats{
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
		Hits:        u.Hits,
		ExpiresAt:   u.ExpiresAt,
	}
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	OriginalURL string
	CreatedAt   time.Time
	Hits        int64
	ExpiresAt   *time.Time
}

// Resolution is the outcome of resolving a slug.
type Resolution struct {
	Target  string // Target is the original URL.
	Expired bool   // Expired is true when the URL must not be redirected to anymore.
}

// ShortenInput holds the parameters of a shorten request.
type ShortenInput struct {
	URL           string `json:"url" validate:"required,max=2048,http_url"`
	ExpiresInDays *int   `json:"expiresInDays" validate:"omitempty,min=0,max=3650"`
}
