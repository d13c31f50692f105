package http

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/vadimbarashkov/slug-shortener/internal/entity"
)

const statusError = "error"

// shortenRequest represents the structure for a request to shorten a URL.
type shortenRequest struct {
	URL           string        `json:"url"`
	ExpiresInDays expiresInDays `json:"expiresInDays"`
}

var (
	errNullExpiresInDays    = errors.New("expiresInDays must not be null")
	errNonIntegerExpiration = errors.New("expiresInDays must be an integer")
)

// expiresInDays is an optional whole number of days. An explicit null is
// rejected and integral numbers like 5.0 are accepted.
type expiresInDays struct {
	days *int
}

func (d *expiresInDays) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return errNullExpiresInDays
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return errNonIntegerExpiration
	}

	n := int(f)
	d.days = &n

	return nil
}

// shortenResponse represents the structure for a response containing the short link of a URL.
type shortenResponse struct {
	OriginalURL string  `json:"original_url"`
	ShortURL    string  `json:"short_url"`
	ShortLink   string  `json:"short_link"`
	ExpiresAt   *string `json:"expires_at"`
}

func toShortenResponse(url *entity.URL, shortLink string) shortenResponse {
	return shortenResponse{
		OriginalURL: url.OriginalURL,
		ShortURL:    url.Slug,
		ShortLink:   shortLink,
		ExpiresAt:   formatOptionalTime(url.ExpiresAt),
	}
}

// statsResponse represents the structure for a response containing URL statistics.
type statsResponse struct {
	OriginalURL string  `json:"original_url"`
	CreatedAt   string  `json:"created_at"`
	Hits        int64   `json:"hits"`
	ExpiresAt   *string `json:"expires_at"`
}

func toStatsResponse(stats *entity.URLStats) statsResponse {
	return statsResponse{
		OriginalURL: stats.OriginalURL,
		CreatedAt:   formatTime(stats.CreatedAt),
		Hits:        stats.Hits,
		ExpiresAt:   formatOptionalTime(stats.ExpiresAt),
	}
}

// formatTime renders t in UTC with millisecond precision.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}

	s := formatTime(*t)
	return &s
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	invalidSlugResponse = errorResponse{
		Status:  statusError,
		Message: "invalid slug",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	routeNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "route not found",
	}

	tooManyRequestsResponse = errorResponse{
		Status:  statusError,
		Message: "too many requests, please try again later",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "http_url":
		return "must be an absolute http or https url"
	case "max":
		return "value is too long or too large"
	case "min":
		return "value is too small"
	default:
		return "invalid value"
	}
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err *entity.ValidationError) errorResponse {
	fields := err.Fields()

	resp := errorResponse{
		Status:  statusError,
		Message: "validation error",
	}

	if len(fields) == 0 {
		resp.Errors = []validationError{{Field: "url", Message: "invalid url"}}
		return resp
	}

	for _, f := range fields {
		resp.Errors = append(resp.Errors, validationError{
			Field:   f.Field,
			Message: messageForTag(f.Tag),
		})
	}

	return resp
}
