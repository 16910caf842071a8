package utils

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/rs/zerolog"
)

// Envelope wraps a payload in the standard response shape
func Envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError maps err to an HTTP status and writes {"error": msg}.
// Server-side failures are logged.
func WriteError(w http.ResponseWriter, err error, log zerolog.Logger) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	WriteJSON(w, status, map[string]string{"error": err.Error()}, log)
}

// StatusForError returns the HTTP status for a domain error
func StatusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientData), errors.Is(err, domain.ErrDivisionHazard):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ParseDate accepts RFC3339 timestamps or plain 2006-01-02 dates (UTC)
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, domain.NewValidation("invalid date %q, expected YYYY-MM-DD or RFC3339", s)
	}
	return t, nil
}

// OptionalDate parses query parameter key, returning nil when it is absent
func OptionalDate(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, domain.NewValidation("%s: %v", key, err)
	}
	return &t, nil
}

// QueryInt parses query parameter key within [min, max], using def when absent
func QueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidation("%s must be an integer", key)
	}
	if n < min || n > max {
		return 0, domain.NewValidation("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

// OptionalFloat parses query parameter key, returning nil when it is absent
func OptionalFloat(r *http.Request, key string) (*float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.NewValidation("%s must be a number", key)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, domain.NewValidation("%s must be a finite number", key)
	}
	return &f, nil
}

// PathID parses a positive integer id
func PathID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidation("invalid id %q", raw)
	}
	return id, nil
}

// DecodeJSON decodes the request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidation("invalid request body: %v", err)
	}
	return nil
}

// SeedParam returns the seed query parameter, or nil
func SeedParam(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("seed")
	if raw == "" {
		return nil, nil
	}
	seed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.NewValidation("seed must be an integer")
	}
	return &seed, nil
}

