package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taxoffice-api/internal/auth"
	apperrors "github.com/yukikurage/taxoffice-api/internal/errors"
	"github.com/yukikurage/taxoffice-api/internal/middleware"
)

// currentIdentity returns the authenticated identity or writes a 401.
func currentIdentity(c *gin.Context) (*auth.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apperrors.Respond(c, nil, apperrors.Unauthenticated(""))
		return nil, false
	}
	return identity, true
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, time.UTC); err == nil {
		return &t, nil
	}
	return nil, apperrors.Validation("Invalid date for "+field+", expected YYYY-MM-DD or RFC 3339", field)
}

// parseOptionalTime parses a pointer field from a request body.
func parseOptionalTime(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	return parseTime(field, *value)
}

// queryTime parses an optional date query parameter.
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	return parseTime(key, c.Query(key))
}

// queryUint parses an optional numeric query parameter.
func queryUint(c *gin.Context, key string) (*uint64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperrors.Validation("Invalid "+key, key)
	}
	return &v, nil
}

// queryEnum returns the query value converted to T, or nil when absent.
func queryEnum[T ~string](c *gin.Context, key string, valid func(T) bool) (*T, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v := T(raw)
	if !valid(v) {
		return nil, apperrors.Validation("Invalid "+key, key)
	}
	return &v, nil
}

// endOfRange makes a plain-date upper bound inclusive of that day.
func endOfRange(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		end := t.AddDate(0, 0, 1)
		return &end
	}
	return t
}
