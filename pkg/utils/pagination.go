package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"vendorchat/pkg/errors"
)

// PaginationParams represents limit/offset parameters for list endpoints.
type PaginationParams struct {
	Limit  int
	Offset int
}

// GetPaginationParams extracts limit/offset, falling back to defaultLimit
// for missing or non-positive limits.
func GetPaginationParams(c echo.Context, defaultLimit, maxLimit int) PaginationParams {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	return PaginationParams{Limit: limit, Offset: offset}
}

// CursorParams are the raw message history query parameters. Range
// clamping happens in the use case so every transport gets the same bounds.
type CursorParams struct {
	Limit    int
	Offset   int
	Before   *time.Time
	Sort     string
	MarkRead bool
}

// GetCursorParams parses limit, offset, before, sort and markRead.
func GetCursorParams(c echo.Context) (CursorParams, error) {
	params := CursorParams{
		Sort:     strings.ToLower(strings.TrimSpace(c.QueryParam("sort"))),
		MarkRead: true,
	}

	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.BadRequest("limit must be an integer", err)
		}
		params.Limit = limit
	}

	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.BadRequest("offset must be an integer", err)
		}
		params.Offset = offset
	}

	if v := c.QueryParam("before"); v != "" {
		before, err := ParseCursor(v)
		if err != nil {
			return params, errors.BadRequest("before must be an RFC3339 timestamp", err)
		}
		params.Before = &before
	}

	if v := c.QueryParam("markRead"); v != "" {
		markRead, err := strconv.ParseBool(v)
		if err != nil {
			return params, errors.BadRequest("markRead must be a boolean", err)
		}
		params.MarkRead = markRead
	}

	return params, nil
}

// ParseCursor accepts RFC3339 timestamps with or without fractional seconds
// and unix milliseconds.
func ParseCursor(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// FormatCursor renders a timestamp the way ParseCursor reads it back without
// losing precision.
func FormatCursor(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
