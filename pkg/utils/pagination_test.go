package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetCursorParamsDefaults(t *testing.T) {
	params, err := GetCursorParams(newContext("/messages"))
	require.NoError(t, err)

	assert.Equal(t, 0, params.Limit)
	assert.Equal(t, "", params.Sort)
	assert.Nil(t, params.Before)
	assert.True(t, params.MarkRead)
}

func TestGetCursorParamsParsesAll(t *testing.T) {
	params, err := GetCursorParams(newContext("/messages?limit=500&offset=20&sort=ASC&markRead=false&before=2024-05-01T10:00:00.123456Z"))
	require.NoError(t, err)

	assert.Equal(t, 500, params.Limit)
	assert.Equal(t, 20, params.Offset)
	assert.Equal(t, "asc", params.Sort)
	assert.False(t, params.MarkRead)
	require.NotNil(t, params.Before)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), *params.Before)
}

func TestGetCursorParamsRejectsGarbage(t *testing.T) {
	for _, target := range []string{"/m?limit=ten", "/m?before=yesterday", "/m?markRead=maybe"} {
		_, err := GetCursorParams(newContext(target))
		assert.Error(t, err, target)
	}
}

func TestCursorRoundTripKeepsMicroseconds(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678901000, time.UTC)
	parsed, err := ParseCursor(FormatCursor(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	fromMillis, err := ParseCursor("1704164645678")
	require.NoError(t, err)
	assert.Equal(t, int64(1704164645678), fromMillis.UnixMilli())
}

func TestGetPaginationParamsBounds(t *testing.T) {
	p := GetPaginationParams(newContext("/threads?limit=1000&offset=-3"), 20, 100)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = GetPaginationParams(newContext("/threads"), 20, 100)
	assert.Equal(t, 20, p.Limit)
}
