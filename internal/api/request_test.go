package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sigfuse/internal/core"
)

func TestCheck_ListQuery(t *testing.T) {
	q := listQuery{Action: "BUY"}
	require.NoError(t, check(context.Background(), &q))
	assert.Equal(t, 50, q.Limit)

	tests := []struct {
		name  string
		query listQuery
		msg   string
	}{
		{"unknown action", listQuery{Action: "MOON"}, "action must be one of: STRONG_BUY, BUY"},
		{"limit too large", listQuery{Limit: 5000}, "limit must be less than or equal to 1000"},
		{"negative offset", listQuery{Offset: -1}, "offset must be greater than or equal to 0"},
		{"long symbol", listQuery{Symbol: strings.Repeat("X", 21)}, "symbol must be at most 20 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check(context.Background(), &tt.query)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfigInvalid))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDecodeBody(t *testing.T) {
	var req addRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"symbol":"AAPL"}`))
	require.NoError(t, decodeBody(r, &req))
	assert.Equal(t, "AAPL", req.Symbol)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	err := decodeBody(r, &addRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol is required")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.True(t, errors.Is(decodeBody(r, &addRequest{}), core.ErrConfigInvalid))
}
