package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Check(t *testing.T) {
	// Setup
	e := NewTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(nil)

	// Act
	err := h.Check(c)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"timestamp"`)
}

func TestHealthHandler_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]PingFunc
		wantStatus int
		wantBody   string
	}{
		{"依存先なしなら準備完了", nil, http.StatusOK, "ok"},
		{"すべて疎通できれば準備完了", map[string]PingFunc{"postgres": ok, "redis": ok}, http.StatusOK, "ok"},
		{"1つでも失敗すれば503", map[string]PingFunc{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewTestEcho()
			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := NewHealthHandler(tt.checks).Ready(c)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Status)
			if tt.checks["redis"] != nil {
				assert.Equal(t, "ok", resp.Checks["postgres"])
			}
		})
	}
}

func TestSplitLabels(t *testing.T) {
	assert.Equal(t, []string{"A1", "B2"}, splitLabels(" A1 ,,B2 "))
	assert.Nil(t, splitLabels(""))
}
