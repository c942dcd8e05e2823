package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/sanosuguru/go-citizen-card-booking/internal/config"
)

func serveMetrics(cfg config.MetricsConfig, authHeader string) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/metrics", func(c echo.Context) error {
		return c.String(http.StatusOK, "metrics")
	}, MetricsBasicAuth(cfg))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestMetricsBasicAuth(t *testing.T) {
	enabled := config.MetricsConfig{User: "testuser", Password: "testpass"}

	tests := []struct {
		name       string
		cfg        config.MetricsConfig
		header     string
		wantStatus int
	}{
		{"認証設定がなければ素通し", config.MetricsConfig{}, "", http.StatusOK},
		{"ユーザーのみの設定は無効", config.MetricsConfig{User: "testuser"}, "", http.StatusOK},
		{"正しい認証情報", enabled, basic("testuser", "testpass"), http.StatusOK},
		{"誤った認証情報", enabled, basic("wronguser", "wrongpass"), http.StatusUnauthorized},
		{"ヘッダーなし", enabled, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveMetrics(tt.cfg, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
