package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-citizen-card-booking/internal/config"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
)

// SetupMiddleware は共通ミドルウェアを設定する
// 認証はリクエストログより前に解決し、ログに会員IDを残す
func SetupMiddleware(e *echo.Echo, auth config.AuthConfig, m *metrics.Metrics) {
	e.Use(RequestIDMiddleware())
	e.Use(Identity(auth.JWTSecret))
	e.Use(RequestLogger())
	if m != nil {
		e.Use(PrometheusMiddleware(m))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, HeaderMemberID, HeaderMemberRole, "Idempotency-Key"},
	}))
}
