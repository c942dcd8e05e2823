package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health    *HealthHandler
	Bookings  *BookingHandler
	Showtimes *ShowtimeHandler
	Wallet    *WalletHandler
	Discounts *DiscountHandler
}

// RegisterRoutes は /api/v1 配下にルートを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	v1 := e.Group("/api/v1")

	v1.GET("/health", h.Health.Check)
	v1.GET("/health/ready", h.Health.Ready)

	// 上映回（参照のみ、認証不要）
	v1.GET("/showtimes", h.Showtimes.List)
	v1.GET("/showtimes/:id", h.Showtimes.Get)
	v1.GET("/showtimes/:id/seats", h.Showtimes.Seats)
	v1.GET("/showtimes/:id/seats/availability", h.Showtimes.Availability)

	auth := middleware.RequireMember()
	v1.POST("/bookings", h.Bookings.Create, auth)
	v1.GET("/bookings", h.Bookings.List, auth)
	v1.GET("/bookings/:id", h.Bookings.Get, auth)
	v1.POST("/bookings/:id/cancel", h.Bookings.Cancel, auth)

	v1.GET("/wallet", h.Wallet.Get, auth)
	v1.GET("/wallet/entries", h.Wallet.Entries, auth)
	v1.POST("/wallet/top-up", h.Wallet.TopUp, auth)
	v1.POST("/wallet/transfers", h.Wallet.Transfer, auth)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	admin.POST("/showtimes", h.Showtimes.Create)
	admin.POST("/showtimes/:id/close", h.Showtimes.Close)
	admin.PUT("/showtimes/:id/seats/:label/maintenance", h.Showtimes.SetMaintenance)
	admin.POST("/discounts", h.Discounts.Create)
	admin.GET("/discounts/:code", h.Discounts.Get)
	admin.POST("/bookings/:id/cancel", h.Bookings.CancelByAdmin)
	admin.POST("/wallets/:member_id/freeze", h.Wallet.Freeze)
	admin.POST("/wallets/:member_id/unfreeze", h.Wallet.Unfreeze)
}
