package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// DiscountHandler は割引コードハンドラー
type DiscountHandler struct {
	discounts DiscountServiceInterface
}

// NewDiscountHandler はDiscountHandlerを作成する
func NewDiscountHandler(discounts DiscountServiceInterface) *DiscountHandler {
	return &DiscountHandler{discounts: discounts}
}

// CreateDiscountRequest は割引コード作成リクエスト
type CreateDiscountRequest struct {
	Code      string    `json:"code" validate:"required,max=64"`
	Name      string    `json:"name" validate:"max=255"`
	Type      string    `json:"type" validate:"required,oneof=FIXED PERCENT"`
	Value     string    `json:"value" validate:"required"`
	StartsAt  time.Time `json:"starts_at" validate:"required"`
	EndsAt    time.Time `json:"ends_at" validate:"required"`
	SingleUse bool      `json:"single_use"`
	Quantity  int       `json:"quantity" validate:"min=0"`
}

// Create は割引コードを登録する
// @Summary 割引コード作成（管理者）
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateDiscountRequest true "割引コード"
// @Success 201 {object} DiscountResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /admin/discounts [post]
func (h *DiscountHandler) Create(c echo.Context) error {
	var req CreateDiscountRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return apperror.Invalid("割引額の形式が不正です")
	}
	d, err := h.discounts.CreateDiscount(c.Request().Context(), application.CreateDiscountInput{
		Code:      req.Code,
		Name:      req.Name,
		Type:      discount.Type(req.Type),
		Value:     value,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
		SingleUse: req.SingleUse,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toDiscountResponse(d))
}

// Get は割引コードを返す
// @Summary 割引コード取得（管理者）
// @Tags admin
// @Produce json
// @Param code path string true "割引コード"
// @Success 200 {object} DiscountResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/discounts/{code} [get]
func (h *DiscountHandler) Get(c echo.Context) error {
	d, err := h.discounts.Get(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDiscountResponse(d))
}
