package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// HeaderIdempotencyKey はリクエストキーを渡すヘッダー
const HeaderIdempotencyKey = "Idempotency-Key"

// BookingHandler は予約ハンドラー
type BookingHandler struct {
	bookings BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを作成する
func NewBookingHandler(bookings BookingServiceInterface) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// CreateBookingRequest は予約作成リクエスト
type CreateBookingRequest struct {
	ShowtimeID   string   `json:"showtime_id" validate:"required"`
	Seats        []string `json:"seats" validate:"required,min=1,max=10,dive,required"`
	DiscountCode string   `json:"discount_code"`
	RequestKey   string   `json:"request_key" validate:"max=128"`
}

// CancelBookingRequest は取消リクエスト
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

// Create は座席を確保して決済まで行う
// @Summary 予約作成
// @Description 座席確保・割引・ウォレット決済を行い予約を確定する。同じリクエストキーの再送は同じ予約を返す
// @Tags bookings
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "リクエストキー"
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 402 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	key := strings.TrimSpace(req.RequestKey)
	if key == "" {
		key = strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
	}
	if key == "" {
		return apperror.Invalid("リクエストキーは必須です")
	}

	b, err := h.bookings.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		MemberID:     middleware.MemberID(c),
		ShowtimeID:   req.ShowtimeID,
		SeatLabels:   req.Seats,
		DiscountCode: req.DiscountCode,
		RequestKey:   key,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// Get は自分の予約を取得する
// @Summary 予約取得
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.bookings.GetBooking(c.Request().Context(), c.Param("id"), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// List は自分の予約を新しい順に返す
// @Summary 予約一覧
// @Tags bookings
// @Produce json
// @Param limit query int false "取得件数"
// @Param offset query int false "オフセット"
// @Success 200 {array} BookingResponse
// @Router /bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	limit, offset, err := paging(c)
	if err != nil {
		return err
	}
	list, err := h.bookings.ListMemberBookings(c.Request().Context(), middleware.MemberID(c), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]BookingResponse, len(list))
	for i, b := range list {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel は自分の予約を取り消す
// @Summary 予約取消
// @Description 座席を解放し、確定済みなら返金する
// @Tags bookings
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.bookings.CancelBooking(c.Request().Context(), c.Param("id"), middleware.MemberID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// CancelByAdmin は任意の予約を取り消す
// @Summary 予約取消（管理者）
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "予約ID"
// @Param request body CancelBookingRequest false "取消理由"
// @Success 200 {object} BookingResponse
// @Router /admin/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelByAdmin(c echo.Context) error {
	var req CancelBookingRequest
	if c.Request().ContentLength > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	b, err := h.bookings.CancelByAdmin(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
