package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// ShowtimeHandler は上映回と座席のハンドラー
type ShowtimeHandler struct {
	showtimes ShowtimeServiceInterface
	seats     SeatServiceInterface
}

// NewShowtimeHandler はShowtimeHandlerを作成する
func NewShowtimeHandler(showtimes ShowtimeServiceInterface, seats SeatServiceInterface) *ShowtimeHandler {
	return &ShowtimeHandler{showtimes: showtimes, seats: seats}
}

// CreateShowtimeRequest は上映回作成リクエスト
type CreateShowtimeRequest struct {
	MovieTitle  string    `json:"movie_title" validate:"required,max=255"`
	Hall        string    `json:"hall" validate:"required,max=64"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
	Rows        int       `json:"rows" validate:"required,min=1,max=26"`
	SeatsPerRow int       `json:"seats_per_row" validate:"required,min=1,max=100"`
	Price       string    `json:"price" validate:"required"`
}

// CreateShowtimeResponse は上映回作成レスポンス
type CreateShowtimeResponse struct {
	Showtime ShowtimeResponse `json:"showtime"`
	Seats    int              `json:"seats"`
}

// SeatMaintenanceRequest は座席メンテナンス切替リクエスト
type SeatMaintenanceRequest struct {
	Maintenance *bool `json:"maintenance" validate:"required"`
}

// Create は上映回と座席を登録する
// @Summary 上映回作成（管理者）
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateShowtimeRequest true "上映回情報"
// @Success 201 {object} CreateShowtimeResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /admin/showtimes [post]
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var req CreateShowtimeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return apperror.Invalid("価格の形式が不正です")
	}

	st, seats, err := h.showtimes.CreateShowtime(c.Request().Context(), application.CreateShowtimeInput{
		MovieTitle:  req.MovieTitle,
		Hall:        req.Hall,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Rows:        req.Rows,
		SeatsPerRow: req.SeatsPerRow,
		Price:       price,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, CreateShowtimeResponse{Showtime: toShowtimeResponse(st), Seats: len(seats)})
}

// List は上映回を開始時刻順に返す
// @Summary 上映回一覧
// @Tags showtimes
// @Produce json
// @Param limit query int false "取得件数"
// @Param offset query int false "オフセット"
// @Success 200 {array} ShowtimeResponse
// @Router /showtimes [get]
func (h *ShowtimeHandler) List(c echo.Context) error {
	limit, offset, err := paging(c)
	if err != nil {
		return err
	}
	list, err := h.showtimes.ListShowtimes(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]ShowtimeResponse, len(list))
	for i, st := range list {
		resp[i] = toShowtimeResponse(st)
	}
	return c.JSON(http.StatusOK, resp)
}

// Get は上映回と空席数を返す
// @Summary 上映回取得
// @Tags showtimes
// @Produce json
// @Param id path string true "上映回ID"
// @Success 200 {object} ShowtimeResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /showtimes/{id} [get]
func (h *ShowtimeHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := h.showtimes.GetShowtime(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	count, err := h.showtimes.CountAvailable(ctx, st.ID)
	if err != nil {
		return err
	}
	resp := toShowtimeResponse(st)
	resp.AvailableSeats = &count
	return c.JSON(http.StatusOK, resp)
}

// Close は上映回の販売を締め切る
// @Summary 販売締切（管理者）
// @Tags admin
// @Produce json
// @Param id path string true "上映回ID"
// @Success 200 {object} ShowtimeResponse
// @Router /admin/showtimes/{id}/close [post]
func (h *ShowtimeHandler) Close(c echo.Context) error {
	st, err := h.showtimes.CloseShowtime(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShowtimeResponse(st))
}

// Seats は上映回の全座席の状態を返す
// @Summary 座席一覧
// @Tags showtimes
// @Produce json
// @Param id path string true "上映回ID"
// @Success 200 {array} SeatResponse
// @Router /showtimes/{id}/seats [get]
func (h *ShowtimeHandler) Seats(c echo.Context) error {
	seats, err := h.showtimes.GetSeats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatResponses(seats))
}

// Availability は指定座席がすべて空席かを返す
// @Summary 空席確認
// @Tags showtimes
// @Produce json
// @Param id path string true "上映回ID"
// @Param seats query string true "座席ラベル（カンマ区切り）"
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /showtimes/{id}/seats/availability [get]
func (h *ShowtimeHandler) Availability(c echo.Context) error {
	labels := splitLabels(c.QueryParam("seats"))
	if len(labels) == 0 {
		return apperror.Invalid("seats を指定してください")
	}
	report, err := h.seats.Availability(c.Request().Context(), c.Param("id"), labels)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{
		ShowtimeID: report.ShowtimeID,
		Available:  report.AllFree,
		Seats:      toSeatResponses(report.Seats),
	})
}

// SetMaintenance は座席のメンテナンス状態を切り替える
// @Summary 座席メンテナンス（管理者）
// @Tags admin
// @Accept json
// @Param id path string true "上映回ID"
// @Param label path string true "座席ラベル"
// @Param request body SeatMaintenanceRequest true "メンテナンス状態"
// @Success 204
// @Failure 409 {object} api.ErrorResponse
// @Router /admin/showtimes/{id}/seats/{label}/maintenance [put]
func (h *ShowtimeHandler) SetMaintenance(c echo.Context) error {
	var req SeatMaintenanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.seats.SetMaintenance(c.Request().Context(), c.Param("id"), c.Param("label"), *req.Maintenance); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
