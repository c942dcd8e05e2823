package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
)

func testShowtime() *showtime.Showtime {
	return &showtime.Showtime{
		ID:         "st-1",
		MovieTitle: "テスト上映",
		Hall:       "1",
		StartsAt:   testNow.Add(24 * time.Hour),
		EndsAt:     testNow.Add(26 * time.Hour),
		Status:     showtime.StatusOpen,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
}

func TestShowtimeHandler_Get(t *testing.T) {
	t.Run("空席数を含めて返す", func(t *testing.T) {
		s := newTestServer()
		s.showtimes.On("GetShowtime", mock.Anything, "st-1").Return(testShowtime(), nil)
		s.showtimes.On("CountAvailable", mock.Anything, "st-1").Return(42, nil)

		rec := s.do(http.MethodGet, "/api/v1/showtimes/st-1", "", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ShowtimeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "テスト上映", resp.MovieTitle)
		require.NotNil(t, resp.AvailableSeats)
		assert.Equal(t, 42, *resp.AvailableSeats)
		s.assertExpectations(t)
	})

	t.Run("存在しなければ404", func(t *testing.T) {
		s := newTestServer()
		s.showtimes.On("GetShowtime", mock.Anything, "missing").Return(nil, showtime.ErrShowtimeNotFound)

		rec := s.do(http.MethodGet, "/api/v1/showtimes/missing", "", "", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "SHOWTIME_NOT_FOUND", decodeError(t, rec).Code)
	})
}

func TestShowtimeHandler_List(t *testing.T) {
	s := newTestServer()
	s.showtimes.On("ListShowtimes", mock.Anything, 0, 0).Return([]*showtime.Showtime{testShowtime()}, nil)

	rec := s.do(http.MethodGet, "/api/v1/showtimes", "", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []ShowtimeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Nil(t, resp[0].AvailableSeats)
	s.assertExpectations(t)
}

func TestShowtimeHandler_Seats(t *testing.T) {
	s := newTestServer()
	s.showtimes.On("GetSeats", mock.Anything, "st-1").Return([]application.SeatAvailability{
		{Label: "A1", Status: seat.StatusFree, Price: decimal.NewFromInt(1500)},
		{Label: "A2", Status: seat.StatusHeld, Price: decimal.NewFromInt(1500)},
	}, nil)

	rec := s.do(http.MethodGet, "/api/v1/showtimes/st-1/seats", "", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []SeatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []SeatResponse{
		{Label: "A1", Status: "FREE", Price: "1500.00"},
		{Label: "A2", Status: "HELD", Price: "1500.00"},
	}, resp)
}

func TestShowtimeHandler_Availability(t *testing.T) {
	t.Run("カンマ区切りの座席を確認する", func(t *testing.T) {
		s := newTestServer()
		s.seats.On("Availability", mock.Anything, "st-1", []string{"A1", "A2"}).Return(&application.AvailabilityReport{
			ShowtimeID: "st-1",
			AllFree:    false,
			Seats: []application.SeatAvailability{
				{Label: "A1", Status: seat.StatusFree, Price: decimal.NewFromInt(1500)},
				{Label: "A2", Status: seat.StatusBooked, Price: decimal.NewFromInt(1500)},
			},
		}, nil)

		rec := s.do(http.MethodGet, "/api/v1/showtimes/st-1/seats/availability?seats=A1,%20A2", "", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp AvailabilityResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Available)
		assert.Len(t, resp.Seats, 2)
		s.assertExpectations(t)
	})

	t.Run("座席の指定がなければ400", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodGet, "/api/v1/showtimes/st-1/seats/availability?seats=,", "", "", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestShowtimeHandler_Create(t *testing.T) {
	body := `{"movie_title":"テスト上映","hall":"1","starts_at":"2026-03-02T10:00:00Z","ends_at":"2026-03-02T12:00:00Z","rows":2,"seats_per_row":3,"price":"1500"}`

	t.Run("管理者は上映回を作成できる", func(t *testing.T) {
		s := newTestServer()
		s.showtimes.On("CreateShowtime", mock.Anything, mock.MatchedBy(func(in application.CreateShowtimeInput) bool {
			return in.Rows == 2 && in.SeatsPerRow == 3 && in.Price.Equal(decimal.NewFromInt(1500)) &&
				in.StartsAt.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
		})).Return(testShowtime(), make([]*seat.Seat, 6), nil)

		rec := s.do(http.MethodPost, "/api/v1/admin/showtimes", body, "admin-1", middleware.RoleAdmin)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp CreateShowtimeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 6, resp.Seats)
		s.assertExpectations(t)
	})

	t.Run("価格の形式が不正なら400", func(t *testing.T) {
		s := newTestServer()
		bad := `{"movie_title":"x","hall":"1","starts_at":"2026-03-02T10:00:00Z","ends_at":"2026-03-02T12:00:00Z","rows":1,"seats_per_row":1,"price":"abc"}`

		rec := s.do(http.MethodPost, "/api/v1/admin/showtimes", bad, "admin-1", middleware.RoleAdmin)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("未認証なら401", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodPost, "/api/v1/admin/showtimes", body, "", "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestShowtimeHandler_SetMaintenance(t *testing.T) {
	t.Run("メンテナンスに切り替えて204", func(t *testing.T) {
		s := newTestServer()
		s.seats.On("SetMaintenance", mock.Anything, "st-1", "A1", true).Return(nil)

		rec := s.do(http.MethodPut, "/api/v1/admin/showtimes/st-1/seats/A1/maintenance", `{"maintenance":true}`, "admin-1", middleware.RoleAdmin)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		s.assertExpectations(t)
	})

	t.Run("確保中の座席は409", func(t *testing.T) {
		s := newTestServer()
		s.seats.On("SetMaintenance", mock.Anything, "st-1", "A1", true).Return(seat.ErrSeatNotFree)

		rec := s.do(http.MethodPut, "/api/v1/admin/showtimes/st-1/seats/A1/maintenance", `{"maintenance":true}`, "admin-1", middleware.RoleAdmin)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("maintenanceがなければ400", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodPut, "/api/v1/admin/showtimes/st-1/seats/A1/maintenance", `{}`, "admin-1", middleware.RoleAdmin)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestShowtimeHandler_Close(t *testing.T) {
	s := newTestServer()
	closed := testShowtime()
	closed.Status = showtime.StatusClosed
	s.showtimes.On("CloseShowtime", mock.Anything, "st-1").Return(closed, nil)

	rec := s.do(http.MethodPost, "/api/v1/admin/showtimes/st-1/close", "", "admin-1", middleware.RoleAdmin)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"closed"`)
}
