package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
)

func TestDiscountHandler_Create(t *testing.T) {
	body := `{"code":"SAVE10","name":"10%引き","type":"PERCENT","value":"10","starts_at":"2026-03-01T00:00:00Z","ends_at":"2026-04-01T00:00:00Z","single_use":true}`

	t.Run("割引コードを登録できる", func(t *testing.T) {
		s := newTestServer()
		s.discounts.On("CreateDiscount", mock.Anything, mock.MatchedBy(func(in application.CreateDiscountInput) bool {
			return in.Code == "SAVE10" && in.Type == discount.TypePercent && in.Value.Equal(decimal.NewFromInt(10)) && in.SingleUse
		})).Return(&discount.Discount{
			Code: "SAVE10", Name: "10%引き", Type: discount.TypePercent, Value: decimal.NewFromInt(10),
			StartsAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), EndsAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			SingleUse: true,
		}, nil)

		rec := s.do(http.MethodPost, "/api/v1/admin/discounts", body, "admin-1", middleware.RoleAdmin)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"value":"10.00"`)
		s.assertExpectations(t)
	})

	t.Run("種類が不正なら400", func(t *testing.T) {
		s := newTestServer()
		bad := `{"code":"X","type":"BOGO","value":"1","starts_at":"2026-03-01T00:00:00Z","ends_at":"2026-04-01T00:00:00Z"}`

		rec := s.do(http.MethodPost, "/api/v1/admin/discounts", bad, "admin-1", middleware.RoleAdmin)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("登録済みなら409", func(t *testing.T) {
		s := newTestServer()
		s.discounts.On("CreateDiscount", mock.Anything, mock.Anything).Return(nil, discount.ErrDiscountExists)

		rec := s.do(http.MethodPost, "/api/v1/admin/discounts", body, "admin-1", middleware.RoleAdmin)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDiscountHandler_Get(t *testing.T) {
	s := newTestServer()
	s.discounts.On("Get", mock.Anything, "nope").Return(nil, discount.ErrDiscountNotFound)

	rec := s.do(http.MethodGet, "/api/v1/admin/discounts/nope", "", "admin-1", middleware.RoleAdmin)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "DISCOUNT_NOT_FOUND", decodeError(t, rec).Code)
}
