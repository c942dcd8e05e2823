package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
)

// MockBookingService はBookingServiceInterfaceのモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, bookingID, memberID string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) CancelByAdmin(ctx context.Context, bookingID, reason string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, bookingID, memberID string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListMemberBookings(ctx context.Context, memberID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, memberID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

// MockShowtimeService はShowtimeServiceInterfaceのモック
type MockShowtimeService struct {
	mock.Mock
}

func (m *MockShowtimeService) CreateShowtime(ctx context.Context, input application.CreateShowtimeInput) (*showtime.Showtime, []*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*showtime.Showtime), args.Get(1).([]*seat.Seat), args.Error(2)
}

func (m *MockShowtimeService) GetShowtime(ctx context.Context, id string) (*showtime.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*showtime.Showtime), args.Error(1)
}

func (m *MockShowtimeService) ListShowtimes(ctx context.Context, limit, offset int) ([]*showtime.Showtime, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*showtime.Showtime), args.Error(1)
}

func (m *MockShowtimeService) CloseShowtime(ctx context.Context, id string) (*showtime.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*showtime.Showtime), args.Error(1)
}

func (m *MockShowtimeService) GetSeats(ctx context.Context, showtimeID string) ([]application.SeatAvailability, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]application.SeatAvailability), args.Error(1)
}

func (m *MockShowtimeService) CountAvailable(ctx context.Context, showtimeID string) (int, error) {
	args := m.Called(ctx, showtimeID)
	return args.Int(0), args.Error(1)
}

// MockSeatService はSeatServiceInterfaceのモック
type MockSeatService struct {
	mock.Mock
}

func (m *MockSeatService) Availability(ctx context.Context, showtimeID string, labels []string) (*application.AvailabilityReport, error) {
	args := m.Called(ctx, showtimeID, labels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.AvailabilityReport), args.Error(1)
}

func (m *MockSeatService) SetMaintenance(ctx context.Context, showtimeID, label string, on bool) error {
	return m.Called(ctx, showtimeID, label, on).Error(0)
}

// MockDiscountService はDiscountServiceInterfaceのモック
type MockDiscountService struct {
	mock.Mock
}

func (m *MockDiscountService) CreateDiscount(ctx context.Context, input application.CreateDiscountInput) (*discount.Discount, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discount.Discount), args.Error(1)
}

func (m *MockDiscountService) Get(ctx context.Context, code string) (*discount.Discount, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*discount.Discount), args.Error(1)
}

// MockWalletService はWalletServiceInterfaceのモック
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) TopUp(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*wallet.Entry, error) {
	args := m.Called(ctx, accountID, amount.String(), txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Entry), args.Error(1)
}

func (m *MockWalletService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, txID string) ([]*wallet.Entry, error) {
	args := m.Called(ctx, fromID, toID, amount.String(), txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Entry), args.Error(1)
}

func (m *MockWalletService) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockWalletService) History(ctx context.Context, accountID string, limit, offset int) ([]*wallet.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Entry), args.Error(1)
}

func (m *MockWalletService) Account(ctx context.Context, accountID string) (*wallet.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Account), args.Error(1)
}

func (m *MockWalletService) Freeze(ctx context.Context, accountID, reason string) (*wallet.Account, error) {
	args := m.Called(ctx, accountID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Account), args.Error(1)
}

func (m *MockWalletService) Unfreeze(ctx context.Context, accountID string) (*wallet.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Account), args.Error(1)
}

// testServer はモックを差し込んだルーティング済みのEcho
type testServer struct {
	e         *echo.Echo
	bookings  *MockBookingService
	showtimes *MockShowtimeService
	seats     *MockSeatService
	discounts *MockDiscountService
	wallet    *MockWalletService
}

func newTestServer() *testServer {
	s := &testServer{
		e:         NewTestEcho(),
		bookings:  new(MockBookingService),
		showtimes: new(MockShowtimeService),
		seats:     new(MockSeatService),
		discounts: new(MockDiscountService),
		wallet:    new(MockWalletService),
	}
	s.e.Use(middleware.Identity(""))
	RegisterRoutes(s.e, Handlers{
		Health:    NewHealthHandler(nil),
		Bookings:  NewBookingHandler(s.bookings),
		Showtimes: NewShowtimeHandler(s.showtimes, s.seats),
		Wallet:    NewWalletHandler(s.wallet),
		Discounts: NewDiscountHandler(s.discounts),
	})
	return s
}

// do はリクエストを送る。memberID が空なら未認証、role が空なら一般会員
func (s *testServer) do(method, path, body, memberID, role string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if memberID != "" {
		req.Header.Set(middleware.HeaderMemberID, memberID)
	}
	if role != "" {
		req.Header.Set(middleware.HeaderMemberRole, role)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) assertExpectations(t mock.TestingT) {
	s.bookings.AssertExpectations(t)
	s.showtimes.AssertExpectations(t)
	s.seats.AssertExpectations(t)
	s.discounts.AssertExpectations(t)
	s.wallet.AssertExpectations(t)
}
