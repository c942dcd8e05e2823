package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
)

// BookingServiceInterface は予約コーディネーターのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	CancelBooking(ctx context.Context, bookingID, memberID string) (*booking.Booking, error)
	CancelByAdmin(ctx context.Context, bookingID, reason string) (*booking.Booking, error)
	GetBooking(ctx context.Context, bookingID, memberID string) (*booking.Booking, error)
	ListMemberBookings(ctx context.Context, memberID string, limit, offset int) ([]*booking.Booking, error)
}

// ShowtimeServiceInterface は上映回サービスのインターフェース
type ShowtimeServiceInterface interface {
	CreateShowtime(ctx context.Context, input application.CreateShowtimeInput) (*showtime.Showtime, []*seat.Seat, error)
	GetShowtime(ctx context.Context, id string) (*showtime.Showtime, error)
	ListShowtimes(ctx context.Context, limit, offset int) ([]*showtime.Showtime, error)
	CloseShowtime(ctx context.Context, id string) (*showtime.Showtime, error)
	GetSeats(ctx context.Context, showtimeID string) ([]application.SeatAvailability, error)
	CountAvailable(ctx context.Context, showtimeID string) (int, error)
}

// SeatServiceInterface は座席ロックマネージャーのインターフェース
type SeatServiceInterface interface {
	Availability(ctx context.Context, showtimeID string, labels []string) (*application.AvailabilityReport, error)
	SetMaintenance(ctx context.Context, showtimeID, label string, on bool) error
}

// DiscountServiceInterface は割引コードのインターフェース
type DiscountServiceInterface interface {
	CreateDiscount(ctx context.Context, input application.CreateDiscountInput) (*discount.Discount, error)
	Get(ctx context.Context, code string) (*discount.Discount, error)
}

// WalletServiceInterface はウォレット台帳のインターフェース
type WalletServiceInterface interface {
	TopUp(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*wallet.Entry, error)
	Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, txID string) ([]*wallet.Entry, error)
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]*wallet.Entry, error)
	Account(ctx context.Context, accountID string) (*wallet.Account, error)
	Freeze(ctx context.Context, accountID, reason string) (*wallet.Account, error)
	Unfreeze(ctx context.Context, accountID string) (*wallet.Account, error)
}
