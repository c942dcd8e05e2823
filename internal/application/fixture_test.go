package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
	"github.com/sanosuguru/go-citizen-card-booking/internal/infrastructure/memory"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/keylock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// fixture はメモリ実装で組み立てたサービス一式
type fixture struct {
	clock     *clock.Fake
	locker    *keylock.KeyedMutex
	metrics   *metrics.Metrics
	showtimes *memory.ShowtimeRepository
	seatRepo  *memory.SeatRepository
	discRepo  *memory.DiscountRepository
	walletRep *memory.WalletRepository
	bookings  *memory.BookingRepository

	seats       *SeatLockManager
	discounts   *DiscountTracker
	wallet      *WalletLedger
	coordinator *BookingCoordinator
	publisher   *recordingPublisher
}

type fixtureOption func(*SpendPolicy, *CoordinatorConfig)

func withSpendLimit(limit string) fixtureOption {
	return func(p *SpendPolicy, _ *CoordinatorConfig) {
		p.Limit = decimal.RequireFromString(limit)
	}
}

func withRefundableDiscounts() fixtureOption {
	return func(_ *SpendPolicy, c *CoordinatorConfig) {
		c.RefundableDiscounts = true
	}
}

func newFixture(t testing.TB, opts ...fixtureOption) *fixture {
	t.Helper()

	policy := SpendPolicy{Window: 24 * time.Hour}
	cfg := CoordinatorConfig{HoldTTL: 10 * time.Minute}
	for _, opt := range opts {
		opt(&policy, &cfg)
	}

	f := &fixture{
		clock:     clock.NewFake(baseTime),
		locker:    keylock.New(),
		metrics:   metrics.NewNoop(),
		showtimes: memory.NewShowtimeRepository(),
		seatRepo:  memory.NewSeatRepository(),
		discRepo:  memory.NewDiscountRepository(),
		walletRep: memory.NewWalletRepository(),
		bookings:  memory.NewBookingRepository(),
		publisher: &recordingPublisher{},
	}
	f.seats = NewSeatLockManager(f.seatRepo, f.locker, f.clock, nil, f.metrics)
	f.discounts = NewDiscountTracker(f.discRepo, f.locker, f.clock)
	f.wallet = NewWalletLedger(f.walletRep, f.locker, f.clock, policy, f.metrics)
	f.coordinator = NewBookingCoordinator(CoordinatorDeps{
		Bookings:  f.bookings,
		Showtimes: f.showtimes,
		Seats:     f.seats,
		Discounts: f.discounts,
		Wallet:    f.wallet,
		Locker:    f.locker,
		Clock:     f.clock,
		Publisher: f.publisher,
		Metrics:   f.metrics,
	}, cfg)
	return f
}

// addShowtime は開始が start 時間後の上映回と座席を登録する
func (f *fixture) addShowtime(t testing.TB, id string, start time.Duration, price string, labels ...string) *showtime.Showtime {
	t.Helper()
	ctx := context.Background()
	now := f.clock.Now()
	st := showtime.NewShowtime(id, "映画 "+id, "Hall 1", now.Add(start), now.Add(start+2*time.Hour), now)
	require.NoError(t, f.showtimes.Create(ctx, st))

	seats := make([]*seat.Seat, 0, len(labels))
	for _, l := range labels {
		seats = append(seats, seat.NewSeat(id, l, decimal.RequireFromString(price), now))
	}
	require.NoError(t, f.seatRepo.CreateBulk(ctx, seats))
	return st
}

func (f *fixture) addDiscount(t testing.TB, code string, typ discount.Type, value string, singleUse bool, quantity int) {
	t.Helper()
	_, err := f.discounts.CreateDiscount(context.Background(), CreateDiscountInput{
		Code:      code,
		Name:      code,
		Type:      typ,
		Value:     decimal.RequireFromString(value),
		StartsAt:  f.clock.Now().Add(-time.Hour),
		EndsAt:    f.clock.Now().Add(30 * 24 * time.Hour),
		SingleUse: singleUse,
		Quantity:  quantity,
	})
	require.NoError(t, err)
}

func (f *fixture) topUp(t testing.TB, member, amount string) {
	t.Helper()
	_, err := f.wallet.TopUp(context.Background(), member, decimal.RequireFromString(amount), "topup:"+uuid.NewString())
	require.NoError(t, err)
}

func (f *fixture) balance(t testing.TB, member string) string {
	t.Helper()
	b, err := f.wallet.Balance(context.Background(), member)
	require.NoError(t, err)
	return b.StringFixed(2)
}

func (f *fixture) seatStatus(t testing.TB, showtimeID, label string) seat.Status {
	t.Helper()
	seats, err := f.seatRepo.GetMany(context.Background(), showtimeID, []string{label})
	require.NoError(t, err)
	return seats[0].EffectiveStatus(f.clock.Now())
}
