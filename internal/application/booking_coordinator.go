package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/saga"
)

const sweepBatchSize = 500

// EventPublisher は予約イベントの通知先
type EventPublisher interface {
	Publish(ctx context.Context, e booking.Event) error
}

// CoordinatorConfig は予約処理の設定
type CoordinatorConfig struct {
	HoldTTL             time.Duration
	RefundableDiscounts bool
	SalesCutoff         time.Duration
}

// CoordinatorDeps は BookingCoordinator の依存
// Publisher と Metrics は省略できる
type CoordinatorDeps struct {
	Bookings  booking.Repository
	Showtimes showtime.Repository
	Seats     *SeatLockManager
	Discounts *DiscountTracker
	Wallet    *WalletLedger
	Locker    Locker
	Clock     clock.Clock
	Publisher EventPublisher
	Metrics   *metrics.Metrics
}

// BookingCoordinator は座席・割引・ウォレットをまたぐ予約のサガを実行する
// 予約のライフサイクル操作は member:<id> のロック下で行い、他のロックはその内側で取る
type BookingCoordinator struct {
	bookings  booking.Repository
	showtimes showtime.Repository
	seats     *SeatLockManager
	discounts *DiscountTracker
	wallet    *WalletLedger
	locker    Locker
	clock     clock.Clock
	publisher EventPublisher
	metrics   *metrics.Metrics
	runner    *saga.Runner
	cfg       CoordinatorConfig
}

func NewBookingCoordinator(d CoordinatorDeps, cfg CoordinatorConfig) *BookingCoordinator {
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 10 * time.Minute
	}
	m := orNoop(d.Metrics)
	runner := saga.NewRunner(
		saga.WithLogger(logger.Named("saga")),
		saga.WithCompensationHook(func(step string, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.SagaCompensationsTotal.WithLabelValues(step, result).Inc()
		}),
	)
	return &BookingCoordinator{
		bookings:  d.Bookings,
		showtimes: d.Showtimes,
		seats:     d.Seats,
		discounts: d.Discounts,
		wallet:    d.Wallet,
		locker:    d.Locker,
		clock:     d.Clock,
		publisher: d.Publisher,
		metrics:   m,
		runner:    runner,
		cfg:       cfg,
	}
}

// CreateBookingInput は予約作成の入力
// RequestKey は会員ごとに一意で、同じキーの再送は同じ予約を返す
type CreateBookingInput struct {
	MemberID     string
	ShowtimeID   string
	SeatLabels   []string
	DiscountCode string
	RequestKey   string
}

// CreateBooking は 座席確保 → 予約保存 → 割引確保 → 決済 → 確定 の順に実行する
// 途中で失敗した場合は完了済みの手順を逆順に補償し、保存済みの予約は CANCELLED にする
func (c *BookingCoordinator) CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error) {
	if in.MemberID == "" {
		return nil, booking.ErrMemberIDRequired
	}
	if in.ShowtimeID == "" {
		return nil, booking.ErrShowtimeIDRequired
	}
	if strings.TrimSpace(in.RequestKey) == "" {
		return nil, apperror.Invalid("リクエストキーは必須です")
	}
	labels, err := normalizeLabels(in.SeatLabels)
	if err != nil {
		return nil, err
	}

	id := booking.DeriveID(in.MemberID, in.RequestKey)
	unlock, err := c.lockMember(ctx, in.MemberID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 冪等性チェック
	existing, err := c.bookings.GetByID(ctx, id)
	if err == nil {
		c.metrics.BookingsTotal.WithLabelValues("replayed").Inc()
		return existing, nil
	}
	if !errors.Is(err, booking.ErrBookingNotFound) {
		return nil, apperror.System(fmt.Errorf("冪等性チェックに失敗: %w", err))
	}

	st, err := c.showtimes.GetByID(ctx, in.ShowtimeID)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()
	if !st.IsOpenForSale(now, c.cfg.SalesCutoff) {
		c.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, showtime.ErrNotOpenForSale
	}
	if err := c.checkMemberSchedule(ctx, in.MemberID, st, labels, now); err != nil {
		c.metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	b := booking.NewBooking(id, in.MemberID, st.ID, labels, in.RequestKey, now)
	b.DiscountCode = discount.NormalizeCode(in.DiscountCode)
	if err := b.Validate(); err != nil {
		return nil, err
	}

	log := logger.With(zap.String("booking_id", b.ID), zap.String("member_id", b.MemberID))
	created := false
	steps := []saga.Step{
		{
			Name: "hold_seats",
			Action: func(ctx context.Context) error {
				h, err := c.seats.Hold(ctx, st.ID, labels, in.MemberID, c.cfg.HoldTTL)
				if err != nil {
					return err
				}
				b.HoldToken = h.Token
				b.HoldExpiresAt = h.ExpiresAt
				b.ListAmount = h.Amount
				b.TotalAmount = h.Amount
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return c.releaseSeats(ctx, b)
			},
		},
		{
			Name: "create_booking",
			Action: func(ctx context.Context) error {
				if err := c.bookings.Create(ctx, b); err != nil {
					return err
				}
				created = true
				return nil
			},
		},
		{
			Name: "reserve_discount",
			Action: func(ctx context.Context) error {
				if b.DiscountCode == "" {
					return nil
				}
				r, d, err := c.discounts.Reserve(ctx, b.DiscountCode, b.MemberID, b.ID)
				if err != nil {
					return err
				}
				b.RedemptionID = r.ID
				b.DiscountAmount = c.discounts.Quote(d, b.ListAmount)
				b.TotalAmount = b.ListAmount.Sub(b.DiscountAmount)
				b.UpdatedAt = c.clock.Now()
				return c.bookings.Update(ctx, b)
			},
			Compensate: func(ctx context.Context) error {
				if b.RedemptionID == "" {
					return nil
				}
				return c.discounts.Void(ctx, b.RedemptionID)
			},
		},
		{
			Name: "debit_wallet",
			Action: func(ctx context.Context) error {
				if !b.TotalAmount.IsPositive() {
					return nil
				}
				_, err := c.wallet.Debit(ctx, b.MemberID, b.TotalAmount, b.PaymentTxID, wallet.KindBookingDebit)
				return err
			},
			Compensate: func(ctx context.Context) error {
				return c.reverseDebit(ctx, b, "booking saga rollback", false)
			},
		},
		{
			Name: "finalize",
			Action: func(ctx context.Context) error {
				return c.finalize(ctx, b)
			},
		},
	}

	if err := c.runner.Run(ctx, "create_booking", steps); err != nil {
		if created {
			c.closeFailed(ctx, b, err)
		}
		c.metrics.BookingsTotal.WithLabelValues("failed").Inc()
		log.Warn("予約に失敗しました", zap.Error(err))
		return nil, failure(err)
	}

	c.metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
	log.Info("予約を確定しました",
		zap.String("showtime_id", b.ShowtimeID),
		zap.Strings("seats", b.SeatLabels),
		zap.String("total", b.TotalAmount.StringFixed(2)),
	)
	return b, nil
}

// CancelBooking は会員自身の予約を取り消す
func (c *BookingCoordinator) CancelBooking(ctx context.Context, bookingID, memberID string) (*booking.Booking, error) {
	if memberID == "" {
		return nil, booking.ErrMemberIDRequired
	}
	unlock, err := c.lockMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(memberID) {
		return nil, booking.ErrBookingNotOwned
	}
	return c.cancel(ctx, b, "cancelled by member")
}

// CancelByAdmin は管理者として任意の予約を取り消す
func (c *BookingCoordinator) CancelByAdmin(ctx context.Context, bookingID, reason string) (*booking.Booking, error) {
	b, err := c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	unlock, err := c.lockMember(ctx, b.MemberID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err = c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "cancelled by admin"
	}
	return c.cancel(ctx, b, reason)
}

// cancel は予約の効果を取り消してから CANCELLED にする
// 各手順は冪等で、予約の更新を最後に行うため途中で失敗しても再実行できる
func (c *BookingCoordinator) cancel(ctx context.Context, b *booking.Booking, reason string) (*booking.Booking, error) {
	switch b.Status {
	case booking.StatusCancelled:
		return nil, booking.ErrBookingAlreadyCancelled
	case booking.StatusExpired:
		return nil, booking.ErrBookingExpired
	case booking.StatusPendingPayment:
		if err := c.unwind(ctx, b, reason); err != nil {
			return nil, failure(err)
		}
	case booking.StatusConfirmed:
		if err := c.reverseDebit(ctx, b, reason, true); err != nil {
			return nil, failure(err)
		}
		if err := c.seats.ReleaseBooked(ctx, b.ShowtimeID, b.SeatLabels, b.HoldToken); err != nil {
			return nil, failure(err)
		}
		if c.cfg.RefundableDiscounts && b.RedemptionID != "" {
			if err := c.discounts.Refund(ctx, b.RedemptionID); err != nil {
				return nil, failure(err)
			}
		}
	}

	if err := b.Cancel(reason, c.clock.Now()); err != nil {
		return nil, err
	}
	if err := c.bookings.Update(ctx, b); err != nil {
		return nil, failure(err)
	}
	c.metrics.BookingsTotal.WithLabelValues("cancelled").Inc()
	logger.Info("予約を取り消しました", zap.String("booking_id", b.ID), zap.String("reason", reason))
	c.publish(ctx, booking.EventCancelled, b)
	return b, nil
}

// Recover は決済済みのまま支払い待ちで残った予約を確定処理から再開する
// 再度の引き落としは行わない。確定できなければ決済を取り消して CANCELLED にする
func (c *BookingCoordinator) Recover(ctx context.Context) (int, error) {
	pending, err := c.bookings.ListPendingPayment(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		ok, err := c.recoverOne(ctx, p.ID, p.MemberID)
		if err != nil {
			logger.Error("予約の復旧に失敗しました", zap.String("booking_id", p.ID), zap.Error(err))
			continue
		}
		if ok {
			recovered++
		}
	}
	return recovered, nil
}

func (c *BookingCoordinator) recoverOne(ctx context.Context, id, memberID string) (bool, error) {
	unlock, err := c.lockMember(ctx, memberID)
	if err != nil {
		return false, err
	}
	defer unlock()

	b, err := c.bookings.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if b.Status != booking.StatusPendingPayment || b.IsHoldExpired(c.clock.Now()) {
		return false, nil
	}
	ready, err := c.paymentSettled(ctx, b)
	if err != nil || !ready {
		return false, err
	}

	if err := c.finalize(ctx, b); err != nil {
		logger.Warn("復旧時の確定に失敗、取り消します", zap.String("booking_id", b.ID), zap.Error(err))
		cctx := context.WithoutCancel(ctx)
		reason := "recovery: " + failureCode(err)
		if uerr := c.unwind(cctx, b, reason); uerr != nil {
			return false, errors.Join(err, uerr)
		}
		c.closeFailed(cctx, b, err)
		return false, nil
	}
	logger.Info("予約を復旧しました", zap.String("booking_id", b.ID))
	return true, nil
}

// ExpireStale は支払い期限を過ぎた支払い待ちの予約を EXPIRED にする
func (c *BookingCoordinator) ExpireStale(ctx context.Context) (int, error) {
	pending, err := c.bookings.ListPendingPayment(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if !p.IsHoldExpired(c.clock.Now()) {
			continue
		}
		ok, err := c.expireOne(ctx, p.ID, p.MemberID)
		if err != nil {
			logger.Error("予約の期限切れ処理に失敗しました", zap.String("booking_id", p.ID), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (c *BookingCoordinator) expireOne(ctx context.Context, id, memberID string) (bool, error) {
	unlock, err := c.lockMember(ctx, memberID)
	if err != nil {
		return false, err
	}
	defer unlock()

	b, err := c.bookings.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	now := c.clock.Now()
	if b.Status != booking.StatusPendingPayment || !b.IsHoldExpired(now) {
		return false, nil
	}
	if err := c.unwind(ctx, b, "hold expired"); err != nil {
		return false, err
	}
	if err := b.Expire(now); err != nil {
		return false, err
	}
	if err := c.bookings.Update(ctx, b); err != nil {
		return false, err
	}
	c.metrics.ExpiredTotal.WithLabelValues("booking").Inc()
	c.metrics.BookingsTotal.WithLabelValues("expired").Inc()
	return true, nil
}

// GetBooking は会員自身の予約を取得する
func (c *BookingCoordinator) GetBooking(ctx context.Context, bookingID, memberID string) (*booking.Booking, error) {
	b, err := c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.OwnedBy(memberID) {
		return nil, booking.ErrBookingNotOwned
	}
	return b, nil
}

// ListMemberBookings は会員の予約一覧を取得する
func (c *BookingCoordinator) ListMemberBookings(ctx context.Context, memberID string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return c.bookings.ListByMember(ctx, memberID, limit, offset)
}

// finalize は座席を確定し、割引を確定してから予約を CONFIRMED にする
func (c *BookingCoordinator) finalize(ctx context.Context, b *booking.Booking) error {
	if err := c.seats.Confirm(ctx, holdOf(b)); err != nil {
		return err
	}
	if b.RedemptionID != "" {
		if err := c.discounts.Commit(ctx, b.RedemptionID); err != nil {
			return err
		}
	}
	if err := b.Confirm(c.clock.Now()); err != nil {
		return err
	}
	if err := c.bookings.Update(ctx, b); err != nil {
		return err
	}
	c.publish(ctx, booking.EventConfirmed, b)
	return nil
}

// unwind は支払い待ちの予約が持つ決済・割引・座席を解放する
func (c *BookingCoordinator) unwind(ctx context.Context, b *booking.Booking, reason string) error {
	if err := c.reverseDebit(ctx, b, reason, false); err != nil {
		return err
	}
	if b.RedemptionID != "" {
		if err := c.discounts.Void(ctx, b.RedemptionID); err != nil {
			return err
		}
	}
	return c.releaseSeats(ctx, b)
}

// reverseDebit は予約の決済が記帳されていれば取り消す。refund なら返金として記帳する
func (c *BookingCoordinator) reverseDebit(ctx context.Context, b *booking.Booking, reason string, refund bool) error {
	entries, err := c.wallet.EntriesByTx(ctx, b.PaymentTxID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if refund {
		_, err = c.wallet.Refund(ctx, b.PaymentTxID, reason)
	} else {
		_, err = c.wallet.Reverse(ctx, b.PaymentTxID, reason)
	}
	return err
}

// releaseSeats は予約の確保トークンを持つ座席を確保中・予約済みのどちらでも空席に戻す
func (c *BookingCoordinator) releaseSeats(ctx context.Context, b *booking.Booking) error {
	if b.HoldToken == "" {
		return nil
	}
	if err := c.seats.Release(ctx, holdOf(b)); err != nil {
		return err
	}
	return c.seats.ReleaseBooked(ctx, b.ShowtimeID, b.SeatLabels, b.HoldToken)
}

// paymentSettled は確定処理に進める状態かを返す
func (c *BookingCoordinator) paymentSettled(ctx context.Context, b *booking.Booking) (bool, error) {
	if b.DiscountCode != "" && b.RedemptionID == "" {
		return false, nil
	}
	if !b.TotalAmount.IsPositive() {
		return true, nil
	}
	entries, err := c.wallet.EntriesByTx(ctx, b.PaymentTxID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Status == wallet.EntryCommitted && e.Kind == wallet.KindBookingDebit {
			return true, nil
		}
	}
	return false, nil
}

// checkMemberSchedule は会員の有効な予約と時間帯・座席が重ならないか確認する
func (c *BookingCoordinator) checkMemberSchedule(ctx context.Context, memberID string, st *showtime.Showtime, labels []string, now time.Time) error {
	live, err := c.bookings.ListActiveByMember(ctx, memberID)
	if err != nil {
		return err
	}
	for _, other := range live {
		if !other.IsLive(now) {
			continue
		}
		if other.ShowtimeID == st.ID {
			if l, ok := intersect(other.SeatLabels, labels); ok {
				return seat.ErrSeatAlreadyHeld.WithMessage("座席 %s は別の予約で確保済みです", l)
			}
			continue
		}
		ost, err := c.showtimes.GetByID(ctx, other.ShowtimeID)
		if err != nil {
			if errors.Is(err, showtime.ErrShowtimeNotFound) {
				continue
			}
			return err
		}
		if st.Overlaps(ost) {
			return booking.ErrScheduleConflict
		}
	}
	return nil
}

// closeFailed はサガ失敗後に保存済みの予約を失敗理由付きで CANCELLED にする
func (c *BookingCoordinator) closeFailed(ctx context.Context, b *booking.Booking, cause error) {
	cctx := context.WithoutCancel(ctx)
	reason := failureCode(cause)
	var se *saga.StepError
	if errors.As(cause, &se) {
		reason = se.Step + ": " + reason
	}
	if err := b.Cancel(reason, c.clock.Now()); err != nil {
		return
	}
	if err := c.bookings.Update(cctx, b); err != nil {
		logger.Error("失敗した予約の更新に失敗しました", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func (c *BookingCoordinator) publish(ctx context.Context, t booking.EventType, b *booking.Booking) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, booking.NewEvent(t, b, c.clock.Now())); err != nil {
		logger.Warn("イベント送信に失敗しました", zap.String("event", string(t)), zap.String("booking_id", b.ID), zap.Error(err))
	}
}

func (c *BookingCoordinator) lockMember(ctx context.Context, memberID string) (func(), error) {
	unlock, err := c.locker.Lock(ctx, booking.MemberKey(memberID))
	if err != nil {
		return nil, apperror.System(fmt.Errorf("会員ロック取得に失敗: %w", err))
	}
	return unlock, nil
}

func holdOf(b *booking.Booking) *seat.Hold {
	return &seat.Hold{
		Token:      b.HoldToken,
		ShowtimeID: b.ShowtimeID,
		Labels:     b.SeatLabels,
		HolderID:   b.MemberID,
		ExpiresAt:  b.HoldExpiresAt,
		Amount:     b.ListAmount,
	}
}

// failure は業務エラーをそのまま返し、それ以外をシステムエラーに包む
func failure(err error) error {
	if _, ok := apperror.From(err); ok {
		return err
	}
	return apperror.System(err)
}

func failureCode(err error) string {
	if ae, ok := apperror.From(err); ok {
		return ae.Code
	}
	return apperror.ErrInternal.Code
}

func intersect(a, b []string) (string, bool) {
	set := make(map[string]struct{}, len(a))
	for _, l := range a {
		set[l] = struct{}{}
	}
	for _, l := range b {
		if _, ok := set[l]; ok {
			return l, true
		}
	}
	return "", false
}
