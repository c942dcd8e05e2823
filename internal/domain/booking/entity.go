package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCancelled      Status = "CANCELLED"
	StatusExpired        Status = "EXPIRED"
)

// 予約IDを導出する名前空間
var idNamespace = uuid.MustParse("6f1c2a4e-9b7d-4c3e-8a51-2d0f6e9b7c14")

// Booking は予約エンティティを表す
type Booking struct {
	ID             string
	MemberID       string
	ShowtimeID     string
	SeatLabels     []string
	Status         Status
	RequestKey     string
	HoldToken      string
	HoldExpiresAt  time.Time
	DiscountCode   string
	RedemptionID   string
	ListAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentTxID    string
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ConfirmedAt    *time.Time
	ClosedAt       *time.Time
}

// DeriveID は会員とリクエストキーから予約IDを決定的に導出する
func DeriveID(memberID, requestKey string) string {
	return uuid.NewSHA1(idNamespace, []byte(memberID+"\x00"+requestKey)).String()
}

// PaymentTxID は予約の決済に使う取引IDを返す
func PaymentTxID(bookingID string) string {
	return "booking:" + bookingID
}

// MemberKey は会員単位のロックキーを返す
func MemberKey(memberID string) string {
	return "member:" + memberID
}

// NewBooking は支払い待ちの予約を作成する
func NewBooking(id, memberID, showtimeID string, labels []string, requestKey string, now time.Time) *Booking {
	seats := make([]string, len(labels))
	copy(seats, labels)
	return &Booking{
		ID:             id,
		MemberID:       memberID,
		ShowtimeID:     showtimeID,
		SeatLabels:     seats,
		Status:         StatusPendingPayment,
		RequestKey:     requestKey,
		ListAmount:     decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    decimal.Zero,
		PaymentTxID:    PaymentTxID(id),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.MemberID == "" {
		return ErrMemberIDRequired
	}
	if b.ShowtimeID == "" {
		return ErrShowtimeIDRequired
	}
	if len(b.SeatLabels) == 0 {
		return ErrSeatsRequired
	}
	seen := make(map[string]struct{}, len(b.SeatLabels))
	for _, l := range b.SeatLabels {
		if l == "" {
			return ErrSeatsRequired
		}
		if _, ok := seen[l]; ok {
			return ErrDuplicateSeat
		}
		seen[l] = struct{}{}
	}
	return nil
}

// IsFinal はこれ以上遷移しない状態かを返す
func (b *Booking) IsFinal() bool {
	return b.Status == StatusCancelled || b.Status == StatusExpired
}

// IsLive は座席を占有している予約かを返す
func (b *Booking) IsLive(now time.Time) bool {
	switch b.Status {
	case StatusConfirmed:
		return true
	case StatusPendingPayment:
		return !b.IsHoldExpired(now)
	}
	return false
}

// IsHoldExpired は支払い期限を過ぎているかを返す
func (b *Booking) IsHoldExpired(now time.Time) bool {
	return !b.HoldExpiresAt.IsZero() && !now.Before(b.HoldExpiresAt)
}

// OwnedBy は会員の予約かを返す
func (b *Booking) OwnedBy(memberID string) bool {
	return b.MemberID == memberID
}

// Confirm は決済完了後に予約を確定する
func (b *Booking) Confirm(now time.Time) error {
	switch b.Status {
	case StatusConfirmed:
		return nil
	case StatusPendingPayment:
		b.Status = StatusConfirmed
		b.ConfirmedAt = &now
		b.UpdatedAt = now
		return nil
	case StatusExpired:
		return ErrBookingExpired
	default:
		return ErrBookingAlreadyCancelled
	}
}

// Expire は支払い待ちの予約を期限切れにする
func (b *Booking) Expire(now time.Time) error {
	switch b.Status {
	case StatusPendingPayment:
		b.Status = StatusExpired
		b.ClosedAt = &now
		b.UpdatedAt = now
		return nil
	case StatusExpired:
		return ErrBookingExpired
	case StatusCancelled:
		return ErrBookingAlreadyCancelled
	default:
		return ErrInvalidTransition
	}
}

// Cancel は予約を取り消す
func (b *Booking) Cancel(reason string, now time.Time) error {
	switch b.Status {
	case StatusPendingPayment, StatusConfirmed:
		b.Status = StatusCancelled
		b.FailureReason = reason
		b.ClosedAt = &now
		b.UpdatedAt = now
		return nil
	case StatusExpired:
		return ErrBookingExpired
	default:
		return ErrBookingAlreadyCancelled
	}
}

// Clone はコピーを返す
func (b *Booking) Clone() *Booking {
	c := *b
	c.SeatLabels = append([]string(nil), b.SeatLabels...)
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if b.ClosedAt != nil {
		t := *b.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
