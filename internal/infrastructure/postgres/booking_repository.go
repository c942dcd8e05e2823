package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
)

const bookingColumns = `id, member_id, showtime_id, seat_labels, status, request_key, hold_token, hold_expires_at,
	discount_code, redemption_id, list_amount, discount_amount, total_amount, payment_tx_id, failure_reason,
	created_at, updated_at, confirmed_at, closed_at`

type bookingRow struct {
	ID             string          `db:"id"`
	MemberID       string          `db:"member_id"`
	ShowtimeID     string          `db:"showtime_id"`
	SeatLabels     pq.StringArray  `db:"seat_labels"`
	Status         string          `db:"status"`
	RequestKey     string          `db:"request_key"`
	HoldToken      string          `db:"hold_token"`
	HoldExpiresAt  *time.Time      `db:"hold_expires_at"`
	DiscountCode   string          `db:"discount_code"`
	RedemptionID   string          `db:"redemption_id"`
	ListAmount     decimal.Decimal `db:"list_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	PaymentTxID    string          `db:"payment_tx_id"`
	FailureReason  string          `db:"failure_reason"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	ConfirmedAt    *time.Time      `db:"confirmed_at"`
	ClosedAt       *time.Time      `db:"closed_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	b := &booking.Booking{
		ID: r.ID, MemberID: r.MemberID, ShowtimeID: r.ShowtimeID,
		SeatLabels: []string(r.SeatLabels), Status: booking.Status(r.Status), RequestKey: r.RequestKey,
		HoldToken: r.HoldToken, DiscountCode: r.DiscountCode, RedemptionID: r.RedemptionID,
		ListAmount: r.ListAmount, DiscountAmount: r.DiscountAmount, TotalAmount: r.TotalAmount,
		PaymentTxID: r.PaymentTxID, FailureReason: r.FailureReason,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, ConfirmedAt: r.ConfirmedAt, ClosedAt: r.ClosedAt,
	}
	if r.HoldExpiresAt != nil {
		b.HoldExpiresAt = *r.HoldExpiresAt
	}
	return b
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository { return &BookingRepository{db: db} }

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.MemberID, b.ShowtimeID, pq.Array(b.SeatLabels), string(b.Status), b.RequestKey,
		b.HoldToken, nullableTime(b.HoldExpiresAt), b.DiscountCode, b.RedemptionID,
		b.ListAmount, b.DiscountAmount, b.TotalAmount, b.PaymentTxID, b.FailureReason,
		b.CreatedAt, b.UpdatedAt, b.ConfirmedAt, b.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return booking.ErrBookingExists
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	var row bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	query := `UPDATE bookings SET status = $1, hold_token = $2, hold_expires_at = $3, discount_code = $4,
		redemption_id = $5, list_amount = $6, discount_amount = $7, total_amount = $8, failure_reason = $9,
		updated_at = $10, confirmed_at = $11, closed_at = $12
		WHERE id = $13`
	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		string(b.Status), b.HoldToken, nullableTime(b.HoldExpiresAt), b.DiscountCode,
		b.RedemptionID, b.ListAmount, b.DiscountAmount, b.TotalAmount, b.FailureReason,
		b.UpdatedAt, b.ConfirmedAt, b.ClosedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) ListByMember(ctx context.Context, memberID string, limit, offset int) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE member_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.selectBookings(ctx, query, memberID, limit, offset)
}

func (r *BookingRepository) ListActiveByMember(ctx context.Context, memberID string) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE member_id = $1
		AND status IN ('PENDING_PAYMENT', 'CONFIRMED')`
	return r.selectBookings(ctx, query, memberID)
}

func (r *BookingRepository) ListPendingPayment(ctx context.Context, limit int) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'PENDING_PAYMENT'
		ORDER BY created_at LIMIT $1`
	return r.selectBookings(ctx, query, limit)
}

func (r *BookingRepository) selectBookings(ctx context.Context, query string, args ...interface{}) ([]*booking.Booking, error) {
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	out := make([]*booking.Booking, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
