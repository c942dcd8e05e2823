package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/application"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// BookingResponse は予約のレスポンス。確保トークンは含めない
type BookingResponse struct {
	ID             string     `json:"id"`
	MemberID       string     `json:"member_id"`
	ShowtimeID     string     `json:"showtime_id"`
	Seats          []string   `json:"seats"`
	Status         string     `json:"status"`
	DiscountCode   string     `json:"discount_code,omitempty"`
	ListAmount     string     `json:"list_amount"`
	DiscountAmount string     `json:"discount_amount"`
	TotalAmount    string     `json:"total_amount"`
	PaymentTxID    string     `json:"payment_tx_id"`
	HoldExpiresAt  *time.Time `json:"hold_expires_at,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID: b.ID, MemberID: b.MemberID, ShowtimeID: b.ShowtimeID,
		Seats: b.SeatLabels, Status: string(b.Status), DiscountCode: b.DiscountCode,
		ListAmount: money(b.ListAmount), DiscountAmount: money(b.DiscountAmount), TotalAmount: money(b.TotalAmount),
		PaymentTxID: b.PaymentTxID, FailureReason: b.FailureReason,
		CreatedAt: b.CreatedAt, ConfirmedAt: b.ConfirmedAt, ClosedAt: b.ClosedAt,
	}
	if b.Status == booking.StatusPendingPayment && !b.HoldExpiresAt.IsZero() {
		exp := b.HoldExpiresAt
		resp.HoldExpiresAt = &exp
	}
	return resp
}

type ShowtimeResponse struct {
	ID             string    `json:"id"`
	MovieTitle     string    `json:"movie_title"`
	Hall           string    `json:"hall"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	Status         string    `json:"status"`
	AvailableSeats *int      `json:"available_seats,omitempty"`
}

func toShowtimeResponse(s *showtime.Showtime) ShowtimeResponse {
	return ShowtimeResponse{
		ID: s.ID, MovieTitle: s.MovieTitle, Hall: s.Hall,
		StartsAt: s.StartsAt, EndsAt: s.EndsAt, Status: string(s.Status),
	}
}

type SeatResponse struct {
	Label  string `json:"label"`
	Status string `json:"status"`
	Price  string `json:"price"`
}

func toSeatResponses(seats []application.SeatAvailability) []SeatResponse {
	out := make([]SeatResponse, len(seats))
	for i, s := range seats {
		out[i] = SeatResponse{Label: s.Label, Status: string(s.Status), Price: money(s.Price)}
	}
	return out
}

type AvailabilityResponse struct {
	ShowtimeID string         `json:"showtime_id"`
	Available  bool           `json:"available"`
	Seats      []SeatResponse `json:"seats"`
}

type DiscountResponse struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	SingleUse bool      `json:"single_use"`
	Quantity  int       `json:"quantity"`
}

func toDiscountResponse(d *discount.Discount) DiscountResponse {
	return DiscountResponse{
		Code: d.Code, Name: d.Name, Type: string(d.Type), Value: money(d.Value),
		StartsAt: d.StartsAt, EndsAt: d.EndsAt, SingleUse: d.SingleUse, Quantity: d.Quantity,
	}
}

type EntryResponse struct {
	ID           string    `json:"id"`
	TxID         string    `json:"tx_id"`
	Amount       string    `json:"amount"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	ReversalOf   string    `json:"reversal_of,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	Memo         string    `json:"memo,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toEntryResponse(e *wallet.Entry) EntryResponse {
	return EntryResponse{
		ID: e.ID, TxID: e.TxID, Amount: money(e.Amount), Kind: string(e.Kind), Status: string(e.Status),
		ReversalOf: e.ReversalOf, Counterparty: e.Counterparty, Memo: e.Memo, CreatedAt: e.CreatedAt,
	}
}

func toEntryResponses(entries []*wallet.Entry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

type WalletResponse struct {
	MemberID     string `json:"member_id"`
	Balance      string `json:"balance"`
	Frozen       bool   `json:"frozen"`
	FreezeReason string `json:"freeze_reason,omitempty"`
}

type AccountResponse struct {
	MemberID     string     `json:"member_id"`
	Frozen       bool       `json:"frozen"`
	FreezeReason string     `json:"freeze_reason,omitempty"`
	FrozenAt     *time.Time `json:"frozen_at,omitempty"`
}

func toAccountResponse(a *wallet.Account) AccountResponse {
	return AccountResponse{MemberID: a.ID, Frozen: a.Frozen, FreezeReason: a.FreezeReason, FrozenAt: a.FrozenAt}
}
