package booking

import "time"

// EventType は予約イベントの種類
type EventType string

const (
	EventConfirmed EventType = "booking.confirmed"
	EventCancelled EventType = "booking.cancelled"
)

// Event は予約の状態変化を外部に通知するメッセージ
type Event struct {
	Type        EventType `json:"type"`
	BookingID   string    `json:"booking_id"`
	MemberID    string    `json:"member_id"`
	ShowtimeID  string    `json:"showtime_id"`
	Seats       []string  `json:"seats"`
	TotalAmount string    `json:"total_amount"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent は予約の現在の内容からイベントを作成する
func NewEvent(t EventType, b *Booking, now time.Time) Event {
	return Event{
		Type:        t,
		BookingID:   b.ID,
		MemberID:    b.MemberID,
		ShowtimeID:  b.ShowtimeID,
		Seats:       append([]string(nil), b.SeatLabels...),
		TotalAmount: b.TotalAmount.StringFixed(2),
		Reason:      b.FailureReason,
		OccurredAt:  now,
	}
}
