package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newPending() *Booking {
	b := NewBooking("b1", "m1", "show-1", []string{"A1", "A2"}, "req-1", now)
	b.HoldExpiresAt = now.Add(10 * time.Minute)
	return b
}

func TestNewBooking(t *testing.T) {
	labels := []string{"A1", "A2"}
	b := NewBooking("b1", "m1", "show-1", labels, "req-1", now)
	labels[0] = "Z9"

	assert.Equal(t, StatusPendingPayment, b.Status)
	assert.Equal(t, []string{"A1", "A2"}, b.SeatLabels, "引数のスライスと共有しない")
	assert.Equal(t, "booking:b1", b.PaymentTxID)
	assert.True(t, b.TotalAmount.IsZero())
}

func TestDeriveID(t *testing.T) {
	a := DeriveID("m1", "req-1")
	assert.Equal(t, a, DeriveID("m1", "req-1"), "同じ入力なら同じID")
	assert.NotEqual(t, a, DeriveID("m2", "req-1"))
	assert.NotEqual(t, a, DeriveID("m1", "req-2"))
}

func TestBooking_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *Booking)
		wantErr error
	}{
		{"正常", func(b *Booking) {}, nil},
		{"会員IDなし", func(b *Booking) { b.MemberID = "" }, ErrMemberIDRequired},
		{"上映回IDなし", func(b *Booking) { b.ShowtimeID = "" }, ErrShowtimeIDRequired},
		{"座席なし", func(b *Booking) { b.SeatLabels = nil }, ErrSeatsRequired},
		{"座席の重複", func(b *Booking) { b.SeatLabels = []string{"A1", "A1"} }, ErrDuplicateSeat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newPending()
			tt.mutate(b)
			err := b.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestBooking_Transitions(t *testing.T) {
	t.Run("支払い待ちから確定", func(t *testing.T) {
		b := newPending()
		require.NoError(t, b.Confirm(now))
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.NotNil(t, b.ConfirmedAt)
		require.NoError(t, b.Confirm(now), "確定済みなら冪等")

		assert.ErrorIs(t, b.Expire(now), ErrInvalidTransition, "確定済みは期限切れにならない")
	})

	t.Run("確定済みを取り消せる", func(t *testing.T) {
		b := newPending()
		require.NoError(t, b.Confirm(now))
		require.NoError(t, b.Cancel("会員による取消", now))
		assert.Equal(t, StatusCancelled, b.Status)
		assert.True(t, b.IsFinal())

		assert.ErrorIs(t, b.Cancel("再取消", now), ErrBookingAlreadyCancelled)
		assert.ErrorIs(t, b.Confirm(now), ErrBookingAlreadyCancelled)
	})

	t.Run("期限切れは最終状態", func(t *testing.T) {
		b := newPending()
		require.NoError(t, b.Expire(now.Add(10*time.Minute)))
		assert.Equal(t, StatusExpired, b.Status)
		assert.True(t, b.IsFinal())

		assert.ErrorIs(t, b.Cancel("取消", now), ErrBookingExpired)
		assert.ErrorIs(t, b.Confirm(now), ErrBookingExpired)
		assert.ErrorIs(t, b.Expire(now), ErrBookingExpired)
	})
}

func TestBooking_IsLive(t *testing.T) {
	b := newPending()
	assert.True(t, b.IsLive(now))
	assert.False(t, b.IsLive(now.Add(10*time.Minute)), "期限切れの支払い待ちは占有しない")

	require.NoError(t, b.Confirm(now))
	assert.True(t, b.IsLive(now.Add(time.Hour)))

	require.NoError(t, b.Cancel("取消", now))
	assert.False(t, b.IsLive(now))
}

func TestBooking_Clone(t *testing.T) {
	b := newPending()
	c := b.Clone()
	c.SeatLabels[0] = "Z9"
	assert.Equal(t, "A1", b.SeatLabels[0])
}

func TestNewEvent(t *testing.T) {
	b := newPending()
	ev := NewEvent(EventConfirmed, b, now)

	assert.Equal(t, EventConfirmed, ev.Type)
	assert.Equal(t, "b1", ev.BookingID)
	assert.Equal(t, "0.00", ev.TotalAmount)
	assert.Equal(t, []string{"A1", "A2"}, ev.Seats)
}
