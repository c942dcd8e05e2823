package seat

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newFree() *Seat {
	return NewSeat("show-1", "A1", decimal.NewFromInt(300), now)
}

func TestNewSeat(t *testing.T) {
	s := newFree()

	assert.Equal(t, "show-1", s.ShowtimeID)
	assert.Equal(t, "A1", s.Label)
	assert.Equal(t, StatusFree, s.Status)
	assert.True(t, s.Price.Equal(decimal.NewFromInt(300)))
	assert.Nil(t, s.HoldExpiresAt)
	assert.Equal(t, "seat:show-1:A1", Key(s.ShowtimeID, s.Label))
}

func TestSeat_Hold(t *testing.T) {
	t.Run("空席を確保できる", func(t *testing.T) {
		s := newFree()
		require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

		assert.Equal(t, StatusHeld, s.Status)
		assert.Equal(t, "m1", s.HolderID)
		assert.Equal(t, "tok", s.HoldToken)
		assert.True(t, s.IsHeldBy("m1", now))
	})

	t.Run("確保中の座席は確保できない", func(t *testing.T) {
		s := newFree()
		require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))
		assert.ErrorIs(t, s.Hold("m2", "tok2", now.Add(10*time.Minute), now), ErrSeatAlreadyHeld)
	})

	t.Run("同じ会員の確保中の座席は確保し直す", func(t *testing.T) {
		s := newFree()
		require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

		later := now.Add(5 * time.Minute)
		require.NoError(t, s.Hold("m1", "tok2", later.Add(10*time.Minute), later))
		assert.Equal(t, "tok2", s.HoldToken)
		assert.Equal(t, later.Add(10*time.Minute), *s.HoldExpiresAt)
	})

	t.Run("期限切れの確保は空席とみなす", func(t *testing.T) {
		s := newFree()
		require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

		later := now.Add(10 * time.Minute)
		assert.Equal(t, StatusFree, s.EffectiveStatus(later))
		require.NoError(t, s.Hold("m2", "tok2", later.Add(10*time.Minute), later))
		assert.Equal(t, "m2", s.HolderID)
	})

	t.Run("予約済み・メンテナンス中は確保できない", func(t *testing.T) {
		booked := &Seat{Status: StatusBooked}
		assert.ErrorIs(t, booked.Hold("m1", "t", now.Add(time.Minute), now), ErrSeatBooked)

		maint := &Seat{Status: StatusMaintenance}
		assert.ErrorIs(t, maint.Hold("m1", "t", now.Add(time.Minute), now), ErrSeatInMaintenance)
	})
}

func TestSeat_Confirm(t *testing.T) {
	t.Run("同じトークンで確定できる", func(t *testing.T) {
		s := newFree()
		require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

		changed, err := s.Confirm("tok", now.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StatusBooked, s.Status)
		assert.Nil(t, s.HoldExpiresAt)

		changed, err = s.Confirm("tok", now.Add(time.Hour))
		require.NoError(t, err, "確定済みなら冪等")
		assert.False(t, changed)
	})

	t.Run("期限切れなら確定できない", func(t *testing.T) {
		s := newFree()
		require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

		_, err := s.Confirm("tok", now.Add(10*time.Minute))
		assert.ErrorIs(t, err, ErrHoldExpired)
	})

	t.Run("別トークンでは確定できない", func(t *testing.T) {
		s := newFree()
		require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

		_, err := s.Confirm("other", now)
		assert.ErrorIs(t, err, ErrHoldExpired)
	})
}

func TestSeat_Release(t *testing.T) {
	s := newFree()
	require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

	assert.False(t, s.Release("other", now), "別トークンでは解放しない")
	assert.True(t, s.Release("tok", now))
	assert.False(t, s.Release("tok", now), "2回目は何もしない")
	assert.Equal(t, StatusFree, s.Status)
	assert.Empty(t, s.HoldToken)
}

func TestSeat_ReleaseBooked(t *testing.T) {
	s := newFree()
	require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))
	_, err := s.Confirm("tok", now)
	require.NoError(t, err)

	assert.False(t, s.Release("tok", now), "確定済みは通常の解放対象外")
	assert.True(t, s.ReleaseBooked("tok", now))
	assert.Equal(t, StatusFree, s.Status)
}

func TestSeat_ExpireHold(t *testing.T) {
	s := newFree()
	require.NoError(t, s.Hold("m1", "tok", now.Add(10*time.Minute), now))

	assert.False(t, s.ExpireHold(now.Add(time.Minute)))
	assert.True(t, s.ExpireHold(now.Add(10*time.Minute)))
	assert.Equal(t, StatusFree, s.Status)
}

func TestSeat_SetMaintenance(t *testing.T) {
	s := newFree()
	require.NoError(t, s.SetMaintenance(true, now))
	assert.Equal(t, StatusMaintenance, s.Status)
	require.NoError(t, s.SetMaintenance(true, now), "冪等")

	require.NoError(t, s.SetMaintenance(false, now))
	assert.Equal(t, StatusFree, s.Status)

	require.NoError(t, s.Hold("m1", "tok", now.Add(time.Minute), now))
	assert.ErrorIs(t, s.SetMaintenance(true, now), ErrSeatNotFree)
}

func TestSeat_Validate(t *testing.T) {
	tests := []struct {
		name    string
		seat    *Seat
		wantErr error
	}{
		{"正常", newFree(), nil},
		{"上映回IDなし", &Seat{Label: "A1"}, ErrShowtimeIDRequired},
		{"ラベルなし", &Seat{ShowtimeID: "s"}, ErrLabelRequired},
		{"負の価格", &Seat{ShowtimeID: "s", Label: "A1", Price: decimal.NewFromInt(-1)}, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seat.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestSeat_Clone(t *testing.T) {
	s := newFree()
	require.NoError(t, s.Hold("m1", "tok", now.Add(time.Minute), now))

	c := s.Clone()
	*c.HoldExpiresAt = now.Add(time.Hour)
	assert.Equal(t, now.Add(time.Minute), *s.HoldExpiresAt)
}
