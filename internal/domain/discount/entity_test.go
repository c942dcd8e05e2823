package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDiscount_Quote(t *testing.T) {
	tests := []struct {
		name string
		d    Discount
		list string
		want string
	}{
		{"定額", Discount{Type: TypeFixed, Value: decimal.NewFromInt(50)}, "300", "50"},
		{"定額は定価を超えない", Discount{Type: TypeFixed, Value: decimal.NewFromInt(500)}, "300", "300"},
		{"定率10%", Discount{Type: TypePercent, Value: decimal.NewFromInt(10)}, "300", "30"},
		{"定率は小数第2位で丸める", Discount{Type: TypePercent, Value: decimal.NewFromInt(15)}, "99.99", "15"},
		{"定率100%", Discount{Type: TypePercent, Value: decimal.NewFromInt(100)}, "250", "250"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.d.Quote(decimal.RequireFromString(tt.list))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestDiscount_Validate(t *testing.T) {
	valid := func() Discount {
		return Discount{
			Code: "SAVE10", Type: TypePercent, Value: decimal.NewFromInt(10),
			StartsAt: now, EndsAt: now.Add(24 * time.Hour),
		}
	}

	d := valid()
	assert.NoError(t, d.Validate())

	d = valid()
	d.Code = ""
	assert.Equal(t, ErrCodeRequired, d.Validate())

	d = valid()
	d.Type = "BOGO"
	assert.Equal(t, ErrInvalidType, d.Validate())

	d = valid()
	d.Value = decimal.NewFromInt(101)
	assert.Equal(t, ErrInvalidValue, d.Validate())

	d = valid()
	d.EndsAt = d.StartsAt
	assert.Equal(t, ErrInvalidPeriod, d.Validate())

	d = valid()
	d.Quantity = -1
	assert.Equal(t, ErrInvalidQuantity, d.Validate())
}

func TestDiscount_IsActive(t *testing.T) {
	d := Discount{StartsAt: now, EndsAt: now.Add(time.Hour)}

	assert.False(t, d.IsActive(now.Add(-time.Second)))
	assert.True(t, d.IsActive(now))
	assert.False(t, d.IsActive(now.Add(time.Hour)))
}

func TestRedemption_Lifecycle(t *testing.T) {
	t.Run("確保から確定", func(t *testing.T) {
		r := &Redemption{Status: RedemptionReserved}
		assert.True(t, r.IsActive())

		changed, err := r.Commit(now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, RedemptionCommitted, r.Status)

		changed, err = r.Commit(now)
		require.NoError(t, err)
		assert.False(t, changed, "冪等")

		assert.False(t, r.Release(now), "確定済みは解放しない")
		assert.True(t, r.Refund(now))
		assert.Equal(t, RedemptionReleased, r.Status)
		assert.False(t, r.IsActive())
	})

	t.Run("解放済みは確定できない", func(t *testing.T) {
		r := &Redemption{Status: RedemptionReserved}
		assert.True(t, r.Release(now))
		assert.False(t, r.Release(now))

		_, err := r.Commit(now)
		assert.ErrorIs(t, err, ErrRedemptionReleased)
	})
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "discount:SAVE10", Key("save10"))
}
