package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = New(KindAvailability, "SEAT_ALREADY_HELD", http.StatusConflict, "座席は既に確保されています")

func TestError_Is(t *testing.T) {
	t.Run("同じコードなら一致する", func(t *testing.T) {
		err := errSample.WithMessage("座席 %s は既に確保されています", "A1")
		assert.ErrorIs(t, err, errSample)
	})

	t.Run("fmt.Errorfで包んでも一致する", func(t *testing.T) {
		err := fmt.Errorf("hold: %w", errSample)
		assert.ErrorIs(t, err, errSample)
	})

	t.Run("異なるコードは一致しない", func(t *testing.T) {
		assert.NotErrorIs(t, ErrInvalidArgument, errSample)
	})
}

func TestError_Wrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := errSample.Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, errSample)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, errSample.Unwrap(), "元のエラーは変更されない")
}

func TestSystem(t *testing.T) {
	t.Run("未分類のエラーはINTERNALになる", func(t *testing.T) {
		err := System(errors.New("boom"))
		assert.Equal(t, KindSystem, err.Kind)
		assert.Equal(t, http.StatusServiceUnavailable, err.Status)
		assert.True(t, err.Retryable)
	})

	t.Run("分類済みのエラーはそのまま返す", func(t *testing.T) {
		err := System(fmt.Errorf("wrap: %w", errSample))
		assert.Equal(t, "SEAT_ALREADY_HELD", err.Code)
	})
}

func TestFromAndKindOf(t *testing.T) {
	ae, ok := From(fmt.Errorf("x: %w", errSample))
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, ae.Status)

	_, ok = From(errors.New("plain"))
	assert.False(t, ok)

	assert.Equal(t, KindAvailability, KindOf(errSample))
	assert.Equal(t, KindSystem, KindOf(errors.New("plain")))
	assert.Equal(t, KindValidation, KindOf(Invalid("金額は正の値である必要があります")))
}
