package seat

import (
	"net/http"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound      = apperror.New(apperror.KindAvailability, "SEAT_NOT_FOUND", http.StatusNotFound, "座席が見つかりません")
	ErrSeatAlreadyHeld   = apperror.New(apperror.KindAvailability, "SEAT_ALREADY_HELD", http.StatusConflict, "座席は他の会員が確保中です")
	ErrSeatBooked        = apperror.New(apperror.KindAvailability, "SEAT_BOOKED", http.StatusConflict, "座席は予約済みです")
	ErrSeatInMaintenance = apperror.New(apperror.KindAvailability, "SEAT_IN_MAINTENANCE", http.StatusConflict, "座席はメンテナンス中です")
	ErrSeatNotFree       = apperror.New(apperror.KindAvailability, "SEAT_NOT_FREE", http.StatusConflict, "空席ではないため変更できません")
	ErrSeatExists        = apperror.New(apperror.KindIntegrity, "SEAT_EXISTS", http.StatusConflict, "座席は既に登録されています")
	ErrHoldExpired       = apperror.New(apperror.KindLifecycle, "HOLD_EXPIRED", http.StatusGone, "座席の確保期限が切れました")

	ErrShowtimeIDRequired = apperror.New(apperror.KindValidation, "SHOWTIME_ID_REQUIRED", http.StatusBadRequest, "上映回IDは必須です")
	ErrLabelRequired      = apperror.New(apperror.KindValidation, "SEAT_LABEL_REQUIRED", http.StatusBadRequest, "座席ラベルは必須です")
	ErrInvalidPrice       = apperror.New(apperror.KindValidation, "INVALID_PRICE", http.StatusBadRequest, "価格は0以上である必要があります")

	ErrOptimisticLockConflict = &apperror.Error{
		Kind:      apperror.KindSystem,
		Code:      "SEAT_VERSION_CONFLICT",
		Status:    http.StatusServiceUnavailable,
		Message:   "座席の更新が競合しました",
		Retryable: true,
	}
)
