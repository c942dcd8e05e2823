package booking

import (
	"net/http"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound         = apperror.New(apperror.KindNotFound, "BOOKING_NOT_FOUND", http.StatusNotFound, "予約が見つかりません")
	ErrBookingNotOwned         = apperror.New(apperror.KindForbidden, "BOOKING_NOT_OWNED", http.StatusForbidden, "他の会員の予約は操作できません")
	ErrBookingExpired          = apperror.New(apperror.KindLifecycle, "BOOKING_EXPIRED", http.StatusGone, "予約の支払い期限が切れています")
	ErrBookingAlreadyCancelled = apperror.New(apperror.KindLifecycle, "BOOKING_ALREADY_CANCELLED", http.StatusConflict, "予約は既に取り消されています")
	ErrInvalidTransition       = apperror.New(apperror.KindLifecycle, "INVALID_TRANSITION", http.StatusConflict, "予約の状態を変更できません")
	ErrScheduleConflict        = apperror.New(apperror.KindAvailability, "SCHEDULE_CONFLICT", http.StatusConflict, "同じ時間帯に別の上映回を予約しています")
	ErrBookingExists           = apperror.New(apperror.KindIntegrity, "BOOKING_EXISTS", http.StatusConflict, "予約は既に存在します")

	ErrMemberIDRequired   = apperror.New(apperror.KindValidation, "MEMBER_ID_REQUIRED", http.StatusBadRequest, "会員IDは必須です")
	ErrShowtimeIDRequired = apperror.New(apperror.KindValidation, "SHOWTIME_ID_REQUIRED", http.StatusBadRequest, "上映回IDは必須です")
	ErrSeatsRequired      = apperror.New(apperror.KindValidation, "SEATS_REQUIRED", http.StatusBadRequest, "座席を1つ以上指定してください")
	ErrDuplicateSeat      = apperror.New(apperror.KindValidation, "DUPLICATE_SEAT", http.StatusBadRequest, "同じ座席が重複しています")
)
