package showtime

import (
	"net/http"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// Showtime ドメインのエラー定義
var (
	ErrShowtimeNotFound   = apperror.New(apperror.KindNotFound, "SHOWTIME_NOT_FOUND", http.StatusNotFound, "上映回が見つかりません")
	ErrMovieTitleRequired = apperror.New(apperror.KindValidation, "MOVIE_TITLE_REQUIRED", http.StatusBadRequest, "作品名は必須です")
	ErrHallRequired       = apperror.New(apperror.KindValidation, "HALL_REQUIRED", http.StatusBadRequest, "スクリーンは必須です")
	ErrInvalidShowtime    = apperror.New(apperror.KindValidation, "INVALID_SHOWTIME_PERIOD", http.StatusBadRequest, "終了時刻は開始時刻より後である必要があります")
	ErrNotOpenForSale     = apperror.New(apperror.KindAvailability, "SCHEDULE_CONFLICT", http.StatusConflict, "上映回は販売期間外です")
)
