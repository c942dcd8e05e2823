package discount

import (
	"net/http"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// Discount ドメインのエラー定義
var (
	ErrDiscountNotFound    = apperror.New(apperror.KindDiscount, "DISCOUNT_NOT_FOUND", http.StatusNotFound, "割引コードが見つかりません")
	ErrDiscountExpired     = apperror.New(apperror.KindDiscount, "DISCOUNT_EXPIRED", http.StatusUnprocessableEntity, "割引コードの有効期間外です")
	ErrDiscountAlreadyUsed = apperror.New(apperror.KindDiscount, "DISCOUNT_ALREADY_USED", http.StatusConflict, "割引コードは既に利用されています")
	ErrDiscountExhausted   = apperror.New(apperror.KindDiscount, "DISCOUNT_EXHAUSTED", http.StatusConflict, "割引コードの発行枚数に達しました")
	ErrDiscountExists      = apperror.New(apperror.KindIntegrity, "DISCOUNT_EXISTS", http.StatusConflict, "割引コードは既に登録されています")
	ErrRedemptionNotFound  = apperror.New(apperror.KindNotFound, "REDEMPTION_NOT_FOUND", http.StatusNotFound, "割引の利用記録が見つかりません")
	ErrRedemptionReleased  = apperror.New(apperror.KindLifecycle, "REDEMPTION_RELEASED", http.StatusConflict, "割引の利用は取り消されています")

	ErrCodeRequired    = apperror.New(apperror.KindValidation, "DISCOUNT_CODE_REQUIRED", http.StatusBadRequest, "割引コードは必須です")
	ErrInvalidType     = apperror.New(apperror.KindValidation, "INVALID_DISCOUNT_TYPE", http.StatusBadRequest, "割引の種類が不正です")
	ErrInvalidValue    = apperror.New(apperror.KindValidation, "INVALID_DISCOUNT_VALUE", http.StatusBadRequest, "割引額が不正です")
	ErrInvalidPeriod   = apperror.New(apperror.KindValidation, "INVALID_DISCOUNT_PERIOD", http.StatusBadRequest, "有効期間が不正です")
	ErrInvalidQuantity = apperror.New(apperror.KindValidation, "INVALID_DISCOUNT_QUANTITY", http.StatusBadRequest, "発行枚数は0以上である必要があります")
)
