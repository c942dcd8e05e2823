package api

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate はリクエストのバリデーションを実行する
// 最初に違反したフィールドを INVALID_ARGUMENT として返す
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return apperror.Invalid("%s が不正です（%s=%s）", fe.Field(), fe.Tag(), fe.Param())
		}
		return apperror.Invalid("%s が不正です（%s）", fe.Field(), fe.Tag())
	}
	return apperror.Invalid("%s", err.Error())
}
