package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの分類を表す
type Kind string

const (
	KindAvailability Kind = "availability"
	KindDiscount     Kind = "discount"
	KindFunds        Kind = "funds"
	KindIntegrity    Kind = "integrity"
	KindLifecycle    Kind = "lifecycle"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindSystem       Kind = "system"
)

// Error はドメイン全体で共通のエラー型
// Code が同じであれば errors.Is で一致とみなす
type Error struct {
	Kind      Kind
	Code      string
	Status    int
	Message   string
	Retryable bool
	cause     error
}

// New は新しいエラーを作成する
func New(kind Kind, code string, status int, message string) *Error {
	return &Error{Kind: kind, Code: code, Status: status, Message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is はエラーコードで比較する
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap は原因となるエラーを付与したコピーを返す
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// WithMessage はメッセージを差し替えたコピーを返す
func (e *Error) WithMessage(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// 汎用エラー
var (
	ErrInvalidArgument = New(KindValidation, "INVALID_ARGUMENT", http.StatusBadRequest, "入力値が不正です")
	ErrForbidden       = New(KindForbidden, "FORBIDDEN", http.StatusForbidden, "操作が許可されていません")
	ErrUnauthorized    = New(KindForbidden, "UNAUTHENTICATED", http.StatusUnauthorized, "認証が必要です")
	ErrInternal        = &Error{
		Kind:      KindSystem,
		Code:      "INTERNAL",
		Status:    http.StatusServiceUnavailable,
		Message:   "一時的なエラーが発生しました",
		Retryable: true,
	}
)

// System は予期しないエラーを再試行可能なシステムエラーとして包む
func System(cause error) *Error {
	if ae, ok := From(cause); ok {
		return ae
	}
	return ErrInternal.Wrap(cause)
}

// Invalid は検証エラーを作成する
func Invalid(format string, args ...any) *Error {
	return ErrInvalidArgument.WithMessage(format, args...)
}

// From はエラーチェーンから *Error を取り出す
func From(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf はエラーの分類を返す。分類できない場合は KindSystem
func KindOf(err error) Kind {
	if ae, ok := From(err); ok {
		return ae.Kind
	}
	return KindSystem
}
