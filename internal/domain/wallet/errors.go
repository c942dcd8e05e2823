package wallet

import (
	"net/http"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// Wallet ドメインのエラー定義
var (
	ErrInsufficientBalance  = apperror.New(apperror.KindFunds, "INSUFFICIENT_BALANCE", http.StatusPaymentRequired, "残高が不足しています")
	ErrWalletFrozen         = apperror.New(apperror.KindFunds, "WALLET_FROZEN", http.StatusLocked, "ウォレットは凍結されています")
	ErrLimitExceeded        = apperror.New(apperror.KindFunds, "LIMIT_EXCEEDED", http.StatusUnprocessableEntity, "利用上限を超えています")
	ErrDuplicateTransaction = apperror.New(apperror.KindIntegrity, "DUPLICATE_TRANSACTION", http.StatusConflict, "取引IDが別の内容で使用されています")
	ErrAccountNotFound      = apperror.New(apperror.KindNotFound, "ACCOUNT_NOT_FOUND", http.StatusNotFound, "ウォレットが見つかりません")
	ErrTransactionNotFound  = apperror.New(apperror.KindNotFound, "TRANSACTION_NOT_FOUND", http.StatusNotFound, "取引が見つかりません")

	ErrInvalidAmount  = apperror.New(apperror.KindValidation, "INVALID_AMOUNT", http.StatusBadRequest, "金額は正の値である必要があります")
	ErrTxIDRequired   = apperror.New(apperror.KindValidation, "TX_ID_REQUIRED", http.StatusBadRequest, "取引IDは必須です")
	ErrSameAccount    = apperror.New(apperror.KindValidation, "SAME_ACCOUNT", http.StatusBadRequest, "送金元と送金先が同じです")
	ErrInvalidKind    = apperror.New(apperror.KindValidation, "INVALID_ENTRY_KIND", http.StatusBadRequest, "仕訳の種類が不正です")
	ErrAccountMissing = apperror.New(apperror.KindValidation, "ACCOUNT_ID_REQUIRED", http.StatusBadRequest, "口座IDは必須です")
)
