package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/api/middleware"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
)

// WalletHandler はウォレットハンドラー
type WalletHandler struct {
	wallet WalletServiceInterface
}

// NewWalletHandler はWalletHandlerを作成する
func NewWalletHandler(wallet WalletServiceInterface) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// TopUpRequest は入金リクエスト
type TopUpRequest struct {
	Amount string `json:"amount" validate:"required"`
	TxID   string `json:"tx_id" validate:"required,max=128"`
}

// TransferRequest は送金リクエスト
type TransferRequest struct {
	To     string `json:"to" validate:"required"`
	Amount string `json:"amount" validate:"required"`
	TxID   string `json:"tx_id" validate:"required,max=128"`
}

// FreezeRequest は凍結リクエスト
type FreezeRequest struct {
	Reason string `json:"reason" validate:"required,max=256"`
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.Invalid("金額の形式が不正です")
	}
	return d, nil
}

// Get は残高と凍結状態を返す
// @Summary ウォレット残高
// @Tags wallet
// @Produce json
// @Success 200 {object} WalletResponse
// @Router /wallet [get]
func (h *WalletHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	memberID := middleware.MemberID(c)

	acct, err := h.wallet.Account(ctx, memberID)
	if err != nil {
		return err
	}
	balance, err := h.wallet.Balance(ctx, memberID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, WalletResponse{
		MemberID:     memberID,
		Balance:      money(balance),
		Frozen:       acct.Frozen,
		FreezeReason: acct.FreezeReason,
	})
}

// Entries は仕訳履歴を新しい順に返す
// @Summary 仕訳履歴
// @Tags wallet
// @Produce json
// @Param limit query int false "取得件数"
// @Param offset query int false "オフセット"
// @Success 200 {array} EntryResponse
// @Router /wallet/entries [get]
func (h *WalletHandler) Entries(c echo.Context) error {
	limit, offset, err := paging(c)
	if err != nil {
		return err
	}
	entries, err := h.wallet.History(c.Request().Context(), middleware.MemberID(c), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEntryResponses(entries))
}

// TopUp は自分のウォレットに入金する
// @Summary 入金
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body TopUpRequest true "入金情報"
// @Success 201 {object} EntryResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /wallet/top-up [post]
func (h *WalletHandler) TopUp(c echo.Context) error {
	var req TopUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	entry, err := h.wallet.TopUp(c.Request().Context(), middleware.MemberID(c), amount, clientTxID("topup", middleware.MemberID(c), req.TxID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEntryResponse(entry))
}

// Transfer は他の会員へ送金する
// @Summary 送金
// @Tags wallet
// @Accept json
// @Produce json
// @Param request body TransferRequest true "送金情報"
// @Success 201 {array} EntryResponse
// @Failure 402 {object} api.ErrorResponse
// @Failure 423 {object} api.ErrorResponse
// @Router /wallet/transfers [post]
func (h *WalletHandler) Transfer(c echo.Context) error {
	var req TransferRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return err
	}
	entries, err := h.wallet.Transfer(c.Request().Context(), middleware.MemberID(c), req.To, amount, clientTxID("transfer", middleware.MemberID(c), req.TxID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEntryResponses(entries))
}

// Freeze はウォレットを凍結する
// @Summary ウォレット凍結（管理者）
// @Tags admin
// @Accept json
// @Produce json
// @Param member_id path string true "会員ID"
// @Param request body FreezeRequest true "凍結理由"
// @Success 200 {object} AccountResponse
// @Router /admin/wallets/{member_id}/freeze [post]
func (h *WalletHandler) Freeze(c echo.Context) error {
	var req FreezeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	acct, err := h.wallet.Freeze(c.Request().Context(), c.Param("member_id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acct))
}

// Unfreeze はウォレットの凍結を解除する
// @Summary 凍結解除（管理者）
// @Tags admin
// @Produce json
// @Param member_id path string true "会員ID"
// @Success 200 {object} AccountResponse
// @Router /admin/wallets/{member_id}/unfreeze [post]
func (h *WalletHandler) Unfreeze(c echo.Context) error {
	acct, err := h.wallet.Unfreeze(c.Request().Context(), c.Param("member_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(acct))
}

// clientTxID はクライアント指定の取引IDを操作と会員ごとの名前空間に入れる
func clientTxID(op, memberID, txID string) string {
	return op + ":" + memberID + ":" + txID
}
