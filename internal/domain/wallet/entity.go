package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind は仕訳の種類を表す
type EntryKind string

const (
	KindTopUp        EntryKind = "TOP_UP"
	KindTransferOut  EntryKind = "TRANSFER_OUT"
	KindTransferIn   EntryKind = "TRANSFER_IN"
	KindBookingDebit EntryKind = "BOOKING_DEBIT"
	KindRefund       EntryKind = "REFUND"
	KindReversal     EntryKind = "REVERSAL"
)

// EntryStatus は仕訳の状態を表す
type EntryStatus string

const (
	EntryPending   EntryStatus = "PENDING"
	EntryCommitted EntryStatus = "COMMITTED"
	EntryReversed  EntryStatus = "REVERSED"
)

// Account はウォレット口座を表す。残高は仕訳から導出し保持しない
// SpendLimit が nil なら既定の制限を使う
type Account struct {
	ID           string
	Frozen       bool
	FreezeReason string
	FrozenAt     *time.Time
	SpendLimit   *decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Entry は追記専用の仕訳
// 金額は符号付きで、入金が正、出金が負
type Entry struct {
	ID           string
	TxID         string
	AccountID    string
	Amount       decimal.Decimal
	Kind         EntryKind
	Status       EntryStatus
	ReversalOf   string
	Counterparty string
	Memo         string
	CreatedAt    time.Time
}

// Key はロックキーを返す
func Key(accountID string) string {
	return "wallet:" + accountID
}

// ReversalTxID は取消仕訳の txId を返す
func ReversalTxID(txID string) string {
	return txID + ":reversal"
}

// NewAccount は凍結されていない口座を作成する
func NewAccount(id string, now time.Time) *Account {
	return &Account{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Freeze は口座を凍結する
func (a *Account) Freeze(reason string, now time.Time) {
	a.Frozen = true
	a.FreezeReason = reason
	a.FrozenAt = &now
	a.UpdatedAt = now
}

// Unfreeze は凍結を解除する
func (a *Account) Unfreeze(now time.Time) {
	a.Frozen = false
	a.FreezeReason = ""
	a.FrozenAt = nil
	a.UpdatedAt = now
}

// EffectiveLimit は口座に適用される利用上限を返す。0 は無制限
func (a *Account) EffectiveLimit(fallback decimal.Decimal) decimal.Decimal {
	if a.SpendLimit != nil {
		return *a.SpendLimit
	}
	return fallback
}

// IsApplied は残高に反映される仕訳かを返す
// 取消済みの仕訳も反映され、対になる取消仕訳で相殺される
func (e *Entry) IsApplied() bool {
	return e.Status == EntryCommitted || e.Status == EntryReversed
}

// IsSpend は利用上限の集計対象となる出金かを返す
func (e *Entry) IsSpend() bool {
	if e.Status != EntryCommitted || !e.Amount.IsNegative() {
		return false
	}
	return e.Kind == KindBookingDebit || e.Kind == KindTransferOut
}

// Clone はコピーを返す
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// Balance は仕訳の合計から残高を計算する
func Balance(entries []*Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		if e.IsApplied() {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}
