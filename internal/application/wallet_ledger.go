package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
)

// SpendPolicy はウォレットの利用制限
// Limit が0なら制限なし。口座ごとの上限があればそちらを優先する
type SpendPolicy struct {
	Window time.Duration
	Limit  decimal.Decimal
}

// WalletLedger は複式の追記専用台帳でウォレット残高を管理する
// 口座の変更は wallet:<id> のロックで直列化し、送金は両口座を辞書順にロックする
type WalletLedger struct {
	repo    wallet.Repository
	locker  Locker
	clock   clock.Clock
	policy  SpendPolicy
	metrics *metrics.Metrics
}

func NewWalletLedger(repo wallet.Repository, locker Locker, c clock.Clock, policy SpendPolicy, m *metrics.Metrics) *WalletLedger {
	if policy.Window <= 0 {
		policy.Window = 24 * time.Hour
	}
	return &WalletLedger{repo: repo, locker: locker, clock: c, policy: policy, metrics: orNoop(m)}
}

// Debit は口座から出金する
// 判定順は 凍結 → 取引IDの重複 → 利用上限 → 残高
func (l *WalletLedger) Debit(ctx context.Context, accountID string, amount decimal.Decimal, txID string, kind wallet.EntryKind) (entry *wallet.Entry, err error) {
	defer l.record("debit", &err)

	if err := validateMovement(accountID, amount, txID); err != nil {
		return nil, err
	}
	if kind != wallet.KindBookingDebit && kind != wallet.KindTransferOut {
		return nil, wallet.ErrInvalidKind
	}

	unlock, err := l.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acct, err := l.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Frozen {
		return nil, wallet.ErrWalletFrozen
	}

	want := &wallet.Entry{AccountID: accountID, Amount: amount.Neg(), Kind: kind}
	if replay, err := l.replay(ctx, txID, want); replay != nil || err != nil {
		return firstOrNil(replay), err
	}

	now := l.clock.Now()
	if err := l.checkLimit(ctx, acct, amount, now); err != nil {
		return nil, err
	}
	if err := l.checkBalance(ctx, accountID, amount); err != nil {
		return nil, err
	}

	e := l.newEntry(txID, accountID, amount.Neg(), kind, now)
	if err := l.repo.AppendEntries(ctx, []*wallet.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// Credit は口座に入金する
func (l *WalletLedger) Credit(ctx context.Context, accountID string, amount decimal.Decimal, txID string, kind wallet.EntryKind) (entry *wallet.Entry, err error) {
	defer l.record("credit", &err)

	if err := validateMovement(accountID, amount, txID); err != nil {
		return nil, err
	}
	if kind != wallet.KindTopUp && kind != wallet.KindTransferIn && kind != wallet.KindRefund {
		return nil, wallet.ErrInvalidKind
	}

	unlock, err := l.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acct, err := l.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Frozen {
		return nil, wallet.ErrWalletFrozen
	}

	want := &wallet.Entry{AccountID: accountID, Amount: amount, Kind: kind}
	if replay, err := l.replay(ctx, txID, want); replay != nil || err != nil {
		return firstOrNil(replay), err
	}

	e := l.newEntry(txID, accountID, amount, kind, l.clock.Now())
	if err := l.repo.AppendEntries(ctx, []*wallet.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// TopUp はウォレットにチャージする
func (l *WalletLedger) TopUp(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*wallet.Entry, error) {
	return l.Credit(ctx, accountID, amount, txID, wallet.KindTopUp)
}

// Transfer は口座間で送金する。出金と入金の仕訳は同時に追記される
func (l *WalletLedger) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, txID string) (entries []*wallet.Entry, err error) {
	defer l.record("transfer", &err)

	if err := validateMovement(fromID, amount, txID); err != nil {
		return nil, err
	}
	if toID == "" {
		return nil, wallet.ErrAccountMissing
	}
	if fromID == toID {
		return nil, wallet.ErrSameAccount
	}

	unlock, err := l.lock(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	from, err := l.account(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := l.account(ctx, toID)
	if err != nil {
		return nil, err
	}
	if from.Frozen || to.Frozen {
		return nil, wallet.ErrWalletFrozen
	}

	out := &wallet.Entry{AccountID: fromID, Amount: amount.Neg(), Kind: wallet.KindTransferOut, Counterparty: toID}
	in := &wallet.Entry{AccountID: toID, Amount: amount, Kind: wallet.KindTransferIn, Counterparty: fromID}
	if replay, err := l.replay(ctx, txID, out, in); replay != nil || err != nil {
		return replay, err
	}

	now := l.clock.Now()
	if err := l.checkLimit(ctx, from, amount, now); err != nil {
		return nil, err
	}
	if err := l.checkBalance(ctx, fromID, amount); err != nil {
		return nil, err
	}

	outE := l.newEntry(txID, fromID, amount.Neg(), wallet.KindTransferOut, now)
	outE.Counterparty = toID
	inE := l.newEntry(txID, toID, amount, wallet.KindTransferIn, now)
	inE.Counterparty = fromID
	entries = []*wallet.Entry{outE, inE}
	if err := l.repo.AppendEntries(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Reverse は取引を取り消す仕訳を追記する（サガの補償用）
func (l *WalletLedger) Reverse(ctx context.Context, txID, reason string) ([]*wallet.Entry, error) {
	return l.compensate(ctx, "reverse", txID, reason, wallet.KindReversal)
}

// Refund は確定済み予約の決済を返金する
func (l *WalletLedger) Refund(ctx context.Context, txID, reason string) ([]*wallet.Entry, error) {
	return l.compensate(ctx, "refund", txID, reason, wallet.KindRefund)
}

// compensate は txId の仕訳を打ち消す仕訳を追記し、元の仕訳を REVERSED にする
// 凍結は無視するが、打ち消しで残高が負になる場合は失敗する
// 既に打ち消し済みなら既存の仕訳を返す
func (l *WalletLedger) compensate(ctx context.Context, op, txID, reason string, kind wallet.EntryKind) (entries []*wallet.Entry, err error) {
	defer l.record(op, &err)

	if txID == "" {
		return nil, wallet.ErrTxIDRequired
	}
	originals, err := l.repo.EntriesByTx(ctx, txID)
	if err != nil {
		return nil, err
	}
	if len(originals) == 0 {
		return nil, wallet.ErrTransactionNotFound
	}

	ids := make([]string, 0, len(originals))
	for _, e := range originals {
		ids = append(ids, e.AccountID)
	}
	unlock, err := l.lock(ctx, ids...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	revTx := wallet.ReversalTxID(txID)
	done, err := l.repo.EntriesByTx(ctx, revTx)
	if err != nil {
		return nil, err
	}
	if len(done) > 0 {
		return done, nil
	}

	originals, err = l.repo.EntriesByTx(ctx, txID)
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	comps := make([]*wallet.Entry, 0, len(originals))
	for _, e := range originals {
		if e.Status != wallet.EntryCommitted {
			continue
		}
		amount := e.Amount.Neg()
		if amount.IsNegative() {
			if err := l.checkBalance(ctx, e.AccountID, amount.Neg()); err != nil {
				return nil, err
			}
		}
		c := l.newEntry(revTx, e.AccountID, amount, kind, now)
		c.ReversalOf = txID
		c.Counterparty = e.Counterparty
		c.Memo = reason
		comps = append(comps, c)
	}
	if len(comps) == 0 {
		return []*wallet.Entry{}, nil
	}
	if err := l.repo.ReverseTx(ctx, txID, comps); err != nil {
		return nil, err
	}

	logger.Info("取引を取り消しました",
		zap.String("tx_id", txID),
		zap.String("kind", string(kind)),
		zap.String("reason", reason),
	)
	return comps, nil
}

// Balance は口座の残高を返す。口座がなければ0
func (l *WalletLedger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if accountID == "" {
		return decimal.Zero, wallet.ErrAccountMissing
	}
	return l.repo.SumApplied(ctx, accountID)
}

// History は口座の仕訳を新しい順に返す
func (l *WalletLedger) History(ctx context.Context, accountID string, limit, offset int) ([]*wallet.Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return l.repo.ListEntries(ctx, accountID, limit, offset)
}

// EntriesByTx は取引の仕訳を返す
func (l *WalletLedger) EntriesByTx(ctx context.Context, txID string) ([]*wallet.Entry, error) {
	return l.repo.EntriesByTx(ctx, txID)
}

// Account は口座を返す。未作成なら凍結されていない新しい口座を返す（保存はしない）
func (l *WalletLedger) Account(ctx context.Context, accountID string) (*wallet.Account, error) {
	a, err := l.repo.GetAccount(ctx, accountID)
	if errors.Is(err, wallet.ErrAccountNotFound) {
		return wallet.NewAccount(accountID, l.clock.Now()), nil
	}
	return a, err
}

// Freeze は口座を凍結する
func (l *WalletLedger) Freeze(ctx context.Context, accountID, reason string) (*wallet.Account, error) {
	return l.updateAccount(ctx, accountID, func(a *wallet.Account, now time.Time) {
		a.Freeze(reason, now)
	})
}

// Unfreeze は口座の凍結を解除する
func (l *WalletLedger) Unfreeze(ctx context.Context, accountID string) (*wallet.Account, error) {
	return l.updateAccount(ctx, accountID, func(a *wallet.Account, now time.Time) {
		a.Unfreeze(now)
	})
}

func (l *WalletLedger) updateAccount(ctx context.Context, accountID string, fn func(a *wallet.Account, now time.Time)) (*wallet.Account, error) {
	if accountID == "" {
		return nil, wallet.ErrAccountMissing
	}
	unlock, err := l.lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	a, err := l.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	fn(a, l.clock.Now())
	if err := l.repo.SaveAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// account は口座を取得し、なければ作成する
func (l *WalletLedger) account(ctx context.Context, id string) (*wallet.Account, error) {
	a, err := l.repo.GetAccount(ctx, id)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, wallet.ErrAccountNotFound) {
		return nil, err
	}
	a = wallet.NewAccount(id, l.clock.Now())
	if err := l.repo.SaveAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// replay は同じ txId の仕訳があれば内容を照合する
// 一致すれば既存の仕訳を、一致しなければ ErrDuplicateTransaction を返す
func (l *WalletLedger) replay(ctx context.Context, txID string, want ...*wallet.Entry) ([]*wallet.Entry, error) {
	existing, err := l.repo.EntriesByTx(ctx, txID)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}
	if len(existing) != len(want) {
		return nil, wallet.ErrDuplicateTransaction
	}
	out := make([]*wallet.Entry, 0, len(want))
	for _, w := range want {
		e := findLeg(existing, w.AccountID)
		if e == nil || !e.Amount.Equal(w.Amount) || e.Kind != w.Kind || e.Counterparty != w.Counterparty {
			return nil, wallet.ErrDuplicateTransaction
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *WalletLedger) checkLimit(ctx context.Context, acct *wallet.Account, amount decimal.Decimal, now time.Time) error {
	limit := acct.EffectiveLimit(l.policy.Limit)
	if !limit.IsPositive() {
		return nil
	}
	spent, err := l.repo.SumSpendSince(ctx, acct.ID, now.Add(-l.policy.Window))
	if err != nil {
		return err
	}
	if spent.Add(amount).GreaterThan(limit) {
		return wallet.ErrLimitExceeded
	}
	return nil
}

func (l *WalletLedger) checkBalance(ctx context.Context, accountID string, amount decimal.Decimal) error {
	balance, err := l.repo.SumApplied(ctx, accountID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return wallet.ErrInsufficientBalance
	}
	return nil
}

func (l *WalletLedger) newEntry(txID, accountID string, amount decimal.Decimal, kind wallet.EntryKind, now time.Time) *wallet.Entry {
	return &wallet.Entry{
		ID:        uuid.NewString(),
		TxID:      txID,
		AccountID: accountID,
		Amount:    amount,
		Kind:      kind,
		Status:    wallet.EntryCommitted,
		CreatedAt: now,
	}
}

func (l *WalletLedger) lock(ctx context.Context, accountIDs ...string) (func(), error) {
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = wallet.Key(id)
	}
	unlock, err := l.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, apperror.System(fmt.Errorf("ウォレットロック取得に失敗: %w", err))
	}
	return unlock, nil
}

func (l *WalletLedger) record(op string, errp *error) {
	result := "ok"
	if *errp != nil {
		result = "error"
		if ae, ok := apperror.From(*errp); ok {
			result = ae.Code
		}
	}
	l.metrics.WalletOperationsTotal.WithLabelValues(op, result).Inc()
}

func validateMovement(accountID string, amount decimal.Decimal, txID string) error {
	if accountID == "" {
		return wallet.ErrAccountMissing
	}
	if !amount.IsPositive() {
		return wallet.ErrInvalidAmount
	}
	if txID == "" {
		return wallet.ErrTxIDRequired
	}
	return nil
}

func findLeg(entries []*wallet.Entry, accountID string) *wallet.Entry {
	for _, e := range entries {
		if e.AccountID == accountID {
			return e
		}
	}
	return nil
}

func firstOrNil(entries []*wallet.Entry) *wallet.Entry {
	if len(entries) == 0 {
		return nil
	}
	return entries[0]
}
