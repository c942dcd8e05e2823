package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
)

const entryColumns = `id, tx_id, account_id, amount, kind, status, reversal_of, counterparty, memo, created_at`

type accountRow struct {
	ID           string              `db:"id"`
	Frozen       bool                `db:"frozen"`
	FreezeReason string              `db:"freeze_reason"`
	FrozenAt     *time.Time          `db:"frozen_at"`
	SpendLimit   decimal.NullDecimal `db:"spend_limit"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

type entryRow struct {
	ID           string          `db:"id"`
	TxID         string          `db:"tx_id"`
	AccountID    string          `db:"account_id"`
	Amount       decimal.Decimal `db:"amount"`
	Kind         string          `db:"kind"`
	Status       string          `db:"status"`
	ReversalOf   string          `db:"reversal_of"`
	Counterparty string          `db:"counterparty"`
	Memo         string          `db:"memo"`
	CreatedAt    time.Time       `db:"created_at"`
}

func (r *entryRow) toEntity() *wallet.Entry {
	return &wallet.Entry{
		ID: r.ID, TxID: r.TxID, AccountID: r.AccountID, Amount: r.Amount,
		Kind: wallet.EntryKind(r.Kind), Status: wallet.EntryStatus(r.Status),
		ReversalOf: r.ReversalOf, Counterparty: r.Counterparty, Memo: r.Memo, CreatedAt: r.CreatedAt,
	}
}

// WalletRepository は仕訳を追記専用で保存する。残高は仕訳の集計で求める
type WalletRepository struct {
	db *sqlx.DB
	tx *TxManager
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db, tx: NewTxManager(db)}
}

func (r *WalletRepository) GetAccount(ctx context.Context, id string) (*wallet.Account, error) {
	var row accountRow
	query := `SELECT id, frozen, freeze_reason, frozen_at, spend_limit, created_at, updated_at
		FROM wallet_accounts WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallet.ErrAccountNotFound
		}
		return nil, fmt.Errorf("口座取得に失敗: %w", err)
	}
	a := &wallet.Account{
		ID: row.ID, Frozen: row.Frozen, FreezeReason: row.FreezeReason, FrozenAt: row.FrozenAt,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
	if row.SpendLimit.Valid {
		limit := row.SpendLimit.Decimal
		a.SpendLimit = &limit
	}
	return a, nil
}

func (r *WalletRepository) SaveAccount(ctx context.Context, a *wallet.Account) error {
	limit := decimal.NullDecimal{}
	if a.SpendLimit != nil {
		limit = decimal.NewNullDecimal(*a.SpendLimit)
	}
	query := `INSERT INTO wallet_accounts (id, frozen, freeze_reason, frozen_at, spend_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			frozen = EXCLUDED.frozen, freeze_reason = EXCLUDED.freeze_reason, frozen_at = EXCLUDED.frozen_at,
			spend_limit = EXCLUDED.spend_limit, updated_at = EXCLUDED.updated_at`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query,
		a.ID, a.Frozen, a.FreezeReason, a.FrozenAt, limit, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		return fmt.Errorf("口座保存に失敗: %w", err)
	}
	return nil
}

func (r *WalletRepository) AppendEntries(ctx context.Context, entries []*wallet.Entry) error {
	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		return r.insertEntries(ctx, entries)
	})
}

func (r *WalletRepository) ReverseTx(ctx context.Context, txID string, compensating []*wallet.Entry) error {
	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		result, err := conn(ctx, r.db).ExecContext(ctx,
			`UPDATE wallet_entries SET status = $1 WHERE tx_id = $2`, string(wallet.EntryReversed), txID)
		if err != nil {
			return fmt.Errorf("仕訳の取消に失敗: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return wallet.ErrTransactionNotFound
		}
		return r.insertEntries(ctx, compensating)
	})
}

// insertEntries は仕訳を挿入する。口座が未登録なら先に作成する
func (r *WalletRepository) insertEntries(ctx context.Context, entries []*wallet.Entry) error {
	db := conn(ctx, r.db)
	for _, e := range entries {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO wallet_accounts (id, created_at, updated_at) VALUES ($1, $2, $2) ON CONFLICT (id) DO NOTHING`,
			e.AccountID, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("口座作成に失敗: %w", err)
		}
		query := `INSERT INTO wallet_entries (` + entryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		if _, err := db.ExecContext(ctx, query,
			e.ID, e.TxID, e.AccountID, e.Amount, string(e.Kind), string(e.Status),
			e.ReversalOf, e.Counterparty, e.Memo, e.CreatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return wallet.ErrDuplicateTransaction
			}
			return fmt.Errorf("仕訳の追記に失敗: %w", err)
		}
	}
	return nil
}

func (r *WalletRepository) EntriesByTx(ctx context.Context, txID string) ([]*wallet.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM wallet_entries WHERE tx_id = $1 ORDER BY seq`
	return r.selectEntries(ctx, query, txID)
}

func (r *WalletRepository) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*wallet.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM wallet_entries WHERE account_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`
	return r.selectEntries(ctx, query, accountID, limit, offset)
}

func (r *WalletRepository) SumApplied(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_entries
		WHERE account_id = $1 AND status IN ('COMMITTED', 'REVERSED')`
	return r.sum(ctx, query, accountID)
}

func (r *WalletRepository) SumSpendSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(-SUM(amount), 0) FROM wallet_entries
		WHERE account_id = $1 AND status = 'COMMITTED' AND amount < 0
		AND kind IN ('BOOKING_DEBIT', 'TRANSFER_OUT') AND created_at >= $2`
	return r.sum(ctx, query, accountID, since)
}

func (r *WalletRepository) sum(ctx context.Context, query string, args ...interface{}) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("残高集計に失敗: %w", err)
	}
	return total, nil
}

func (r *WalletRepository) selectEntries(ctx context.Context, query string, args ...interface{}) ([]*wallet.Entry, error) {
	var rows []entryRow
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("仕訳取得に失敗: %w", err)
	}
	out := make([]*wallet.Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

var _ wallet.Repository = (*WalletRepository)(nil)
