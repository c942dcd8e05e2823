package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
)

const (
	discountColumns   = `code, name, type, value, starts_at, ends_at, single_use, quantity, created_at`
	redemptionColumns = `id, code, member_id, order_id, status, reserved_at, redeemed_at, released_at`
	activeRedemption  = `status IN ('RESERVED', 'COMMITTED')`
)

type discountRow struct {
	Code      string          `db:"code"`
	Name      string          `db:"name"`
	Type      string          `db:"type"`
	Value     decimal.Decimal `db:"value"`
	StartsAt  time.Time       `db:"starts_at"`
	EndsAt    time.Time       `db:"ends_at"`
	SingleUse bool            `db:"single_use"`
	Quantity  int             `db:"quantity"`
	CreatedAt time.Time       `db:"created_at"`
}

type redemptionRow struct {
	ID         string     `db:"id"`
	Code       string     `db:"code"`
	MemberID   string     `db:"member_id"`
	OrderID    string     `db:"order_id"`
	Status     string     `db:"status"`
	ReservedAt time.Time  `db:"reserved_at"`
	RedeemedAt *time.Time `db:"redeemed_at"`
	ReleasedAt *time.Time `db:"released_at"`
}

func (r *redemptionRow) toEntity() *discount.Redemption {
	return &discount.Redemption{
		ID: r.ID, Code: r.Code, MemberID: r.MemberID, OrderID: r.OrderID,
		Status: discount.RedemptionStatus(r.Status), ReservedAt: r.ReservedAt,
		RedeemedAt: r.RedeemedAt, ReleasedAt: r.ReleasedAt,
	}
}

type DiscountRepository struct{ db *sqlx.DB }

func NewDiscountRepository(db *sqlx.DB) *DiscountRepository { return &DiscountRepository{db: db} }

func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	query := `INSERT INTO discounts (` + discountColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		discount.NormalizeCode(d.Code), d.Name, string(d.Type), d.Value,
		d.StartsAt, d.EndsAt, d.SingleUse, d.Quantity, d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return discount.ErrDiscountExists
		}
		return fmt.Errorf("割引コード登録に失敗: %w", err)
	}
	return nil
}

func (r *DiscountRepository) Get(ctx context.Context, code string) (*discount.Discount, error) {
	var row discountRow
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &row, query, discount.NormalizeCode(code)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, discount.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("割引コード取得に失敗: %w", err)
	}
	return &discount.Discount{
		Code: row.Code, Name: row.Name, Type: discount.Type(row.Type), Value: row.Value,
		StartsAt: row.StartsAt, EndsAt: row.EndsAt, SingleUse: row.SingleUse,
		Quantity: row.Quantity, CreatedAt: row.CreatedAt,
	}, nil
}

func (r *DiscountRepository) CreateRedemption(ctx context.Context, red *discount.Redemption) error {
	query := `INSERT INTO discount_redemptions (` + redemptionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		red.ID, red.Code, red.MemberID, red.OrderID, string(red.Status),
		red.ReservedAt, red.RedeemedAt, red.ReleasedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return discount.ErrDiscountAlreadyUsed
		}
		return fmt.Errorf("割引利用記録の作成に失敗: %w", err)
	}
	return nil
}

func (r *DiscountRepository) GetRedemption(ctx context.Context, id string) (*discount.Redemption, error) {
	return r.getRedemption(ctx, `SELECT `+redemptionColumns+` FROM discount_redemptions WHERE id = $1`, id)
}

func (r *DiscountRepository) UpdateRedemption(ctx context.Context, red *discount.Redemption) error {
	query := `UPDATE discount_redemptions SET status = $1, redeemed_at = $2, released_at = $3 WHERE id = $4`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, string(red.Status), red.RedeemedAt, red.ReleasedAt, red.ID)
	if err != nil {
		return fmt.Errorf("割引利用記録の更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return discount.ErrRedemptionNotFound
	}
	return nil
}

func (r *DiscountRepository) FindActiveByOrder(ctx context.Context, code, orderID string) (*discount.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM discount_redemptions
		WHERE code = $1 AND order_id = $2 AND ` + activeRedemption + ` LIMIT 1`
	return r.getRedemption(ctx, query, discount.NormalizeCode(code), orderID)
}

func (r *DiscountRepository) CountActive(ctx context.Context, code string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM discount_redemptions WHERE code = $1 AND ` + activeRedemption
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &n, query, discount.NormalizeCode(code)); err != nil {
		return 0, fmt.Errorf("割引利用件数の取得に失敗: %w", err)
	}
	return n, nil
}

func (r *DiscountRepository) HasActiveForMember(ctx context.Context, code, memberID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM discount_redemptions WHERE code = $1 AND member_id = $2 AND ` + activeRedemption + `)`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &exists, query, discount.NormalizeCode(code), memberID); err != nil {
		return false, fmt.Errorf("割引利用状況の取得に失敗: %w", err)
	}
	return exists, nil
}

func (r *DiscountRepository) getRedemption(ctx context.Context, query string, args ...interface{}) (*discount.Redemption, error) {
	var row redemptionRow
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, discount.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("割引利用記録の取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

var _ discount.Repository = (*DiscountRepository)(nil)
