package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
)

const seatColumns = `showtime_id, label, status, price, holder_id, hold_token, hold_expires_at, updated_at, version`

type seatRow struct {
	ShowtimeID    string          `db:"showtime_id"`
	Label         string          `db:"label"`
	Status        string          `db:"status"`
	Price         decimal.Decimal `db:"price"`
	HolderID      string          `db:"holder_id"`
	HoldToken     string          `db:"hold_token"`
	HoldExpiresAt *time.Time      `db:"hold_expires_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
	Version       int             `db:"version"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ShowtimeID: r.ShowtimeID, Label: r.Label, Status: seat.Status(r.Status), Price: r.Price,
		HolderID: r.HolderID, HoldToken: r.HoldToken, HoldExpiresAt: r.HoldExpiresAt,
		UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

type SeatRepository struct {
	db *sqlx.DB
	tx *TxManager
}

func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db, tx: NewTxManager(db)}
}

func (r *SeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		for i := 0; i < len(seats); i += batchSize {
			end := i + batchSize
			if end > len(seats) {
				end = len(seats)
			}
			if err := r.createBulkBatch(ctx, seats[i:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行
func (r *SeatRepository) createBulkBatch(ctx context.Context, seats []*seat.Seat) error {
	const cols = 9
	query := `INSERT INTO seats (` + seatColumns + `) VALUES `
	args := make([]interface{}, 0, len(seats)*cols)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args, s.ShowtimeID, s.Label, string(s.Status), s.Price,
			s.HolderID, s.HoldToken, s.HoldExpiresAt, s.UpdatedAt, s.Version)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return seat.ErrSeatExists
		}
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetMany(ctx context.Context, showtimeID string, labels []string) ([]*seat.Seat, error) {
	var rows []seatRow
	query := `SELECT ` + seatColumns + ` FROM seats WHERE showtime_id = $1 AND label = ANY($2)`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query, showtimeID, pq.Array(labels)); err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}

	byLabel := make(map[string]*seatRow, len(rows))
	for i := range rows {
		byLabel[rows[i].Label] = &rows[i]
	}
	out := make([]*seat.Seat, 0, len(labels))
	for _, l := range labels {
		row, ok := byLabel[l]
		if !ok {
			return nil, seat.ErrSeatNotFound.WithMessage("座席 %s が見つかりません", l)
		}
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *SeatRepository) ListByShowtime(ctx context.Context, showtimeID string) ([]*seat.Seat, error) {
	var rows []seatRow
	query := `SELECT ` + seatColumns + ` FROM seats WHERE showtime_id = $1 ORDER BY label COLLATE "C"`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query, showtimeID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*seat.Seat, error) {
	var rows []seatRow
	query := `SELECT ` + seatColumns + ` FROM seats
		WHERE status = 'HELD' AND hold_expires_at <= $1
		ORDER BY showtime_id, label COLLATE "C" LIMIT $2`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query, now, limit); err != nil {
		return nil, fmt.Errorf("期限切れ座席取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

// UpdateAll は version が一致する座席だけを更新する。1件でも一致しなければ全件ロールバックする
func (r *SeatRepository) UpdateAll(ctx context.Context, seats []*seat.Seat) error {
	query := `UPDATE seats SET status = $1, holder_id = $2, hold_token = $3, hold_expires_at = $4,
		updated_at = $5, version = version + 1
		WHERE showtime_id = $6 AND label = $7 AND version = $8`

	err := r.tx.WithTx(ctx, func(ctx context.Context) error {
		for _, s := range seats {
			result, err := conn(ctx, r.db).ExecContext(ctx, query,
				string(s.Status), s.HolderID, s.HoldToken, s.HoldExpiresAt, s.UpdatedAt,
				s.ShowtimeID, s.Label, s.Version,
			)
			if err != nil {
				return fmt.Errorf("座席更新に失敗: %w", err)
			}
			rows, _ := result.RowsAffected()
			if rows == 0 {
				return seat.ErrOptimisticLockConflict
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, s := range seats {
		s.Version++
	}
	return nil
}

func toSeats(rows []seatRow) []*seat.Seat {
	out := make([]*seat.Seat, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out
}

var _ seat.Repository = (*SeatRepository)(nil)
