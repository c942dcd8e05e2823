package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
)

const showtimeColumns = `id, movie_title, hall, starts_at, ends_at, status, created_at, updated_at`

type showtimeRow struct {
	ID         string    `db:"id"`
	MovieTitle string    `db:"movie_title"`
	Hall       string    `db:"hall"`
	StartsAt   time.Time `db:"starts_at"`
	EndsAt     time.Time `db:"ends_at"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *showtimeRow) toEntity() *showtime.Showtime {
	return &showtime.Showtime{
		ID: r.ID, MovieTitle: r.MovieTitle, Hall: r.Hall,
		StartsAt: r.StartsAt, EndsAt: r.EndsAt, Status: showtime.Status(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type ShowtimeRepository struct{ db *sqlx.DB }

func NewShowtimeRepository(db *sqlx.DB) *ShowtimeRepository { return &ShowtimeRepository{db: db} }

func (r *ShowtimeRepository) Create(ctx context.Context, s *showtime.Showtime) error {
	query := `INSERT INTO showtimes (` + showtimeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.MovieTitle, s.Hall, s.StartsAt, s.EndsAt, string(s.Status), s.CreatedAt, s.UpdatedAt,
	); err != nil {
		return fmt.Errorf("上映回作成に失敗: %w", err)
	}
	return nil
}

func (r *ShowtimeRepository) GetByID(ctx context.Context, id string) (*showtime.Showtime, error) {
	var row showtimeRow
	query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = $1`
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, showtime.ErrShowtimeNotFound
		}
		return nil, fmt.Errorf("上映回取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ShowtimeRepository) List(ctx context.Context, limit, offset int) ([]*showtime.Showtime, error) {
	var rows []showtimeRow
	query := `SELECT ` + showtimeColumns + ` FROM showtimes ORDER BY starts_at LIMIT $1 OFFSET $2`
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("上映回一覧取得に失敗: %w", err)
	}
	out := make([]*showtime.Showtime, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (r *ShowtimeRepository) Update(ctx context.Context, s *showtime.Showtime) error {
	query := `UPDATE showtimes SET movie_title = $1, hall = $2, starts_at = $3, ends_at = $4, status = $5, updated_at = $6 WHERE id = $7`
	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		s.MovieTitle, s.Hall, s.StartsAt, s.EndsAt, string(s.Status), s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("上映回更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return showtime.ErrShowtimeNotFound
	}
	return nil
}

var _ showtime.Repository = (*ShowtimeRepository)(nil)
