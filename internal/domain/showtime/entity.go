package showtime

import "time"

// Status は上映回の販売状態を表す
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Showtime は上映回エンティティを表す
type Showtime struct {
	ID         string
	MovieTitle string
	Hall       string
	StartsAt   time.Time
	EndsAt     time.Time
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewShowtime は販売中の上映回を作成する
func NewShowtime(id, movieTitle, hall string, startsAt, endsAt, now time.Time) *Showtime {
	return &Showtime{
		ID:         id,
		MovieTitle: movieTitle,
		Hall:       hall,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		Status:     StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate は上映回の検証を行う
func (s *Showtime) Validate() error {
	if s.MovieTitle == "" {
		return ErrMovieTitleRequired
	}
	if s.Hall == "" {
		return ErrHallRequired
	}
	if !s.EndsAt.After(s.StartsAt) {
		return ErrInvalidShowtime
	}
	return nil
}

// IsOpenForSale は now の時点で販売可能かを返す
// cutoff は開始時刻の何分前まで販売するか
func (s *Showtime) IsOpenForSale(now time.Time, cutoff time.Duration) bool {
	if s.Status != StatusOpen {
		return false
	}
	return now.Before(s.StartsAt.Add(-cutoff))
}

// Overlaps は上映時間が重なるかを返す
func (s *Showtime) Overlaps(other *Showtime) bool {
	return s.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(s.EndsAt)
}

// Close は販売を終了する
func (s *Showtime) Close(now time.Time) {
	s.Status = StatusClosed
	s.UpdatedAt = now
}
