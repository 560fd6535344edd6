// internal/results/store.go
//
// SQL persistence for round history.
// Every round gets a row when it starts; the row is bumped on each guess and
// closed when the engine solves it. Closing a round owned by a user also
// updates that user's counters.

package results

import (
	"context"
	"database/sql"
	"time"
)

// Round statuses stored in rounds.status.
const (
	StatusPlaying   = "playing"
	StatusSolved    = "solved"
	StatusAbandoned = "abandoned" // replaced by a newer round of the same owner
)

// MaxLeaderboard caps the rows Leaderboard returns.
const MaxLeaderboard = 100

// Record is one row of the rounds table.
type Record struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	AnonymousID string     `json:"-"`
	Target      int        `json:"target"`
	Strategy    string     `json:"strategy"`
	Guesses     int        `json:"guesses"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Stats summarises a user's finished rounds.
type Stats struct {
	GamesPlayed   int     `json:"gamesPlayed"`
	TotalRounds   int     `json:"totalRounds"`
	AverageRounds float64 `json:"averageRounds"`
}

// TargetRow is a leaderboard entry: how hard a target was to find.
type TargetRow struct {
	Target        int     `json:"target"`
	Plays         int     `json:"plays"`
	AverageRounds float64 `json:"averageRounds"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Start inserts a new round row owned by either r.UserID or r.AnonymousID.
func (s *Store) Start(ctx context.Context, r Record) error {
	if r.Status == "" {
		r.Status = StatusPlaying
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (id, user_id, anonymous_id, target, strategy, guesses, status, started_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		r.ID, nullable(r.UserID), nullable(r.AnonymousID), r.Target, r.Strategy, r.Guesses, r.Status,
		r.StartedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// Progress records the current guess count of a playing round.
func (s *Store) Progress(ctx context.Context, id string, guesses int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET guesses=? WHERE id=? AND status=?`, guesses, id, StatusPlaying)
	return err
}

// Finish marks a round solved and bumps the owner's counters.
// Finishing an already solved round is a no-op.
func (s *Store) Finish(ctx context.Context, id string, guesses int, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE rounds SET guesses=?, status=?, finished_at=? WHERE id=? AND status=?`,
		guesses, StatusSolved, at.UTC().Format(time.RFC3339), id, StatusPlaying)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET games_played = games_played + 1, total_rounds = total_rounds + ?
		 WHERE id = (SELECT user_id FROM rounds WHERE id=?)`, guesses, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Abandon closes a playing round that will never be finished.
// Abandoned rounds do not count towards stats or the leaderboard.
func (s *Store) Abandon(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET status=?, finished_at=? WHERE id=? AND status=?`,
		StatusAbandoned, at.UTC().Format(time.RFC3339), id, StatusPlaying)
	return err
}

// Mine lists a user's most recent rounds, newest first.
func (s *Store) Mine(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(user_id,''), COALESCE(anonymous_id,''), target, strategy, guesses, status,
		        started_at, COALESCE(finished_at,'')
		 FROM rounds WHERE user_id=? ORDER BY started_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		var started, finished string
		if err := rows.Scan(&r.ID, &r.UserID, &r.AnonymousID, &r.Target, &r.Strategy, &r.Guesses, &r.Status,
			&started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if t, err := time.Parse(time.RFC3339, finished); err == nil {
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats reads the user's counters.
func (s *Store) Stats(ctx context.Context, userID string) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT games_played, total_rounds FROM users WHERE id=?`, userID,
	).Scan(&st.GamesPlayed, &st.TotalRounds)
	if err != nil {
		return Stats{}, err
	}
	if st.GamesPlayed > 0 {
		st.AverageRounds = float64(st.TotalRounds) / float64(st.GamesPlayed)
	}
	return st, nil
}

// Leaderboard returns the targets that took the most rounds to find on
// average across all solved rounds. Limits outside (0, MaxLeaderboard] fall
// back to 20.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]TargetRow, error) {
	if limit <= 0 || limit > MaxLeaderboard {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT target, COUNT(1), AVG(guesses)
		 FROM rounds
		 WHERE status=?
		 GROUP BY target
		 ORDER BY AVG(guesses) DESC, COUNT(1) DESC, target ASC
		 LIMIT ?`, StatusSolved, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TargetRow{}
	for rows.Next() {
		var r TargetRow
		if err := rows.Scan(&r.Target, &r.Plays, &r.AverageRounds); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClaimAnon transfers anonymous rounds to a user account after auth.
// Solved rounds moved this way are added to the user's counters.
func (s *Store) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var played, total int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(guesses),0) FROM rounds WHERE anonymous_id=? AND status=?`,
		anonID, StatusSolved,
	).Scan(&played, &total); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE rounds SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		return err
	}
	if played > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET games_played = games_played + ?, total_rounds = total_rounds + ? WHERE id=?`,
			played, total, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
