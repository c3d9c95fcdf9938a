package results

import (
	"context"
	"database/sql"
	"errors"
)

// Result is one completed session.
type Result struct {
	SessionID  string `json:"sessionId"`
	ExerciseID string `json:"exerciseId"`
	PlayerID   string `json:"playerId"`
	Score      int    `json:"score"`
	Lives      int    `json:"lives"`
	Outcome    string `json:"outcome"` // won | lost
	ElapsedMs  int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records r. A second insert for the same session is ignored.
func (s *Store) Insert(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO results(session_id, exercise_id, player_id, score, lives, outcome, elapsed_ms)
VALUES(?,?,?,?,?,?,?)`, r.SessionID, r.ExerciseID, r.PlayerID, r.Score, r.Lives, r.Outcome, r.ElapsedMs,
	)
	return err
}

type LBRow struct {
	PlayerID  string `json:"playerId"`
	Score     int    `json:"score"`
	Lives     int    `json:"lives"`
	Outcome   string `json:"outcome"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard returns the best results for an exercise: highest score first,
// then fastest, then earliest.
func (s *Store) Leaderboard(ctx context.Context, exerciseID string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, score, lives, outcome, elapsed_ms
FROM results
WHERE exercise_id=?
ORDER BY score DESC, elapsed_ms ASC, created_at ASC, id ASC
LIMIT ?`, exerciseID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LBRow{}
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Score, &r.Lives, &r.Outcome, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BestScore returns the player's top score on an exercise; ok is false when
// they have no result yet.
func (s *Store) BestScore(ctx context.Context, exerciseID, playerID string) (score int, ok bool, err error) {
	var best sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(score) FROM results WHERE exercise_id=? AND player_id=?`,
		exerciseID, playerID,
	).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(best.Int64), best.Valid, nil
}
