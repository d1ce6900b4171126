// Package records keeps one summary row per battle in sqlite.
package records

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"coffeemon-arena/server/internal/store/records/migrations"
	"coffeemon-arena/server/internal/store/sqlitemigrate"
)

// ErrNotFound is returned when no record exists for a battle id.
var ErrNotFound = errors.New("battle record not found")

// Record summarizes a battle. EndedAt is zero while the battle runs.
type Record struct {
	BattleID  string    `json:"battleId"`
	Player1ID string    `json:"player1Id"`
	Player2ID string    `json:"player2Id"`
	IsBot     bool      `json:"isBot"`
	WinnerID  string    `json:"winnerId,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Turns     int       `json:"turns"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
}

// Store persists battle records.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Finish(ctx context.Context, battleID, winnerID, reason string, turns int, endedAt time.Time) error
	Get(ctx context.Context, battleID string) (Record, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// SQLite is a Store backed by a sqlite file.
type SQLite struct {
	db *sql.DB
}

// pragmas are applied by the modernc driver on every new connection.
const pragmas = "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Open opens or creates the database at path and applies migrations.
func Open(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, eris.New("records: database path is required")
	}
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, eris.Wrap(err, "records: open sqlite")
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "records: ping sqlite")
	}
	if err := sqlitemigrate.Apply(ctx, db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "records: migrate")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, rec Record) error {
	if rec.BattleID == "" {
		return eris.New("records: battle id is required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO battles (battle_id, player1_id, player2_id, is_bot, started_at) VALUES (?, ?, ?, ?, ?)`,
		rec.BattleID, rec.Player1ID, rec.Player2ID, boolToInt(rec.IsBot), rec.StartedAt.UTC().UnixMilli())
	if err != nil {
		return eris.Wrapf(err, "records: create %s", rec.BattleID)
	}
	return nil
}

func (s *SQLite) Finish(ctx context.Context, battleID, winnerID, reason string, turns int, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE battles SET winner_id = ?, end_reason = ?, turns = ?, ended_at = ? WHERE battle_id = ?`,
		winnerID, reason, turns, endedAt.UTC().UnixMilli(), battleID)
	if err != nil {
		return eris.Wrapf(err, "records: finish %s", battleID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "records: finish %s", battleID)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "records: finish %s", battleID)
	}
	return nil
}

const selectColumns = `battle_id, player1_id, player2_id, is_bot, winner_id, end_reason, turns, started_at, ended_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec     Record
		isBot   int
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&rec.BattleID, &rec.Player1ID, &rec.Player2ID, &isBot, &rec.WinnerID, &rec.Reason, &rec.Turns, &started, &ended); err != nil {
		return Record{}, err
	}
	rec.IsBot = isBot != 0
	rec.StartedAt = time.UnixMilli(started).UTC()
	if ended.Valid {
		rec.EndedAt = time.UnixMilli(ended.Int64).UTC()
	}
	return rec, nil
}

func (s *SQLite) Get(ctx context.Context, battleID string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM battles WHERE battle_id = ?`, battleID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, eris.Wrapf(err, "records: get %s", battleID)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM battles ORDER BY started_at DESC, battle_id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "records: recent")
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "records: scan")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "records: iterate")
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Nop discards records. It is used when no database path is configured.
type Nop struct{}

func (Nop) Create(context.Context, Record) error { return nil }
func (Nop) Finish(context.Context, string, string, string, int, time.Time) error {
	return nil
}
func (Nop) Get(context.Context, string) (Record, error)   { return Record{}, ErrNotFound }
func (Nop) Recent(context.Context, int) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                  { return nil }
