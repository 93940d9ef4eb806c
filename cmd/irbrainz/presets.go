package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrPresetNotFound is returned when no preset is stored under a number.
var ErrPresetNotFound = errors.New("preset not found")

const sqliteDriverName = "sqlite"

const schemaPresets = `
CREATE TABLE IF NOT EXISTS presets (
    num INTEGER PRIMARY KEY CHECK (num > 0),
    state TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// presetQueryTimeout bounds store access from the daemon loop.
const presetQueryTimeout = time.Second

// PresetStore persists numbered light states in SQLite.
type PresetStore struct {
	db *sql.DB
}

// PresetInfo describes one stored preset.
type PresetInfo struct {
	Num       int        `json:"num"`
	State     LightState `json:"state"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// OpenPresetStore opens/creates the SQLite preset database and ensures the
// schema exists.
func OpenPresetStore(path string) (*PresetStore, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create preset dir: %w", err)
		}
	}

	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite does not like concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set PRAGMA busy_timeout=5000: %w", err)
	}
	if _, err := db.Exec(schemaPresets); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply preset schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &PresetStore{db: db}, nil
}

func (s *PresetStore) Close() error {
	return s.db.Close()
}

// Get loads preset n.
func (s *PresetStore) Get(ctx context.Context, n int) (LightState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM presets WHERE num = ?`, n).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return LightState{}, fmt.Errorf("%w: %d", ErrPresetNotFound, n)
	}
	if err != nil {
		return LightState{}, fmt.Errorf("query preset %d: %w", n, err)
	}

	var st LightState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return LightState{}, fmt.Errorf("decode preset %d: %w", n, err)
	}
	return st, nil
}

// Save stores st as preset n, replacing any previous one.
func (s *PresetStore) Save(ctx context.Context, n int, st LightState) error {
	if n <= 0 {
		return fmt.Errorf("invalid preset number %d", n)
	}
	st.Preset = n
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode preset %d: %w", n, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO presets (num, state, updated_at) VALUES (?, ?, ?)
ON CONFLICT(num) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		n, string(b), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save preset %d: %w", n, err)
	}
	return nil
}

// Delete removes preset n.
func (s *PresetStore) Delete(ctx context.Context, n int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE num = ?`, n)
	if err != nil {
		return fmt.Errorf("delete preset %d: %w", n, err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("%w: %d", ErrPresetNotFound, n)
	}
	return nil
}

// List returns every stored preset ordered by number.
func (s *PresetStore) List(ctx context.Context) ([]PresetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT num, state, updated_at FROM presets ORDER BY num`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var out []PresetInfo
	for rows.Next() {
		var (
			info PresetInfo
			raw  string
		)
		if err := rows.Scan(&info.Num, &raw, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &info.State); err != nil {
			return nil, fmt.Errorf("decode preset %d: %w", info.Num, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return out, nil
}

// presetApplier applies stored presets to the light. It implements
// remote.PresetStore.
type presetApplier struct {
	store  *PresetStore
	light  *Light
	logger *slog.Logger
}

// Apply restores preset n onto the light. It reports false when the preset
// is missing or cannot be read.
func (a *presetApplier) Apply(n int) bool {
	if a.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), presetQueryTimeout)
	defer cancel()

	st, err := a.store.Get(ctx, n)
	if err != nil {
		if !errors.Is(err, ErrPresetNotFound) {
			a.logger.Warn("preset load failed", "preset", n, "error", err)
		}
		return false
	}
	st.Preset = n
	a.light.Restore(st)
	return true
}
