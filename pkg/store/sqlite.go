package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harunnryd/payfone/pkg/directory"
	"github.com/harunnryd/payfone/pkg/errorsx"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the dialing directory and vendor settings.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the database at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS routes (
			number TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			avatar TEXT,
			provider TEXT NOT NULL,
			model TEXT,
			voice TEXT,
			prompt TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListRoutes returns every persisted directory entry ordered by number.
func (s *SQLiteStore) ListRoutes(ctx context.Context) ([]directory.Persona, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, label, avatar, provider, model, voice, prompt FROM routes ORDER BY number`)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreIO)
	}
	defer rows.Close()

	var out []directory.Persona
	for rows.Next() {
		var p directory.Persona
		var avatar, model, voice, prompt sql.NullString
		if err := rows.Scan(&p.Number, &p.Label, &avatar, &p.Provider, &model, &voice, &prompt); err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonStoreIO)
		}
		p.Avatar = avatar.String
		p.Model = model.String
		p.Voice = voice.String
		p.Prompt = prompt.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreIO)
	}
	return out, nil
}

// GetRoute fetches one entry by number. A missing route returns (zero, false, nil).
func (s *SQLiteStore) GetRoute(ctx context.Context, number string) (directory.Persona, bool, error) {
	var p directory.Persona
	var avatar, model, voice, prompt sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT number, label, avatar, provider, model, voice, prompt FROM routes WHERE number = ?`,
		number).Scan(&p.Number, &p.Label, &avatar, &p.Provider, &model, &voice, &prompt)
	if err == sql.ErrNoRows {
		return directory.Persona{}, false, nil
	}
	if err != nil {
		return directory.Persona{}, false, errorsx.Wrap(err, errorsx.ReasonStoreIO)
	}
	p.Avatar = avatar.String
	p.Model = model.String
	p.Voice = voice.String
	p.Prompt = prompt.String
	return p, true, nil
}

// PutRoute inserts or replaces a directory entry.
func (s *SQLiteStore) PutRoute(ctx context.Context, p directory.Persona) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routes (number, label, avatar, provider, model, voice, prompt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(number) DO UPDATE SET
		 	label = excluded.label,
		 	avatar = excluded.avatar,
		 	provider = excluded.provider,
		 	model = excluded.model,
		 	voice = excluded.voice,
		 	prompt = excluded.prompt,
		 	updated_at = CURRENT_TIMESTAMP`,
		p.Number, p.Label, p.Avatar, p.Provider, p.Model, p.Voice, p.Prompt)
	return errorsx.Wrap(err, errorsx.ReasonStoreIO)
}

// DeleteRoute removes an entry. Deleting an unknown number is not an error.
func (s *SQLiteStore) DeleteRoute(ctx context.Context, number string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM routes WHERE number = ?`, number)
	return errorsx.Wrap(err, errorsx.ReasonStoreIO)
}

// GetSetting decodes the JSON value stored under key into out.
// A missing key returns (false, nil) and leaves out untouched.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errorsx.Wrap(err, errorsx.ReasonStoreIO)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errorsx.Wrap(err, errorsx.ReasonStoreIO)
	}
	return true, nil
}

// PutSetting stores value as JSON under key.
func (s *SQLiteStore) PutSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreIO)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(raw))
	return errorsx.Wrap(err, errorsx.ReasonStoreIO)
}
