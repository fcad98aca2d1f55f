package place

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS place (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    description    TEXT NOT NULL,
    category       TEXT NOT NULL,
    address_title  TEXT NOT NULL,
    address_postal TEXT NOT NULL,
    elevation      REAL NOT NULL,
    latitude       REAL NOT NULL,
    longitude      REAL NOT NULL,
    image          TEXT NOT NULL DEFAULT '',
    created_at     TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore is the single-file Store used for local catalogs.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db path: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", filepath.Clean(dbPath))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create place table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, p *Place) (*Place, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO place (id, `+placeColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), p.Name, p.Description, p.Category, p.AddressTitle, p.AddressPostal,
		p.Elevation, float64(p.Latitude), float64(p.Longitude), p.Image)
	if err != nil {
		return nil, sqliteError(err, p.Name)
	}
	return s.Get(ctx, p.Name)
}

func (s *SQLiteStore) Get(ctx context.Context, name string) (*Place, error) {
	p, err := scanPlace(s.db.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM place WHERE name = ?`, name))
	if err != nil {
		return nil, sqliteError(err, name)
	}
	return p, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Place, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+placeColumns+` FROM place ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	places := make([]Place, 0)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, *p)
	}
	return places, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, name string, p *Place) (*Place, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE place
		    SET name = ?, description = ?, category = ?, address_title = ?, address_postal = ?,
		        elevation = ?, latitude = ?, longitude = ?, image = ?, updated_at = CURRENT_TIMESTAMP
		  WHERE name = ?`,
		p.Name, p.Description, p.Category, p.AddressTitle, p.AddressPostal,
		p.Elevation, float64(p.Latitude), float64(p.Longitude), p.Image, name)
	if err != nil {
		return nil, sqliteError(err, p.Name)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.Get(ctx, p.Name)
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM place WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteError(err error, name string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
	}
	return err
}
