package place

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ssherwood/placeservice/internal/config"
	"github.com/yugabyte/pgx/v5"
	"github.com/yugabyte/pgx/v5/pgconn"
	"github.com/yugabyte/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const pgSchema = `
CREATE TABLE IF NOT EXISTS place (
    id             UUID PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    description    TEXT NOT NULL,
    category       TEXT NOT NULL,
    address_title  TEXT NOT NULL,
    address_postal TEXT NOT NULL,
    elevation      DOUBLE PRECISION NOT NULL,
    latitude       REAL NOT NULL,
    longitude      REAL NOT NULL,
    image          TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Repository is the Postgres/YugabyteDB Store.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("create place table: %w", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, p *Place) (*Place, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DBQueryTimeout)
	defer cancel()

	created, err := scanPlace(r.db.QueryRow(ctx,
		`INSERT INTO place (id, `+placeColumns+`)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
           RETURNING `+placeColumns,
		uuid.New(), p.Name, p.Description, p.Category, p.AddressTitle, p.AddressPostal,
		p.Elevation, p.Latitude, p.Longitude, p.Image))
	if err != nil {
		return nil, pgError(err, p.Name)
	}
	return created, nil
}

// Get reads in a read-only transaction; with DB_FOLLOWER_READS the session is switched
// to yb_read_from_followers for the duration of the transaction.
func (r *Repository) Get(ctx context.Context, name string) (*Place, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DBQueryTimeout)
	defer cancel()

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	// must be set BEFORE the BEGIN, and reset after
	if config.DBFollowerReads {
		_, _ = conn.Exec(ctx, "set yb_read_from_followers = true")
		defer func() { _, _ = conn.Exec(context.Background(), "set yb_read_from_followers = false") }()
	}

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}

	p, err := scanPlace(tx.QueryRow(ctx,
		`select `+placeColumns+`
           from place
          where name=$1`, name))
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, pgError(err, name)
	}

	if err := tx.Commit(ctx); err != nil {
		slog.Debug("Read-only commit failed", slog.String("place.name", name), config.ErrAttr(err))
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context) ([]Place, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DBQueryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `select `+placeColumns+` from place order by name`)
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

func (r *Repository) Update(ctx context.Context, name string, p *Place) (*Place, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DBQueryTimeout)
	defer cancel()

	updated, err := scanPlace(r.db.QueryRow(ctx,
		`UPDATE place
            SET name=$1, description=$2, category=$3, address_title=$4, address_postal=$5,
                elevation=$6, latitude=$7, longitude=$8, image=$9, updated_at=now()
          WHERE name=$10
      RETURNING `+placeColumns,
		p.Name, p.Description, p.Category, p.AddressTitle, p.AddressPostal,
		p.Elevation, p.Latitude, p.Longitude, p.Image, name))
	if err != nil {
		return nil, pgError(err, name)
	}
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DBQueryTimeout)
	defer cancel()

	commandTag, err := r.db.Exec(ctx, "DELETE FROM place WHERE name=$1", name)
	if err != nil {
		return err
	}
	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (r *Repository) Close() error {
	// TODO is this graceful for in-flight transactions?
	r.db.Close()
	return nil
}

func pgError(err error, name string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	return err
}
