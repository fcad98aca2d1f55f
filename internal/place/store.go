package place

import "context"

// Store keeps places keyed by name.
type Store interface {
	Create(ctx context.Context, p *Place) (*Place, error)
	Get(ctx context.Context, name string) (*Place, error)
	List(ctx context.Context) ([]Place, error)
	Update(ctx context.Context, name string, p *Place) (*Place, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

const placeColumns = `name, description, category, address_title, address_postal, elevation, latitude, longitude, image`

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPlace reads one row in placeColumns order. The address_title column is NOT NULL,
// so a stored title is always present.
func scanPlace(row rowScanner) (*Place, error) {
	var p Place
	var title string
	var lat, lon float64
	if err := row.Scan(&p.Name, &p.Description, &p.Category, &title, &p.AddressPostal,
		&p.Elevation, &lat, &lon, &p.Image); err != nil {
		return nil, err
	}
	p.SetAddressTitle(title)
	p.Latitude, p.Longitude = float32(lat), float32(lon)
	return &p, nil
}
