package place

import (
	"fmt"
	"math"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Validate checks the fields a place cannot be used without. AddressTitle may be empty
// but must be present. Coordinates are not checked here; see CheckCoordinates.
func (p *Place) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: %s is empty", ErrInvalidArgument, KeyName)
	case p.Description == "":
		return fmt.Errorf("%w: %s is empty", ErrInvalidArgument, KeyDescription)
	case p.Category == "":
		return fmt.Errorf("%w: %s is empty", ErrInvalidArgument, KeyCategory)
	case !p.HasAddressTitle():
		return fmt.Errorf("%w: %s is absent", ErrInvalidArgument, KeyAddressTitle)
	}
	return nil
}

// CheckCoordinates reports latitudes outside [-90, 90] and longitudes outside
// [-180, 180]. NaN is never in range.
func (p *Place) CheckCoordinates() error {
	lat, lon := float64(p.Latitude), float64(p.Longitude)
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return fmt.Errorf("%w: %s %v not in [%v, %v]", ErrOutOfRange, KeyLatitude, p.Latitude, MinLatitude, MaxLatitude)
	}
	if math.IsNaN(lon) || lon < MinLongitude || lon > MaxLongitude {
		return fmt.Errorf("%w: %s %v not in [%v, %v]", ErrOutOfRange, KeyLongitude, p.Longitude, MinLongitude, MaxLongitude)
	}
	return nil
}
