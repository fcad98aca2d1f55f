package place

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/ssherwood/placeservice/internal/config"
)

const (
	KeyName          = "name"
	KeyDescription   = "description"
	KeyCategory      = "category"
	KeyAddressTitle  = "address-title"
	KeyAddressStreet = "address-street"
	KeyElevation     = "elevation"
	KeyLatitude      = "latitude"
	KeyLongitude     = "longitude"
	KeyImage         = "image"
)

// FromMap builds a Place from its map form. Keys are consumed in a fixed order and
// conversion stops at the first missing or mistyped key: the returned Place keeps every
// field assigned before that key and the error is a *FieldError.
func FromMap(m map[string]any) (*Place, error) {
	p := New()
	err := p.fromMap(m)
	if err != nil {
		slog.Warn("Unable to convert place from map", slog.String("place.name", p.Name), config.ErrAttr(err))
	}
	return p, err
}

func (p *Place) fromMap(m map[string]any) (err error) {
	if p.Name, err = stringField(m, KeyName); err != nil {
		return err
	}
	title, err := stringField(m, KeyAddressTitle)
	if err != nil {
		return err
	}
	p.SetAddressTitle(title)

	if p.AddressPostal, err = stringField(m, KeyAddressStreet); err != nil {
		return err
	}
	if p.Elevation, err = floatField(m, KeyElevation); err != nil {
		return err
	}

	lat, err := floatField(m, KeyLatitude)
	if err != nil {
		return err
	}
	p.Latitude = float32(lat)

	lon, err := floatField(m, KeyLongitude)
	if err != nil {
		return err
	}
	p.Longitude = float32(lon)

	if p.Image, err = stringField(m, KeyImage); err != nil {
		return err
	}
	if p.Description, err = stringField(m, KeyDescription); err != nil {
		return err
	}
	if p.Category, err = stringField(m, KeyCategory); err != nil {
		return err
	}
	return nil
}

// ToMap exports all nine fields. Latitude and longitude stay float32. An absent address
// title is exported as nil.
func (p *Place) ToMap() map[string]any {
	var title any
	if p.HasAddressTitle() {
		title = p.AddressTitle
	}
	return map[string]any{
		KeyName:          p.Name,
		KeyAddressTitle:  title,
		KeyAddressStreet: p.AddressPostal,
		KeyElevation:     p.Elevation,
		KeyLatitude:      p.Latitude,
		KeyLongitude:     p.Longitude,
		KeyImage:         p.Image,
		KeyDescription:   p.Description,
		KeyCategory:      p.Category,
	}
}

type placeJSON struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	AddressTitle  *string `json:"address-title"`
	AddressStreet string  `json:"address-street"`
	Elevation     float64 `json:"elevation"`
	Latitude      float32 `json:"latitude"`
	Longitude     float32 `json:"longitude"`
	Image         string  `json:"image"`
}

// MarshalJSON writes an absent address title as null.
func (p Place) MarshalJSON() ([]byte, error) {
	var title *string
	if p.HasAddressTitle() {
		title = &p.AddressTitle
	}
	return json.Marshal(placeJSON{
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		AddressTitle:  title,
		AddressStreet: p.AddressPostal,
		Elevation:     p.Elevation,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		Image:         p.Image,
	})
}

// UnmarshalJSON requires all nine keys. On a *FieldError p still receives the
// partially populated record.
func (p *Place) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m == nil {
		return &FieldError{Key: KeyName, Reason: "missing"}
	}

	decoded, err := FromMap(m)
	*p = *decoded
	return err
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", &FieldError{Key: key, Reason: "missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &FieldError{Key: key, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return s, nil
}

func floatField(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, &FieldError{Key: key, Reason: "missing"}
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, &FieldError{Key: key, Reason: fmt.Sprintf("expected number, got %T", v)}
	}
	return f, nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}
