package place

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func asuPolyMap() map[string]any {
	return map[string]any{
		"name":           "ASU-Poly",
		"description":    "Home of ASU's Software Engineering Programs",
		"category":       "School",
		"address-title":  "ASU Software Engineering",
		"address-street": "7171 E Sonoran Arroyo Mall\nPeralta Hall 230\nMesa AZ 85212",
		"elevation":      1384.0,
		"latitude":       float32(33.306388),
		"longitude":      float32(-111.679121),
		"image":          "asu.png",
	}
}

func TestFromMap(t *testing.T) {
	p, err := FromMap(asuPolyMap())
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	want := Place{
		Name:          "ASU-Poly",
		Description:   "Home of ASU's Software Engineering Programs",
		Category:      "School",
		AddressTitle:  "ASU Software Engineering",
		AddressPostal: "7171 E Sonoran Arroyo Mall\nPeralta Hall 230\nMesa AZ 85212",
		Elevation:     1384.0,
		Latitude:      33.306388,
		Longitude:     -111.679121,
		Image:         "asu.png",
	}
	if *p != want {
		t.Fatalf("FromMap() = %+v; want %+v", *p, want)
	}
}

func TestFromMap_ToMapRoundTrip(t *testing.T) {
	m := asuPolyMap()

	p, err := FromMap(m)
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if got := p.ToMap(); !reflect.DeepEqual(got, m) {
		t.Fatalf("ToMap(FromMap(m)) = %v; want %v", got, m)
	}
}

// JSON-like input carries float64 coordinates; they come back within float32 precision.
func TestFromMap_ToMapRoundTripFloat64(t *testing.T) {
	m := asuPolyMap()
	m["latitude"] = 33.306388
	m["longitude"] = -111.679121

	p, err := FromMap(m)
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	got := p.ToMap()
	if len(got) != len(m) {
		t.Fatalf("ToMap() has %d keys; want %d", len(got), len(m))
	}
	for key, want := range m {
		switch key {
		case KeyLatitude, KeyLongitude:
			f, ok := got[key].(float32)
			if !ok {
				t.Fatalf("ToMap()[%q] = %T; want float32", key, got[key])
			}
			if diff := math.Abs(float64(f) - want.(float64)); diff > 1e-5 {
				t.Errorf("ToMap()[%q] = %v; want %v within float32 precision", key, f, want)
			}
		default:
			if got[key] != want {
				t.Errorf("ToMap()[%q] = %v; want %v", key, got[key], want)
			}
		}
	}
}

func TestFromMap_EmptyAddressTitle(t *testing.T) {
	m := asuPolyMap()
	m["address-title"] = ""

	p, err := FromMap(m)
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if !p.HasAddressTitle() {
		t.Fatal("HasAddressTitle() = false; want an empty title to count as present")
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v; want nil", err)
	}
	if got := p.ToMap()[KeyAddressTitle]; got != "" {
		t.Fatalf("ToMap()[address-title] = %#v; want empty string", got)
	}
}

func TestPlace_JSONAbsentAddressTitle(t *testing.T) {
	p := asuPoly()
	p.ClearAddressTitle()

	if got := p.ToMap()[KeyAddressTitle]; got != nil {
		t.Fatalf("ToMap()[address-title] = %#v; want nil", got)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal(map) error = %v", err)
	}
	if v, ok := back[KeyAddressTitle]; !ok || v != nil {
		t.Fatalf("address-title = %#v (present %v); want null", v, ok)
	}
}

func TestFromMap_NarrowsCoordinates(t *testing.T) {
	m := asuPolyMap()
	m["latitude"] = 33.306388
	m["longitude"] = -111.679121

	p, err := FromMap(m)
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}
	if p.Latitude != float32(33.306388) {
		t.Errorf("Latitude = %v; want %v", p.Latitude, float32(33.306388))
	}
	if p.Longitude != float32(-111.679121) {
		t.Errorf("Longitude = %v; want %v", p.Longitude, float32(-111.679121))
	}
}

func TestFromMap_AcceptsNumberKinds(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  float64
	}{
		{"float64", 1384.0, 1384},
		{"float32", float32(12.5), 12.5},
		{"int", 1384, 1384},
		{"int64", int64(-20), -20},
		{"uint16", uint16(7), 7},
		{"json number", json.Number("1384.25"), 1384.25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := asuPolyMap()
			m["elevation"] = tc.value

			p, err := FromMap(m)
			if err != nil {
				t.Fatalf("FromMap() error = %v", err)
			}
			if p.Elevation != tc.want {
				t.Fatalf("Elevation = %v; want %v", p.Elevation, tc.want)
			}
		})
	}
}

func TestFromMap_StopsAtFirstBadKey(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(m map[string]any)
		wantKey string
		want    Place
	}{
		{
			name:    "missing elevation",
			mutate:  func(m map[string]any) { delete(m, "elevation") },
			wantKey: "elevation",
			want: Place{
				Name:          "ASU-Poly",
				AddressTitle:  "ASU Software Engineering",
				AddressPostal: "7171 E Sonoran Arroyo Mall\nPeralta Hall 230\nMesa AZ 85212",
			},
		},
		{
			name:    "missing name",
			mutate:  func(m map[string]any) { delete(m, "name") },
			wantKey: "name",
			want:    Place{},
		},
		{
			name:    "latitude is a string",
			mutate:  func(m map[string]any) { m["latitude"] = "33.3" },
			wantKey: "latitude",
			want: Place{
				Name:          "ASU-Poly",
				AddressTitle:  "ASU Software Engineering",
				AddressPostal: "7171 E Sonoran Arroyo Mall\nPeralta Hall 230\nMesa AZ 85212",
				Elevation:     1384,
			},
		},
		{
			name:    "category is a number",
			mutate:  func(m map[string]any) { m["category"] = 3 },
			wantKey: "category",
			want: Place{
				Name:          "ASU-Poly",
				Description:   "Home of ASU's Software Engineering Programs",
				AddressTitle:  "ASU Software Engineering",
				AddressPostal: "7171 E Sonoran Arroyo Mall\nPeralta Hall 230\nMesa AZ 85212",
				Elevation:     1384,
				Latitude:      33.306388,
				Longitude:     -111.679121,
				Image:         "asu.png",
			},
		},
		{
			name:    "null image",
			mutate:  func(m map[string]any) { m["image"] = nil },
			wantKey: "image",
			want: Place{
				Name:          "ASU-Poly",
				AddressTitle:  "ASU Software Engineering",
				AddressPostal: "7171 E Sonoran Arroyo Mall\nPeralta Hall 230\nMesa AZ 85212",
				Elevation:     1384,
				Latitude:      33.306388,
				Longitude:     -111.679121,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := asuPolyMap()
			tc.mutate(m)

			p, err := FromMap(m)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("FromMap() error = %v; want ErrMalformed", err)
			}

			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) || fieldErr.Key != tc.wantKey {
				t.Fatalf("FromMap() error = %v; want FieldError for %q", err, tc.wantKey)
			}
			if p == nil || *p != tc.want {
				t.Fatalf("FromMap() partial = %+v; want %+v", p, tc.want)
			}
		})
	}
}

func TestPlace_JSON(t *testing.T) {
	input := `{"name":"ASU-Poly","description":"Home of ASU's Software Engineering Programs","category":"School",` +
		`"address-title":"ASU Software Engineering","address-street":"7171 E Sonoran Arroyo Mall",` +
		`"elevation":1384.0,"latitude":33.306388,"longitude":-111.679121,"image":"asu.png"}`

	var p Place
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if p.Latitude != float32(33.306388) || p.Longitude != float32(-111.679121) {
		t.Fatalf("coordinates = (%v, %v); want (33.306388, -111.679121)", p.Latitude, p.Longitude)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal(map) error = %v", err)
	}
	for _, key := range []string{KeyName, KeyDescription, KeyCategory, KeyAddressTitle, KeyAddressStreet,
		KeyElevation, KeyLatitude, KeyLongitude, KeyImage} {
		if _, ok := back[key]; !ok {
			t.Errorf("Marshal() output has no %q key: %s", key, out)
		}
	}
	if back[KeyLatitude] != 33.306388 {
		t.Errorf("latitude = %v; want 33.306388", back[KeyLatitude])
	}

	var again Place
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("Unmarshal(Marshal()) error = %v", err)
	}
	if again != p {
		t.Fatalf("JSON round trip = %+v; want %+v", again, p)
	}
}

func TestPlace_UnmarshalJSONMissingKey(t *testing.T) {
	var p Place
	err := json.Unmarshal([]byte(`{"name":"ASU-Poly","address-title":"ASU","address-street":"7171"}`), &p)

	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Key != KeyElevation {
		t.Fatalf("Unmarshal() error = %v; want FieldError for elevation", err)
	}
	if p.Name != "ASU-Poly" || p.AddressPostal != "7171" {
		t.Fatalf("partial place = %+v; want name and address kept", p)
	}
}
