package place

// Place is a named real-world location with descriptive and geocoding metadata.
//
// Example in map/JSON form:
//
//	{
//	  "name" : "ASU-Poly",
//	  "description" : "Home of ASU's Software Engineering Programs",
//	  "category" : "School",
//	  "address-title" : "ASU Software Engineering",
//	  "address-street" : "7171 E Sonoran Arroyo Mall\nPeralta Hall 230\nMesa AZ 85212",
//	  "elevation" : 1384.0,
//	  "latitude" : 33.306388,
//	  "longitude" : -111.679121,
//	  "image" : "asu.png"
//	}
type Place struct {
	// Unique among the places of a catalog, usually one or two words. Uniqueness is
	// enforced by the Store, not here.
	Name        string
	Description string
	// Free-form label for the kind of place.
	Category string
	// A non-empty title is always present. An empty one is present only after
	// SetAddressTitle(""), otherwise it counts as absent.
	AddressTitle  string
	AddressPostal string
	// Feet above mean sea level.
	Elevation float64
	// Degrees in [-90, 90], negative south of the Equator.
	Latitude float32
	// Degrees in [-180, 180], negative west of the Prime Meridian.
	Longitude float32
	// Reference to an image asset, e.g. an object key.
	Image string

	// set when AddressTitle is present but zero-length
	emptyAddressTitle bool
}

func New() *Place {
	return &Place{}
}

// SetAddressTitle sets the title and marks it present, even when s is empty.
func (p *Place) SetAddressTitle(s string) {
	p.AddressTitle = s
	p.emptyAddressTitle = s == ""
}

// ClearAddressTitle marks the title absent.
func (p *Place) ClearAddressTitle() {
	p.AddressTitle = ""
	p.emptyAddressTitle = false
}

func (p *Place) HasAddressTitle() bool {
	return p.AddressTitle != "" || p.emptyAddressTitle
}
