package place

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ContentType marks the tagged binary form produced by MarshalBinary.
const ContentType = "application/x-place"

// WireVersion is written into every tagged record.
const WireVersion = 1

const (
	fieldVersion protowire.Number = iota + 1
	fieldName
	fieldDescription
	fieldCategory
	fieldAddressTitle
	fieldAddressPostal
	fieldElevation
	fieldLatitude
	fieldLongitude
	fieldImage
)

// MarshalBinary encodes all nine fields as protobuf-wire tagged fields, so readers do
// not depend on field order and may skip fields they do not know. Empty strings are
// omitted, except a present address title.
func (p *Place) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 64+len(p.Name)+len(p.Description)+len(p.AddressPostal))

	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, WireVersion)

	for _, f := range []struct {
		num protowire.Number
		val string
		// written even when empty
		present bool
	}{
		{fieldName, p.Name, false},
		{fieldDescription, p.Description, false},
		{fieldCategory, p.Category, false},
		{fieldAddressTitle, p.AddressTitle, p.HasAddressTitle()},
		{fieldAddressPostal, p.AddressPostal, false},
		{fieldImage, p.Image, false},
	} {
		if f.val == "" && !f.present {
			continue
		}
		b = protowire.AppendTag(b, f.num, protowire.BytesType)
		b = protowire.AppendString(b, f.val)
	}

	b = protowire.AppendTag(b, fieldElevation, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(p.Elevation))
	b = protowire.AppendTag(b, fieldLatitude, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(p.Latitude))
	b = protowire.AppendTag(b, fieldLongitude, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(p.Longitude))

	return b, nil
}

// UnmarshalBinary replaces p with the decoded record and validates it.
func (p *Place) UnmarshalBinary(b []byte) error {
	var decoded Place
	version := uint64(0)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			version, n = protowire.ConsumeVarint(b)
		case num == fieldElevation && typ == protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			decoded.Elevation = math.Float64frombits(v)
		case num == fieldLatitude && typ == protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			decoded.Latitude = math.Float32frombits(v)
		case num == fieldLongitude && typ == protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			decoded.Longitude = math.Float32frombits(v)
		case num == fieldAddressTitle && typ == protowire.BytesType:
			var v string
			v, n = protowire.ConsumeString(b)
			decoded.SetAddressTitle(v)
		case typ == protowire.BytesType && decoded.stringField(num) != nil:
			var v string
			v, n = protowire.ConsumeString(b)
			*decoded.stringField(num) = v
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	if version != WireVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	*p = decoded
	return p.Validate()
}

func (p *Place) stringField(num protowire.Number) *string {
	switch num {
	case fieldName:
		return &p.Name
	case fieldDescription:
		return &p.Description
	case fieldCategory:
		return &p.Category
	case fieldAddressPostal:
		return &p.AddressPostal
	case fieldImage:
		return &p.Image
	}
	return nil
}
