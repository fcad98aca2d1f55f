package place

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// LegacyContentType marks the ordered eight-field binary form. Image is not part of it.
const LegacyContentType = "application/x-place-legacy"

const (
	legacyNullLength = -1
	maxLegacyString  = 1 << 20
)

// WriteLegacy writes name, description, category, address title, address postal,
// elevation, latitude and longitude, in that order, big-endian. An absent address title
// is written as the null marker.
func (p *Place) WriteLegacy(w io.Writer) error {
	var buf bytes.Buffer
	writeLegacyString(&buf, p.Name)
	writeLegacyString(&buf, p.Description)
	writeLegacyString(&buf, p.Category)
	if p.HasAddressTitle() {
		writeLegacyString(&buf, p.AddressTitle)
	} else {
		writeLegacyNull(&buf)
	}
	writeLegacyString(&buf, p.AddressPostal)

	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], math.Float64bits(p.Elevation))
	buf.Write(scratch[:8])
	binary.BigEndian.PutUint32(scratch[:], math.Float32bits(p.Latitude))
	buf.Write(scratch[:4])
	binary.BigEndian.PutUint32(scratch[:], math.Float32bits(p.Longitude))
	buf.Write(scratch[:4])

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write legacy place: %w", err)
	}
	return nil
}

// ReadLegacy reads the eight fields written by WriteLegacy into p and validates the
// result. Image is left untouched.
func (p *Place) ReadLegacy(r io.Reader) error {
	lr := legacyReader{r: r}

	p.Name = lr.string(KeyName)
	p.Description = lr.string(KeyDescription)
	p.Category = lr.string(KeyCategory)
	if title, ok := lr.nullableString(KeyAddressTitle); ok {
		p.SetAddressTitle(title)
	} else {
		p.ClearAddressTitle()
	}
	p.AddressPostal = lr.string(KeyAddressStreet)
	p.Elevation = math.Float64frombits(binary.BigEndian.Uint64(lr.bytes(KeyElevation, 8)))
	p.Latitude = math.Float32frombits(binary.BigEndian.Uint32(lr.bytes(KeyLatitude, 4)))
	p.Longitude = math.Float32frombits(binary.BigEndian.Uint32(lr.bytes(KeyLongitude, 4)))

	if lr.err != nil {
		return lr.err
	}
	return p.Validate()
}

func writeLegacyString(buf *bytes.Buffer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(int32(len(s))))
	buf.Write(n[:])
	buf.WriteString(s)
}

func writeLegacyNull(buf *bytes.Buffer) {
	var n [4]byte
	null := int32(legacyNullLength)
	binary.BigEndian.PutUint32(n[:], uint32(null))
	buf.Write(n[:])
}

// legacyReader keeps the first error so fields can be read without checking each one.
type legacyReader struct {
	r   io.Reader
	err error
}

func (lr *legacyReader) bytes(field string, n int) []byte {
	b := make([]byte, n)
	if lr.err != nil {
		return b
	}
	if _, err := io.ReadFull(lr.r, b); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		lr.err = fmt.Errorf("read legacy place %s: %w", field, err)
	}
	return b
}

// string reads a string field; the null marker reads as "".
func (lr *legacyReader) string(field string) string {
	s, _ := lr.nullableString(field)
	return s
}

// nullableString reads a string field and reports whether it was present, so a
// zero-length string and the null marker stay distinct.
func (lr *legacyReader) nullableString(field string) (string, bool) {
	n := int32(binary.BigEndian.Uint32(lr.bytes(field, 4)))
	if lr.err != nil {
		return "", false
	}

	switch {
	case n == legacyNullLength:
		return "", false
	case n < 0 || n > maxLegacyString:
		lr.err = fmt.Errorf("read legacy place %s: %w: bad string length %d", field, ErrMalformed, n)
		return "", false
	}
	b := lr.bytes(field, int(n))
	return string(b), lr.err == nil
}
