package place

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed          = errors.New("malformed place")
	ErrInvalidArgument    = errors.New("invalid place")
	ErrOutOfRange         = errors.New("coordinates out of range")
	ErrUnsupportedVersion = errors.New("unsupported place encoding version")
	ErrNotFound           = errors.New("place not found")
	ErrAlreadyExists      = errors.New("place already exists")
	ErrImagesDisabled     = errors.New("image storage is not configured")
)

// FieldError names the key that stopped a map conversion.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("place field %q: %s", e.Key, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrMalformed
}
