package models

import (
	"errors"
)

// Aggregate errors
var (
	// ErrNilObject is returned when inserting a nil object
	ErrNilObject = errors.New("object is nil")

	// ErrMissingType is returned when an object carries no discriminator
	ErrMissingType = errors.New("object has no type")

	// ErrUnknownType is returned for a discriminator outside ObjectTypes
	ErrUnknownType = errors.New("unknown object type")

	// ErrTypeMismatch is returned when the target slot does not match the object's type
	ErrTypeMismatch = errors.New("object type does not match target")

	// ErrEmptyID is returned when an identified object has an empty identifier
	ErrEmptyID = errors.New("object identifier is empty")

	// ErrUnsupportedMerge is returned when merging a value that is neither an object nor an aggregate
	ErrUnsupportedMerge = errors.New("unsupported merge source")
)
