package catalog

import "errors"

// Registry errors. Callers match them with errors.Is.
var (
	ErrInvalidPosition      = errors.New("invalid position format")
	ErrDuplicateSubPosition = errors.New("duplicate sub-position")
	ErrBaseCollision        = errors.New("position already occupied")
	ErrUnknownCatalog       = errors.New("catalog not found")
	ErrIndexOutOfRange      = errors.New("part index out of range")
	ErrImageOutOfRange      = errors.New("image index out of range")
	ErrDuplicateBrand       = errors.New("brand already exists")
	ErrUnknownBrand         = errors.New("brand not found")
	ErrInvalidPart          = errors.New("invalid part")
)
