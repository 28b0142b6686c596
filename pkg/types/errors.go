package types

import "errors"

// Entity errors.
var (
	ErrUnknownType    = errors.New("type does not exist")
	ErrReservedField  = errors.New("field is reserved")
	ErrMissingTypeTag = errors.New("record has no type tag")
	ErrMissingID      = errors.New("record has no id")
	ErrInvalidTime    = errors.New("invalid timestamp")
	ErrUnbound        = errors.New("entity is not registered with a store")
)
