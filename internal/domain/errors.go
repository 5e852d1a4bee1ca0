package domain

import "errors"

var (
	ErrInvalidID      = errors.New("invalid id")
	ErrInvalidTitle   = errors.New("invalid title")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidItemID  = errors.New("invalid checklist item id")
	ErrDuplicateItem  = errors.New("duplicate checklist item id")
	ErrInvalidMessage = errors.New("invalid message type")
)
