package store

import "errors"

var (
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrSlotTaken           = errors.New("slot already taken")
	ErrDuplicate           = errors.New("duplicate")
	ErrReferenced          = errors.New("still referenced")
	ErrMissingReference    = errors.New("referenced row missing")
)
