package store

import "errors"

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("schedule conflict")
	ErrDuplicate = errors.New("duplicate record")
)
