package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate is a unique constraint violation.
	ErrDuplicate = errors.New("store: duplicate")

	// ErrMissingReference is a foreign key violation on insert or update.
	ErrMissingReference = errors.New("store: missing reference")
)

type HistoryInsert struct {
	PhoneNumber  string
	ModelID      int64
	CommandText  string
	Status       string
	Details      string
	Notes        string
	ResponseData any
	SentAt       time.Time
}
