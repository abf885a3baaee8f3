package domain

import (
	"time"

	"github.com/google/uuid"
)

// Address is a snapshot-style record; orders reference it by id and the
// referenced row is never mutated afterwards.
type Address struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Line1      string
	Line2      string
	City       string
	Country    string
	PostalCode string
	CreatedAt  time.Time
}
