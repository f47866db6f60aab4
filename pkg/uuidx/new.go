package uuidx

import "github.com/google/uuid"

// New returns a fresh v7 UUID. v7 ids are time-ordered, which keeps run and
// turn identifiers sortable in logs and event streams. Panics if the source
// of randomness fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a fresh v7 UUID in its canonical string form.
func NewString() string {
	return New().String()
}
