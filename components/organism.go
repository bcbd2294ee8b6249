package components

import "github.com/google/uuid"

// Identity names an entity across logs, events and the journal.
type Identity struct {
	ID   uuid.UUID
	Name string
	Kind Kind
}
