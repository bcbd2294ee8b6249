// Package components defines ECS components for the simulation.
package components

// Kind tags an entity for perception filters and registry membership.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindCarnivore
	KindHerbivore
	KindPrey
	KindSeaweed
	KindStar

	NumKinds
)

var kindNames = [NumKinds]string{"player", "carnivore", "herbivore", "prey", "seaweed", "star"}

// String returns the lowercase name used in logs and CSV columns.
func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return "unknown"
}

// IsFish reports whether the kind is a steering agent rather than a static item.
func (k Kind) IsFish() bool {
	return k <= KindPrey
}

// FishKinds lists agent kinds in update order.
var FishKinds = [...]Kind{KindPlayer, KindCarnivore, KindHerbivore, KindPrey}
