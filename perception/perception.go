// Package perception finds the nearest relevant entity around an agent.
package perception

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
)

// Candidate is one entity returned by a sphere query.
type Candidate struct {
	Entity    ecs.Entity
	Kind      components.Kind
	Pos       mgl64.Vec3
	Orient    mgl64.Quat
	Size      float64
	Remaining float64 // resource capacity; zero for fish
	Dist      float64
}

// SpatialQuery returns live entities within radius of center, appended to dst.
type SpatialQuery interface {
	OverlapSphere(dst []Candidate, center mgl64.Vec3, radius float64) []Candidate
}

// Predicate filters candidates.
type Predicate func(Candidate) bool

// Resolver wraps a SpatialQuery. It keeps a scratch buffer only; every
// call re-scans the world.
type Resolver struct {
	query SpatialQuery
	buf   []Candidate
}

// NewResolver creates a resolver over q.
func NewResolver(q SpatialQuery) *Resolver {
	return &Resolver{query: q, buf: make([]Candidate, 0, 64)}
}

// FindNearest returns the closest candidate within radius accepted by pred,
// skipping exclude. Ties keep the earlier candidate in query order.
func (r *Resolver) FindNearest(center mgl64.Vec3, radius float64, exclude ecs.Entity, pred Predicate) (Candidate, bool) {
	r.buf = r.query.OverlapSphere(r.buf[:0], center, radius)

	var best Candidate
	found := false
	for _, c := range r.buf {
		if c.Entity == exclude {
			continue
		}
		if pred != nil && !pred(c) {
			continue
		}
		if !found || c.Dist < best.Dist {
			best, found = c, true
		}
	}
	return best, found
}

// Within appends every candidate accepted by pred within radius to dst,
// nearest first. Equal distances keep query order.
func (r *Resolver) Within(dst []Candidate, center mgl64.Vec3, radius float64, exclude ecs.Entity, pred Predicate) []Candidate {
	r.buf = r.query.OverlapSphere(r.buf[:0], center, radius)
	start := len(dst)
	for _, c := range r.buf {
		if c.Entity != exclude && (pred == nil || pred(c)) {
			dst = append(dst, c)
		}
	}
	slices.SortStableFunc(dst[start:], func(a, b Candidate) int {
		return cmp.Compare(a.Dist, b.Dist)
	})
	return dst
}

// IsEdibleResource accepts grazeable resources with capacity left.
func IsEdibleResource(c Candidate) bool {
	return c.Kind == components.KindSeaweed && c.Remaining > 0
}

// IsPlayer accepts the player agent.
func IsPlayer(c Candidate) bool {
	return c.Kind == components.KindPlayer
}

// IsStar accepts score pickups.
func IsStar(c Candidate) bool {
	return c.Kind == components.KindStar
}

// IsKind accepts one kind.
func IsKind(k components.Kind) Predicate {
	return func(c Candidate) bool { return c.Kind == k }
}

// IsCarnivoreAtLeast accepts carnivores no smaller than size.
func IsCarnivoreAtLeast(size float64) Predicate {
	return func(c Candidate) bool {
		return c.Kind == components.KindCarnivore && c.Size >= size
	}
}

// IsSmallerFish accepts non-player fish strictly smaller than size.
func IsSmallerFish(size float64) Predicate {
	return func(c Candidate) bool {
		return c.Kind.IsFish() && c.Kind != components.KindPlayer && c.Size < size
	}
}

// Either accepts a candidate matching any of preds.
func Either(preds ...Predicate) Predicate {
	return func(c Candidate) bool {
		for _, p := range preds {
			if p(c) {
				return true
			}
		}
		return false
	}
}
