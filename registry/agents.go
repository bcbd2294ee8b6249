package registry

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/perception"
	"github.com/pthm-cable/shoal/predation"
)

func (r *Registry) isFish(e ecs.Entity) bool {
	return r.Alive(e) && r.idMap.Get(e).Kind.IsFish()
}

// View copies a fish's components. It returns false for removed entities
// and for non-fish.
func (r *Registry) View(e ecs.Entity) (Agent, bool) {
	if !r.isFish(e) {
		return Agent{}, false
	}
	tf := r.tfMap.Get(e)
	a := Agent{
		Entity:   e,
		Identity: *r.idMap.Get(e),
		Pos:      tf.Pos,
		Orient:   tf.Orient,
		Body:     *r.bodyMap.Get(e),
		Steering: *r.steerMap.Get(e),
		Motion:   *r.motionMap.Get(e),
	}
	if link, ok := r.anchors[e]; ok {
		a.Pos, a.Orient = link.anchor.HeadTransform()
	}
	return a, true
}

// Party converts the copy into a predation party without modifiers.
func (a Agent) Party() predation.Party {
	return predation.Party{
		Entity:            a.Entity,
		Identity:          a.Identity,
		Pos:               a.Pos,
		Size:              a.Body.Size,
		Eatable:           a.Body.Alive,
		Nutrition:         a.Body.Nutrition,
		NutritionFromSize: a.Body.NutritionFromSize,
	}
}

// Commit writes a steering result. With an anchor attached the head moves
// and the root transform is left alone.
func (r *Registry) Commit(e ecs.Entity, pos mgl64.Vec3, orient mgl64.Quat, st components.Steering, vel mgl64.Vec3) error {
	if !r.isFish(e) {
		return ErrUnknownAgent
	}
	if !geom.Finite(pos) || !geom.FiniteQuat(orient) {
		return nil
	}
	if link, ok := r.anchors[e]; ok {
		link.anchor.MoveHead(pos, orient)
	} else {
		tf := r.tfMap.Get(e)
		tf.Pos, tf.Orient = pos, orient
	}
	*r.steerMap.Get(e) = st
	r.motionMap.Get(e).Velocity = vel
	r.grid.Move(e, pos)
	return nil
}

// SetSize clamps and stores a new size and returns the stored value.
// An attached anchor gets its segment spacing rescaled.
func (r *Registry) SetSize(e ecs.Entity, size float64) (float64, error) {
	if !r.isFish(e) {
		return 0, ErrUnknownAgent
	}
	got := r.bodyMap.Get(e).SetSize(size)
	if link, ok := r.anchors[e]; ok {
		link.anchor.SetSegmentSpacing(link.spacing * got)
	}
	return got, nil
}

// Attach links a segmented body. spacing is per unit of size.
func (r *Registry) Attach(e ecs.Entity, anchor BodyAnchor, spacing float64) error {
	if !r.isFish(e) {
		return ErrUnknownAgent
	}
	r.anchors[e] = anchorLink{anchor: anchor, spacing: spacing}
	anchor.SetSegmentSpacing(spacing * r.bodyMap.Get(e).Size)
	if pos, _ := anchor.HeadTransform(); geom.Finite(pos) {
		r.grid.Move(e, pos)
	}
	return nil
}

// Resource returns a copy of a resource and its position.
func (r *Registry) Resource(e ecs.Entity) (components.Resource, mgl64.Vec3, bool) {
	if !r.Alive(e) || !r.resMap.HasAll(e) {
		return components.Resource{}, mgl64.Vec3{}, false
	}
	return *r.resMap.Get(e), r.tfMap.Get(e).Pos, true
}

// BiteResource takes one bite and reports success.
func (r *Registry) BiteResource(e ecs.Entity) bool {
	if !r.Alive(e) || !r.resMap.HasAll(e) {
		return false
	}
	return r.resMap.Get(e).TakeBite()
}

// RegrowResources advances regrowth of every resource.
func (r *Registry) RegrowResources(dt float64) {
	query := r.resFilter.Query()
	for query.Next() {
		res := query.Get()
		res.Regrow(dt)
	}
}

// Pickup returns a pickup's value and position.
func (r *Registry) Pickup(e ecs.Entity) (components.Pickup, mgl64.Vec3, bool) {
	if !r.Alive(e) || !r.pickMap.HasAll(e) {
		return components.Pickup{}, mgl64.Vec3{}, false
	}
	return *r.pickMap.Get(e), r.tfMap.Get(e).Pos, true
}

// ForEachFish visits every live fish in storage order. fn must not spawn
// or remove entities.
func (r *Registry) ForEachFish(fn func(a Agent)) {
	query := r.fishFilter.Query()
	for query.Next() {
		id, tf, body, st, motion := query.Get()
		a := Agent{
			Entity:   query.Entity(),
			Identity: *id,
			Pos:      tf.Pos,
			Orient:   tf.Orient,
			Body:     *body,
			Steering: *st,
			Motion:   *motion,
		}
		if link, ok := r.anchors[a.Entity]; ok {
			a.Pos, a.Orient = link.anchor.HeadTransform()
		}
		fn(a)
	}
}

// OverlapSphere implements perception.SpatialQuery.
func (r *Registry) OverlapSphere(dst []perception.Candidate, center mgl64.Vec3, radius float64) []perception.Candidate {
	r.scratch = r.grid.QueryRadiusInto(r.scratch[:0], center, radius, ecs.Entity{})
	for _, n := range r.scratch {
		id := r.idMap.Get(n.E)
		c := perception.Candidate{
			Entity: n.E,
			Kind:   id.Kind,
			Pos:    n.Pos,
			Orient: r.tfMap.Get(n.E).Orient,
			Dist:   n.Delta.Len(),
		}
		switch {
		case id.Kind.IsFish():
			c.Size = r.bodyMap.Get(n.E).Size
			if link, ok := r.anchors[n.E]; ok {
				_, c.Orient = link.anchor.HeadTransform()
			}
		case id.Kind == components.KindSeaweed:
			res := r.resMap.Get(n.E)
			c.Size, c.Remaining = res.Amount, res.Amount
		}
		dst = append(dst, c)
	}
	return dst
}
