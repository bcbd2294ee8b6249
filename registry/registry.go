// Package registry owns the ECS world and per-species agent membership.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/geom"
	"github.com/pthm-cable/shoal/spatial"
)

// ErrUnknownAgent is returned for entities that are not (or no longer) registered.
var ErrUnknownAgent = errors.New("unknown agent")

// BodyAnchor is an externally animated segmented body. When attached, its
// head is the agent's effective transform.
type BodyAnchor interface {
	HeadTransform() (mgl64.Vec3, mgl64.Quat)
	MoveHead(pos mgl64.Vec3, orient mgl64.Quat)
	SetSegmentSpacing(spacing float64)
}

// Config sets the indexed volume.
type Config struct {
	Min, Max mgl64.Vec3
	CellSize float64
}

// SpawnSpec describes a new fish.
type SpawnSpec struct {
	Kind   components.Kind
	Name   string // generated from kind and sequence when empty
	Pos    mgl64.Vec3
	Orient mgl64.Quat
	Body   components.Body
}

// Agent is a copy of a fish's components. It stays valid after removal
// but is never refreshed.
type Agent struct {
	Entity   ecs.Entity
	Identity components.Identity
	Pos      mgl64.Vec3 // effective position (head anchor when attached)
	Orient   mgl64.Quat
	Body     components.Body
	Steering components.Steering
	Motion   components.Motion
}

type anchorLink struct {
	anchor  BodyAnchor
	spacing float64
}

// Registry is the single owner of agents. Removal is immediate: a removed
// entity leaves the grid, its kind list and the ECS world in one call.
type Registry struct {
	world *ecs.World

	fishMapper *ecs.Map5[components.Identity, components.Transform, components.Body, components.Steering, components.Motion]
	resMapper  *ecs.Map3[components.Identity, components.Transform, components.Resource]
	pickMapper *ecs.Map3[components.Identity, components.Transform, components.Pickup]

	fishFilter *ecs.Filter5[components.Identity, components.Transform, components.Body, components.Steering, components.Motion]
	resFilter  *ecs.Filter1[components.Resource]

	idMap     *ecs.Map1[components.Identity]
	tfMap     *ecs.Map1[components.Transform]
	bodyMap   *ecs.Map1[components.Body]
	steerMap  *ecs.Map1[components.Steering]
	motionMap *ecs.Map1[components.Motion]
	resMap    *ecs.Map1[components.Resource]
	pickMap   *ecs.Map1[components.Pickup]

	grid    *spatial.Grid
	byKind  [components.NumKinds][]ecs.Entity
	seq     [components.NumKinds]int
	anchors map[ecs.Entity]anchorLink
	pending []ecs.Entity
	scratch []spatial.Neighbor

	// OnRemove, when set, observes every removal with the final agent state.
	OnRemove func(Agent)
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	world := ecs.NewWorld()
	return &Registry{
		world: world,
		fishMapper: ecs.NewMap5[
			components.Identity,
			components.Transform,
			components.Body,
			components.Steering,
			components.Motion,
		](world),
		resMapper:  ecs.NewMap3[components.Identity, components.Transform, components.Resource](world),
		pickMapper: ecs.NewMap3[components.Identity, components.Transform, components.Pickup](world),
		fishFilter: ecs.NewFilter5[
			components.Identity,
			components.Transform,
			components.Body,
			components.Steering,
			components.Motion,
		](world),
		resFilter: ecs.NewFilter1[components.Resource](world),
		idMap:     ecs.NewMap1[components.Identity](world),
		tfMap:     ecs.NewMap1[components.Transform](world),
		bodyMap:   ecs.NewMap1[components.Body](world),
		steerMap:  ecs.NewMap1[components.Steering](world),
		motionMap: ecs.NewMap1[components.Motion](world),
		resMap:    ecs.NewMap1[components.Resource](world),
		pickMap:   ecs.NewMap1[components.Pickup](world),
		grid:      spatial.NewGrid(cfg.Min, cfg.Max, cfg.CellSize),
		anchors:   make(map[ecs.Entity]anchorLink),
	}
}

func (r *Registry) identity(kind components.Kind, name string) components.Identity {
	r.seq[kind]++
	if name == "" {
		name = fmt.Sprintf("%s-%d", kind, r.seq[kind])
	}
	return components.Identity{ID: uuid.New(), Name: name, Kind: kind}
}

func (r *Registry) track(e ecs.Entity, kind components.Kind, pos mgl64.Vec3) {
	r.byKind[kind] = append(r.byKind[kind], e)
	r.grid.Move(e, pos)
}

// Spawn registers a fish. Size is clamped to the body's bounds and the
// body is marked alive.
func (r *Registry) Spawn(spec SpawnSpec) ecs.Entity {
	id := r.identity(spec.Kind, spec.Name)
	tf := components.Transform{Pos: spec.Pos, Orient: spec.Orient}
	if !geom.FiniteQuat(tf.Orient) {
		tf.Orient = mgl64.QuatIdent()
	}
	body := spec.Body
	body.SetSize(body.Size)
	body.Alive = true
	if body.Origin == (mgl64.Vec3{}) {
		body.Origin = spec.Pos
	}
	steer := components.Steering{Smoothed: geom.HeadingOf(tf.Orient)}
	var motion components.Motion

	e := r.fishMapper.NewEntity(&id, &tf, &body, &steer, &motion)
	r.track(e, spec.Kind, tf.Pos)
	return e
}

// SpawnResource registers a grazeable resource.
func (r *Registry) SpawnResource(pos mgl64.Vec3, res components.Resource) ecs.Entity {
	id := r.identity(components.KindSeaweed, "")
	tf := components.Transform{Pos: pos, Orient: mgl64.QuatIdent()}
	e := r.resMapper.NewEntity(&id, &tf, &res)
	r.track(e, components.KindSeaweed, pos)
	return e
}

// SpawnPickup registers a score pickup.
func (r *Registry) SpawnPickup(pos mgl64.Vec3, value int) ecs.Entity {
	id := r.identity(components.KindStar, "")
	tf := components.Transform{Pos: pos, Orient: mgl64.QuatIdent()}
	p := components.Pickup{Value: value}
	e := r.pickMapper.NewEntity(&id, &tf, &p)
	r.track(e, components.KindStar, pos)
	return e
}

// Alive reports whether e is registered.
func (r *Registry) Alive(e ecs.Entity) bool {
	return e != (ecs.Entity{}) && r.world.Alive(e)
}

// Kind returns the species tag of a live entity.
func (r *Registry) Kind(e ecs.Entity) (components.Kind, bool) {
	if !r.Alive(e) {
		return 0, false
	}
	return r.idMap.Get(e).Kind, true
}

// Identity returns the identity of a live entity.
func (r *Registry) Identity(e ecs.Entity) (components.Identity, bool) {
	if !r.Alive(e) {
		return components.Identity{}, false
	}
	return *r.idMap.Get(e), true
}

// Remove drops e immediately. Later queries in the same tick never see it.
func (r *Registry) Remove(e ecs.Entity) error {
	if !r.Alive(e) {
		return ErrUnknownAgent
	}
	kind := r.idMap.Get(e).Kind

	if r.OnRemove != nil && kind.IsFish() {
		a, _ := r.View(e)
		a.Body.Alive = false
		r.OnRemove(a)
	}

	if i := slices.Index(r.byKind[kind], e); i >= 0 {
		r.byKind[kind] = slices.Delete(r.byKind[kind], i, i+1)
	}
	r.grid.Remove(e)
	delete(r.anchors, e)
	r.world.RemoveEntity(e)
	return nil
}

// RequestDespawn queues e for removal at the next Flush. It is safe to call
// at any point of a tick, including for entities already removed.
func (r *Registry) RequestDespawn(e ecs.Entity) {
	r.pending = append(r.pending, e)
}

// Flush honors queued despawns and returns how many were removed.
func (r *Registry) Flush() int {
	n := 0
	for _, e := range r.pending {
		if r.Remove(e) == nil {
			n++
		}
	}
	r.pending = r.pending[:0]
	return n
}

// Entities returns the live entities of kind in spawn order. The slice is
// owned by the registry and changes on Spawn and Remove.
func (r *Registry) Entities(kind components.Kind) []ecs.Entity {
	return r.byKind[kind]
}

// AppendEntities appends the live entities of kind to dst.
func (r *Registry) AppendEntities(dst []ecs.Entity, kind components.Kind) []ecs.Entity {
	return append(dst, r.byKind[kind]...)
}

// Count returns the number of live entities of kind.
func (r *Registry) Count(kind components.Kind) int {
	return len(r.byKind[kind])
}

// Total returns the number of live entities of every kind.
func (r *Registry) Total() int {
	return r.grid.Len()
}
