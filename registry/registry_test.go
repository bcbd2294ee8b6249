package registry

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/shoal/components"
	"github.com/pthm-cable/shoal/perception"
)

func newRegistry() *Registry {
	return New(Config{Min: mgl64.Vec3{-20, -10, -20}, Max: mgl64.Vec3{20, 0, 20}, CellSize: 4})
}

func fishBody(size float64) components.Body {
	return components.Body{Size: size, MinSize: 0.2, MaxSize: 3, BaseSpeed: 2, TurnRate: 90, Nutrition: 0.1}
}

func spawnAt(r *Registry, kind components.Kind, x, z, size float64) ecs.Entity {
	return r.Spawn(SpawnSpec{Kind: kind, Pos: mgl64.Vec3{x, -1, z}, Orient: mgl64.QuatIdent(), Body: fishBody(size)})
}

func TestSpawnAndView(t *testing.T) {
	r := newRegistry()
	e := spawnAt(r, components.KindCarnivore, 1, 2, 9) // clamped to MaxSize

	a, ok := r.View(e)
	if !ok {
		t.Fatal("View of live agent failed")
	}
	if a.Body.Size != 3 {
		t.Errorf("Size = %v, want clamped 3", a.Body.Size)
	}
	if !a.Body.Alive {
		t.Error("spawned body not alive")
	}
	if a.Identity.Name != "carnivore-1" || a.Identity.Kind != components.KindCarnivore {
		t.Errorf("Identity = %+v", a.Identity)
	}
	if a.Body.Origin != (mgl64.Vec3{1, -1, 2}) {
		t.Errorf("Origin = %v, want spawn point", a.Body.Origin)
	}
}

func TestRemoveIsImmediate(t *testing.T) {
	r := newRegistry()
	es := []ecs.Entity{
		spawnAt(r, components.KindPrey, 0, 0, 0.4),
		spawnAt(r, components.KindPrey, 1, 0, 0.4),
		spawnAt(r, components.KindPrey, 2, 0, 0.4),
	}

	var removed []string
	r.OnRemove = func(a Agent) { removed = append(removed, a.Identity.Name) }

	if err := r.Remove(es[1]); err != nil {
		t.Fatalf("Remove error = %v", err)
	}
	if r.Alive(es[1]) {
		t.Error("removed agent still alive")
	}
	if _, ok := r.View(es[1]); ok {
		t.Error("View returned removed agent")
	}
	got := r.Entities(components.KindPrey)
	if len(got) != 2 || got[0] != es[0] || got[1] != es[2] {
		t.Errorf("Entities = %v, want spawn order without removed", got)
	}
	for _, c := range r.OverlapSphere(nil, mgl64.Vec3{0, -1, 0}, 10) {
		if c.Entity == es[1] {
			t.Error("removed agent visible to OverlapSphere")
		}
	}
	if err := r.Remove(es[1]); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("second Remove error = %v, want ErrUnknownAgent", err)
	}
	if len(removed) != 1 || removed[0] != "prey-2" {
		t.Errorf("OnRemove saw %v", removed)
	}
}

func TestRequestDespawnHonoredAtFlush(t *testing.T) {
	r := newRegistry()
	a := spawnAt(r, components.KindHerbivore, 0, 0, 1)
	b := spawnAt(r, components.KindHerbivore, 3, 0, 1)

	r.RequestDespawn(a)
	r.RequestDespawn(a) // duplicate
	if !r.Alive(a) {
		t.Fatal("despawn applied before Flush")
	}
	_ = r.Remove(b)
	r.RequestDespawn(b) // already gone

	if n := r.Flush(); n != 1 {
		t.Errorf("Flush() = %d, want 1", n)
	}
	if r.Alive(a) || r.Count(components.KindHerbivore) != 0 {
		t.Error("despawned agent still registered")
	}
	if n := r.Flush(); n != 0 {
		t.Errorf("empty Flush() = %d, want 0", n)
	}
}

func TestOverlapSphereCandidates(t *testing.T) {
	r := newRegistry()
	fish := spawnAt(r, components.KindCarnivore, 0, 0, 1.5)
	weed := r.SpawnResource(mgl64.Vec3{2, -1, 0}, components.Resource{Amount: 0.6, Total: 1, Bite: 0.1})
	star := r.SpawnPickup(mgl64.Vec3{0, -1, 2}, 1)
	far := spawnAt(r, components.KindPrey, 15, 15, 0.4)

	got := r.OverlapSphere(nil, mgl64.Vec3{0, -1, 0}, 3)
	byEntity := map[ecs.Entity]perception.Candidate{}
	for _, c := range got {
		byEntity[c.Entity] = c
	}
	if len(got) != 3 {
		t.Fatalf("found %d candidates, want 3", len(got))
	}
	if _, ok := byEntity[far]; ok {
		t.Error("out-of-range prey returned")
	}
	if c := byEntity[fish]; c.Size != 1.5 || c.Kind != components.KindCarnivore {
		t.Errorf("fish candidate = %+v", c)
	}
	if c := byEntity[weed]; c.Remaining != 0.6 || math.Abs(c.Dist-2) > 1e-9 {
		t.Errorf("seaweed candidate = %+v", c)
	}
	if c := byEntity[star]; c.Kind != components.KindStar {
		t.Errorf("star candidate = %+v", c)
	}
}

func TestCommitMovesGrid(t *testing.T) {
	r := newRegistry()
	e := spawnAt(r, components.KindPrey, 0, 0, 0.4)

	st := components.Steering{Smoothed: mgl64.Vec3{1, 0, 0}}
	if err := r.Commit(e, mgl64.Vec3{10, -1, 10}, mgl64.QuatIdent(), st, mgl64.Vec3{2, 0, 0}); err != nil {
		t.Fatalf("Commit error = %v", err)
	}
	if got := r.OverlapSphere(nil, mgl64.Vec3{0, -1, 0}, 2); len(got) != 0 {
		t.Errorf("agent still found at old position: %v", got)
	}
	a, _ := r.View(e)
	if a.Pos != (mgl64.Vec3{10, -1, 10}) || a.Steering != st || a.Motion.Velocity != (mgl64.Vec3{2, 0, 0}) {
		t.Errorf("View after commit = %+v", a)
	}
}

type fakeAnchor struct {
	pos     mgl64.Vec3
	orient  mgl64.Quat
	spacing float64
}

func (f *fakeAnchor) HeadTransform() (mgl64.Vec3, mgl64.Quat) { return f.pos, f.orient }
func (f *fakeAnchor) MoveHead(p mgl64.Vec3, q mgl64.Quat)      { f.pos, f.orient = p, q }
func (f *fakeAnchor) SetSegmentSpacing(s float64)              { f.spacing = s }

func TestAnchorIsEffectiveTransform(t *testing.T) {
	r := newRegistry()
	e := spawnAt(r, components.KindPlayer, 0, 0, 1)
	anchor := &fakeAnchor{pos: mgl64.Vec3{0, 0, 1}, orient: mgl64.QuatIdent()}

	if err := r.Attach(e, anchor, 0.5); err != nil {
		t.Fatalf("Attach error = %v", err)
	}
	if anchor.spacing != 0.5 {
		t.Errorf("initial spacing = %v, want 0.5", anchor.spacing)
	}

	_ = r.Commit(e, mgl64.Vec3{3, 0, 1}, mgl64.QuatIdent(), components.Steering{}, mgl64.Vec3{})
	if anchor.pos != (mgl64.Vec3{3, 0, 1}) {
		t.Errorf("anchor head = %v, want committed position", anchor.pos)
	}
	a, _ := r.View(e)
	if a.Pos != anchor.pos {
		t.Errorf("View Pos = %v, want head %v", a.Pos, anchor.pos)
	}

	if _, err := r.SetSize(e, 2); err != nil {
		t.Fatalf("SetSize error = %v", err)
	}
	if anchor.spacing != 1 {
		t.Errorf("spacing after growth = %v, want 1", anchor.spacing)
	}
}

func TestResourceBiteAndRegrow(t *testing.T) {
	r := newRegistry()
	e := r.SpawnResource(mgl64.Vec3{}, components.Resource{Amount: 0.1, Total: 1, Bite: 0.1, RegrowRate: 0.5})

	if !r.BiteResource(e) {
		t.Fatal("bite failed")
	}
	if r.BiteResource(e) {
		t.Error("bite on exhausted resource succeeded")
	}
	r.RegrowResources(1)
	res, _, ok := r.Resource(e)
	if !ok || math.Abs(res.Amount-0.5) > 1e-9 {
		t.Errorf("Amount after regrow = %v, want 0.5", res.Amount)
	}
}

func TestForEachFishSkipsItems(t *testing.T) {
	r := newRegistry()
	spawnAt(r, components.KindPrey, 0, 0, 0.4)
	spawnAt(r, components.KindCarnivore, 1, 1, 1.5)
	r.SpawnResource(mgl64.Vec3{}, components.Resource{Amount: 1, Total: 1, Bite: 0.1})

	n := 0
	r.ForEachFish(func(a Agent) { n++ })
	if n != 2 {
		t.Errorf("ForEachFish visited %d, want 2", n)
	}
	if r.Total() != 3 {
		t.Errorf("Total() = %d, want 3", r.Total())
	}
}

func TestItemLookupsRejectFish(t *testing.T) {
	r := newRegistry()
	fish := spawnAt(r, components.KindHerbivore, 0, 0, 1)
	weed := r.SpawnResource(mgl64.Vec3{1, -1, 0}, components.Resource{Amount: 1, Total: 1, Bite: 0.5})
	star := r.SpawnPickup(mgl64.Vec3{2, -1, 0}, 5)

	if _, _, ok := r.Resource(fish); ok {
		t.Error("Resource(fish) ok = true, want false")
	}
	if r.BiteResource(fish) {
		t.Error("BiteResource(fish) = true, want false")
	}
	if _, _, ok := r.Pickup(fish); ok {
		t.Error("Pickup(fish) ok = true, want false")
	}
	if _, _, ok := r.Pickup(weed); ok {
		t.Error("Pickup(seaweed) ok = true, want false")
	}

	res, pos, ok := r.Resource(weed)
	if !ok || res.Amount != 1 || pos != (mgl64.Vec3{1, -1, 0}) {
		t.Errorf("Resource(seaweed) = %+v, %v, %v", res, pos, ok)
	}
	if p, _, ok := r.Pickup(star); !ok || p.Value != 5 {
		t.Errorf("Pickup(star) = %+v, %v; want value 5", p, ok)
	}
}

func TestFindNearestInDenseCrowd(t *testing.T) {
	r := newRegistry()
	for i := 0; i < 140; i++ {
		spawnAt(r, components.KindPrey, -19.5, -19.5, 0.4)
	}
	near := spawnAt(r, components.KindPrey, -17, -16.5, 0.4)

	center := mgl64.Vec3{-17, -1, -17}
	res := perception.NewResolver(r)
	got, ok := res.FindNearest(center, 10, ecs.Entity{}, perception.IsKind(components.KindPrey))
	if !ok || got.Entity != near {
		t.Fatalf("FindNearest = %v (dist %.2f), want %v at 0.5", got.Entity, got.Dist, near)
	}
	if math.Abs(got.Dist-0.5) > 1e-9 {
		t.Errorf("Dist = %v, want 0.5", got.Dist)
	}
	if n := len(r.OverlapSphere(nil, center, 10)); n != 141 {
		t.Errorf("OverlapSphere found %d, want all 141", n)
	}
}
