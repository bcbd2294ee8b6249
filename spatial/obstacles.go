package spatial

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/shoal/steering"
)

// wallThickness is the depth of the synthetic boundary boxes around the volume.
const wallThickness = 1.0

// Box is an axis-aligned solid indexed in the obstacle tree.
type Box struct {
	Name     string
	Min, Max mgl64.Vec3
	rect     rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (b *Box) Bounds() rtreego.Rect {
	return b.rect
}

// Contains reports whether p lies inside the box.
func (b *Box) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Obstacles indexes static solids for the steering ray fan.
// Side walls and the floor of the volume are added as boxes so agents
// treat the volume boundary like any other obstacle.
type Obstacles struct {
	tree  *rtreego.Rtree
	boxes []*Box
}

// NewObstacles builds the index from the volume bounds and static boxes.
func NewObstacles(volMin, volMax mgl64.Vec3, boxes []Box) (*Obstacles, error) {
	o := &Obstacles{tree: rtreego.NewTree(3, 4, 16)}

	t := wallThickness
	walls := []Box{
		{Name: "wall_west", Min: mgl64.Vec3{volMin[0] - t, volMin[1] - t, volMin[2] - t}, Max: mgl64.Vec3{volMin[0], volMax[1] + t, volMax[2] + t}},
		{Name: "wall_east", Min: mgl64.Vec3{volMax[0], volMin[1] - t, volMin[2] - t}, Max: mgl64.Vec3{volMax[0] + t, volMax[1] + t, volMax[2] + t}},
		{Name: "wall_south", Min: mgl64.Vec3{volMin[0] - t, volMin[1] - t, volMin[2] - t}, Max: mgl64.Vec3{volMax[0] + t, volMax[1] + t, volMin[2]}},
		{Name: "wall_north", Min: mgl64.Vec3{volMin[0] - t, volMin[1] - t, volMax[2]}, Max: mgl64.Vec3{volMax[0] + t, volMax[1] + t, volMax[2] + t}},
		{Name: "floor", Min: mgl64.Vec3{volMin[0] - t, volMin[1] - t, volMin[2] - t}, Max: mgl64.Vec3{volMax[0] + t, volMin[1], volMax[2] + t}},
	}
	for _, b := range append(walls, boxes...) {
		if err := o.Add(b); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Add indexes one more box.
func (o *Obstacles) Add(b Box) error {
	rect, err := rectFromMinMax(b.Min, b.Max)
	if err != nil {
		return fmt.Errorf("indexing obstacle %q: %w", b.Name, err)
	}
	b.rect = rect
	box := &b
	o.boxes = append(o.boxes, box)
	o.tree.Insert(box)
	return nil
}

// Len returns the number of indexed boxes, walls included.
func (o *Obstacles) Len() int {
	return len(o.boxes)
}

// Blocked reports whether p lies inside any obstacle.
func (o *Obstacles) Blocked(p mgl64.Vec3) bool {
	bb, err := rectAround(p, p)
	if err != nil {
		return false
	}
	for _, s := range o.tree.SearchIntersect(bb) {
		if s.(*Box).Contains(p) {
			return true
		}
	}
	return false
}

// Raycast returns the nearest obstacle face hit by the segment
// origin + dir*[0, maxDist]. Boxes containing the origin are ignored.
func (o *Obstacles) Raycast(origin, dir mgl64.Vec3, maxDist float64) (steering.Hit, bool) {
	if maxDist <= 0 || dir.Len() < 1e-9 {
		return steering.Hit{}, false
	}
	dir = dir.Normalize()
	end := origin.Add(dir.Mul(maxDist))

	bb, err := rectAround(origin, end)
	if err != nil {
		return steering.Hit{}, false
	}

	best := steering.Hit{Distance: math.Inf(1)}
	found := false
	for _, s := range o.tree.SearchIntersect(bb) {
		box := s.(*Box)
		dist, normal, ok := slab(origin, dir, box.Min, box.Max)
		if !ok || dist > maxDist || dist >= best.Distance {
			continue
		}
		best = steering.Hit{Point: origin.Add(dir.Mul(dist)), Normal: normal, Distance: dist}
		found = true
	}
	return best, found
}

// slab intersects a ray with an AABB, returning the entry distance and the
// outward normal of the entered face.
func slab(origin, dir, min, max mgl64.Vec3) (float64, mgl64.Vec3, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	axis, sign := -1, 0.0

	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if origin[i] < min[i] || origin[i] > max[i] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (min[i] - origin[i]) * inv
		t2 := (max[i] - origin[i]) * inv
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1
		}
		if t1 > tmin {
			tmin, axis, sign = t1, i, s
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, mgl64.Vec3{}, false
		}
	}

	if tmin < 0 || axis < 0 {
		return 0, mgl64.Vec3{}, false
	}
	var n mgl64.Vec3
	n[axis] = sign
	return tmin, n, true
}

func rectFromMinMax(min, max mgl64.Vec3) (rtreego.Rect, error) {
	lengths := make([]float64, 3)
	for i := range lengths {
		lengths[i] = max[i] - min[i]
	}
	return rtreego.NewRect(rtreego.Point{min[0], min[1], min[2]}, lengths)
}

// rectAround returns the padded bounding box of two points.
func rectAround(a, b mgl64.Vec3) (rtreego.Rect, error) {
	const pad = 1e-3
	var lo, hi mgl64.Vec3
	for i := 0; i < 3; i++ {
		lo[i] = math.Min(a[i], b[i]) - pad
		hi[i] = math.Max(a[i], b[i]) + pad
	}
	return rectFromMinMax(lo, hi)
}
