package components

import "github.com/go-gl/mathgl/mgl64"

// Body holds size and locomotion constants of a fish.
type Body struct {
	Size    float64
	MinSize float64
	MaxSize float64

	BaseSpeed float64
	TurnRate  float64 // degrees per second

	Nutrition         float64
	NutritionFromSize bool

	Alive  bool
	Origin mgl64.Vec3 // spawn point, center of wander targets
}

// SetSize assigns size clamped to [MinSize, MaxSize] and returns the result.
func (b *Body) SetSize(size float64) float64 {
	if size < b.MinSize {
		size = b.MinSize
	}
	if size > b.MaxSize {
		size = b.MaxSize
	}
	b.Size = size
	return size
}

// Resource is a grazeable plant with regrowing capacity.
type Resource struct {
	Amount     float64
	Total      float64
	Bite       float64
	RegrowRate float64 // per second
}

// Eatable reports whether anything is left to bite.
func (r *Resource) Eatable() bool {
	return r.Amount > 0
}

// TakeBite removes one bite. It fails when the resource is exhausted.
func (r *Resource) TakeBite() bool {
	if r.Amount <= 0 {
		return false
	}
	r.Amount -= r.Bite
	if r.Amount < 0 {
		r.Amount = 0
	}
	return true
}

// Regrow restores capacity up to Total.
func (r *Resource) Regrow(dt float64) {
	if r.Amount >= r.Total {
		return
	}
	r.Amount += r.RegrowRate * dt
	if r.Amount > r.Total {
		r.Amount = r.Total
	}
}

// Pickup is a collectible score item.
type Pickup struct {
	Value int
}
