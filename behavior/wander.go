package behavior

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/shoal/geom"
)

// WanderField is a slowly varying horizontal direction field. Nearby fish
// sampling it at nearby times get similar directions, so a school drifts
// together.
type WanderField struct {
	noise opensimplex.Noise
	scale float64
}

// NewWanderField creates a field. scale is the noise frequency applied to
// both position and time.
func NewWanderField(seed int64, scale float64) *WanderField {
	return &WanderField{noise: opensimplex.NewNormalized(seed), scale: scale}
}

// Direction returns a horizontal unit vector for pos at time t.
func (w *WanderField) Direction(pos mgl64.Vec3, t float64) mgl64.Vec3 {
	n := w.noise.Eval3(pos[0]*w.scale, pos[2]*w.scale, t*w.scale)
	a := (2*n - 1) * math.Pi
	return mgl64.Vec3{math.Sin(a), 0, math.Cos(a)}
}

// wanderer tracks a spawn-relative roaming point.
type wanderer struct {
	point mgl64.Vec3
	left  float64
}

// pick chooses a new point in the horizontal disc around origin.
func (w *wanderer) pick(ctx *Context, radius, hold float64) {
	origin := ctx.Self.Body.Origin
	w.point = origin.Add(geom.RandomInDisc(ctx.Rng, radius))
	w.left = hold
}

// step returns the intent toward the current point, refreshing it when
// reached or stale.
func (w *wanderer) step(ctx *Context, dt, radius, hold, arrive, speed float64) Intent {
	w.left -= dt
	pos := ctx.Self.Pos
	if w.left <= 0 || geom.Horizontal(w.point.Sub(pos)).Len() < arrive {
		w.pick(ctx, radius, hold)
	}
	return seek(pos, w.point, speed)
}
