package geom

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestNormalizeOr(t *testing.T) {
	fallback := mgl64.Vec3{0, 0, 1}
	tests := []struct {
		name string
		in   mgl64.Vec3
		want mgl64.Vec3
	}{
		{"unit", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 0, 0}},
		{"scaled", mgl64.Vec3{0, 0, -4}, mgl64.Vec3{0, 0, -1}},
		{"zero", mgl64.Vec3{}, fallback},
		{"tiny", mgl64.Vec3{1e-9, 0, 0}, fallback},
		{"nan", mgl64.Vec3{math.NaN(), 0, 0}, fallback},
		{"inf", mgl64.Vec3{math.Inf(1), 0, 0}, fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeOr(tt.in, fallback)
			if !vecNear(got, tt.want, 1e-9) {
				t.Errorf("NormalizeOr(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestYawQuatRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 0.5, -1.2, math.Pi / 2, 3} {
		fwd := ForwardOf(YawQuat(yaw))
		if got := Yaw(fwd); math.Abs(WrapAngle(got-yaw)) > 1e-9 {
			t.Errorf("Yaw(ForwardOf(YawQuat(%v))) = %v", yaw, got)
		}
		if math.Abs(fwd[1]) > 1e-9 {
			t.Errorf("yaw-only forward has vertical component %v", fwd[1])
		}
	}
}

func TestRightIsPerpendicular(t *testing.T) {
	fwd := mgl64.Vec3{0, 0, 1}
	right := Right(fwd)
	if math.Abs(right.Dot(fwd)) > 1e-9 {
		t.Errorf("Right(%v) = %v is not perpendicular", fwd, right)
	}
	if math.Abs(right.Len()-1) > 1e-9 {
		t.Errorf("|Right| = %v, want 1", right.Len())
	}
}

func TestRandomInDiscStaysInside(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		p := RandomInDisc(rng, 3)
		if p[1] != 0 {
			t.Fatalf("sample %d has y = %v", i, p[1])
		}
		if p.Len() > 3+1e-9 {
			t.Fatalf("sample %d outside disc: %v", i, p)
		}
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi + 0.5, -math.Pi + 0.5},
		{-math.Pi - 0.5, math.Pi - 0.5},
		{4 * math.Pi, 0},
	}
	for _, tt := range tests {
		if got := WrapAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
