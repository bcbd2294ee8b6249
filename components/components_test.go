package components

import (
	"math"
	"testing"
)

func TestBodySetSizeClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"inside", 1.2, 1.2},
		{"below", 0.1, 0.5},
		{"above", 9, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Body{MinSize: 0.5, MaxSize: 3}
			if got := b.SetSize(tt.in); got != tt.want {
				t.Errorf("SetSize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResourceBiteAndRegrow(t *testing.T) {
	r := Resource{Amount: 0.15, Total: 1, Bite: 0.1, RegrowRate: 0.05}

	if !r.TakeBite() {
		t.Fatal("first bite failed")
	}
	if !r.TakeBite() {
		t.Fatal("second bite failed with 0.05 left")
	}
	if r.Amount != 0 {
		t.Errorf("Amount = %v, want 0 (floored)", r.Amount)
	}
	if r.Eatable() {
		t.Error("exhausted resource reports eatable")
	}
	if r.TakeBite() {
		t.Error("bite succeeded on exhausted resource")
	}

	r.Regrow(2)
	if math.Abs(r.Amount-0.1) > 1e-12 {
		t.Errorf("Amount after regrow = %v, want 0.1", r.Amount)
	}
	r.Regrow(100)
	if r.Amount != r.Total {
		t.Errorf("Amount = %v, want capped at %v", r.Amount, r.Total)
	}
}

func TestKindString(t *testing.T) {
	if KindPrey.String() != "prey" {
		t.Errorf("KindPrey.String() = %q", KindPrey.String())
	}
	if Kind(200).String() != "unknown" {
		t.Errorf("Kind(200).String() = %q", Kind(200).String())
	}
	if KindSeaweed.IsFish() || !KindCarnivore.IsFish() {
		t.Error("IsFish misclassifies kinds")
	}
}
