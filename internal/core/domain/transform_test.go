package domain

import (
	"math/rand"
	"testing"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"truncates below precision", 1.23456789, 1.2345},
		{"truncates toward zero", -1.23456789, -1.2345},
		{"exact value unchanged", 0.5, 0.5},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quantize(tt.in); got != tt.want {
				t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuantize_Idempotent(t *testing.T) {
	// -806.0609621710308 scales to one ulp below -8060609, where a
	// second truncation used to slip a step down to -806.0608.
	values := []float64{1.23456789, -0.000049, 3.14159265, 100.00009, -806.0609621710308}
	for _, v := range values {
		once := Quantize(v)
		if twice := Quantize(once); twice != once {
			t.Errorf("Quantize not idempotent for %v: %v then %v", v, once, twice)
		}
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200000; i++ {
		v := (rng.Float64() - 0.5) * 2000
		once := Quantize(v)
		if twice := Quantize(once); twice != once {
			t.Fatalf("Quantize not idempotent for %v: %v then %v", v, once, twice)
		}
	}
}

func TestTransform_Quantized(t *testing.T) {
	in := Transform{
		Position: Vector3{X: 1.23456789, Y: -2.98765432, Z: 0},
		Rotation: Quaternion{X: 0.123456, Y: 0, Z: 0, W: 0.999999},
		Scale:    Vector3{X: 1, Y: 1, Z: 1},
		At:       42,
	}
	got := in.Quantized()

	if got.Position.X != 1.2345 {
		t.Errorf("Position.X = %v, want 1.2345", got.Position.X)
	}
	if got.Position.Y != -2.9876 {
		t.Errorf("Position.Y = %v, want -2.9876", got.Position.Y)
	}
	if got.Rotation.W != 0.9999 {
		t.Errorf("Rotation.W = %v, want 0.9999", got.Rotation.W)
	}
	if got.At != 42 {
		t.Errorf("At = %d, want 42 (carried through)", got.At)
	}
}

func TestTransform_SamePose(t *testing.T) {
	a := Transform{Position: Vector3{X: 1}, Scale: Vector3{X: 1, Y: 1, Z: 1}, At: 10}
	b := a
	b.At = 20
	if !a.SamePose(b) {
		t.Error("SamePose should ignore At")
	}

	b.Position.X = 2
	if a.SamePose(b) {
		t.Error("SamePose should detect moved position")
	}
}

func TestDefaultTransform(t *testing.T) {
	d := DefaultTransform()
	if d.Scale != (Vector3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("DefaultTransform scale = %+v, want unit scale", d.Scale)
	}
	if d.Position != (Vector3{}) || d.At != 0 {
		t.Error("DefaultTransform should be at origin with zero timestamp")
	}
}
