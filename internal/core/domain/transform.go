package domain

import "math"

// transformPrecision is the fixed-point quantization factor applied
// to every vector component before storing or comparing transforms.
// Quantizing bounds both bandwidth and floating-point jitter.
const transformPrecision = 1e4

// Vector3 is an opaque three-component vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a rotation in quaternion form.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Transform is a quantized pose for one body-part path.
type Transform struct {
	Position        Vector3    `json:"position"`
	Rotation        Quaternion `json:"rotation"`
	Scale           Vector3    `json:"scale"`
	Velocity        Vector3    `json:"velocity"`
	AngularVelocity Vector3    `json:"angular_velocity"`

	// At is the sender's timestamp for the update. Within one path,
	// accepted updates have strictly non-decreasing At.
	At int64 `json:"at"`
}

// Quantize truncates a single component toward zero at the fixed
// precision. Values already on the grid pass through unchanged, so
// requantizing a quantized value is stable even when re-scaling lands
// one ulp below the step boundary.
func Quantize(v float64) float64 {
	scaled := v * transformPrecision
	if rounded := math.Round(scaled); rounded/transformPrecision == v {
		return v
	}
	return math.Trunc(scaled) / transformPrecision
}

func quantizeVec(v Vector3) Vector3 {
	return Vector3{X: Quantize(v.X), Y: Quantize(v.Y), Z: Quantize(v.Z)}
}

func quantizeQuat(q Quaternion) Quaternion {
	return Quaternion{X: Quantize(q.X), Y: Quantize(q.Y), Z: Quantize(q.Z), W: Quantize(q.W)}
}

// Quantized returns a copy of the transform with every component
// quantized. At is carried through unchanged.
func (t Transform) Quantized() Transform {
	return Transform{
		Position:        quantizeVec(t.Position),
		Rotation:        quantizeQuat(t.Rotation),
		Scale:           quantizeVec(t.Scale),
		Velocity:        quantizeVec(t.Velocity),
		AngularVelocity: quantizeVec(t.AngularVelocity),
		At:              t.At,
	}
}

// SamePose reports whether two transforms carry the same pose,
// ignoring At. Both sides are expected to be quantized already.
func (t Transform) SamePose(o Transform) bool {
	return t.Position == o.Position &&
		t.Rotation == o.Rotation &&
		t.Scale == o.Scale &&
		t.Velocity == o.Velocity &&
		t.AngularVelocity == o.AngularVelocity
}

// DefaultTransform is the initial pose for every body-part path.
func DefaultTransform() Transform {
	return Transform{Scale: Vector3{X: 1, Y: 1, Z: 1}}
}
