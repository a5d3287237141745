package raycast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const tolerance = 1e-9

func assertVecInDelta(t *testing.T, want, got r3.Vec, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tolerance, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, tolerance, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, tolerance, msgAndArgs...)
}

func TestPose_ZeroValueIsIdentity(t *testing.T) {
	p := r3.Vec{X: 1, Y: -2, Z: 3}
	assertVecInDelta(t, p, Pose{}.Apply(p))
	assertVecInDelta(t, p, IdentityPose().Apply(p))
}

func TestPose_Translation(t *testing.T) {
	got := Translation(1, 2, 3).Apply(r3.Vec{X: 1, Y: 1, Z: 1})
	assertVecInDelta(t, r3.Vec{X: 2, Y: 3, Z: 4}, got)
}

func TestPoseFromRPY_Rotations(t *testing.T) {
	tests := []struct {
		name             string
		roll, pitch, yaw float64
		in, want         r3.Vec
	}{
		{"yaw 90 maps x to y", 0, 0, math.Pi / 2, r3.Vec{X: 1}, r3.Vec{Y: 1}},
		{"pitch 90 maps x to -z", 0, math.Pi / 2, 0, r3.Vec{X: 1}, r3.Vec{Z: -1}},
		{"roll 90 maps y to z", math.Pi / 2, 0, 0, r3.Vec{Y: 1}, r3.Vec{Z: 1}},
		{"yaw 180 flips x", 0, 0, math.Pi, r3.Vec{X: 2}, r3.Vec{X: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PoseFromRPY(0, 0, 0, tt.roll, tt.pitch, tt.yaw)
			assertVecInDelta(t, tt.want, p.Apply(tt.in))
		})
	}
}

func TestPose_RPYRoundTrip(t *testing.T) {
	p := PoseFromRPY(0, 0, 0, 0.1, -0.4, 2.5)
	roll, pitch, yaw := p.RPY()
	assert.InDelta(t, 0.1, roll, tolerance)
	assert.InDelta(t, -0.4, pitch, tolerance)
	assert.InDelta(t, 2.5, yaw, tolerance)
}

func TestPose_ComposeAppliesRightFirst(t *testing.T) {
	body := PoseFromRPY(1, 0, 0, 0, 0, math.Pi/2)
	sensor := Translation(0.5, 0, 0.2)

	composed := body.Compose(sensor)

	// sensor origin is 0.5 ahead of the body; body faces +y
	assertVecInDelta(t, r3.Vec{X: 1, Y: 0.5, Z: 0.2}, composed.Position)

	pt := r3.Vec{X: 1, Y: 2, Z: 3}
	assertVecInDelta(t, body.Apply(sensor.Apply(pt)), composed.Apply(pt))
}

func TestPose_InverseUndoes(t *testing.T) {
	p := PoseFromRPY(3, -1, 2, 0.3, 0.2, -1.1)
	pt := r3.Vec{X: -4, Y: 5, Z: 0.5}

	assertVecInDelta(t, pt, p.Inverse().Apply(p.Apply(pt)))

	id := p.Compose(p.Inverse())
	assertVecInDelta(t, r3.Vec{}, id.Position)
	assert.InDelta(t, 1, math.Abs(id.Orientation.Real), tolerance)
}

func TestPose_InverseOfTranslation(t *testing.T) {
	inv := Translation(0, 0, 0.2).Inverse()
	assertVecInDelta(t, r3.Vec{Z: -0.2}, inv.Position)
}

func TestPose_ApplyAllMatchesApply(t *testing.T) {
	p := PoseFromRPY(1, 2, 3, 0.5, 0.1, 0.7)
	points := []r3.Vec{{X: 1}, {Y: 2}, {Z: -3}, {X: 1, Y: 1, Z: 1}}

	got := p.ApplyAll(points)
	for i, pt := range points {
		assertVecInDelta(t, p.Apply(pt), got[i], "point %d", i)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, quat.Number{Real: 1}, normalize(quat.Number{}))
	q := normalize(quat.Number{Real: 2, Kmag: 2})
	assert.InDelta(t, 1, quat.Abs(q), tolerance)
}
