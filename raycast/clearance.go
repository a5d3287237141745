package raycast

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// HeightError casts a ray from the particle's position towards the ground,
// along the inverse of footprintToBase's translation, for twice the offset
// length. It returns how far the ground found there is from where the
// footprint offset says it should be, less one voxel of tolerance.
//
// ok is false when nothing was hit: the clearance cannot be validated, which
// is not the same as a zero error.
func (m *Model) HeightError(pose Pose, footprintToBase Pose) (heightError float64, ok bool) {
	if m.Map == nil {
		m.reportMissingMap()
		return 0, false
	}

	direction := footprintToBase.Inverse().Position
	length := r3.Norm(direction)
	if length == 0 {
		return 0, false
	}

	origin := pose.Position
	res := m.Map.CastRay(origin, direction, 2*length, true)
	if !res.Hit {
		return 0, false
	}

	drop := r3.Sub(origin, res.End).Z
	heightError = math.Max(0, math.Abs(drop-footprintToBase.Position.Z)-m.Map.Resolution())
	return heightError, true
}

// ClearanceResult is the clearance check outcome for one particle
type ClearanceResult struct {
	Index       int
	HeightError float64
	OK          bool
}

// Plausible reports whether the clearance was determined and within maxError
func (c ClearanceResult) Plausible(maxError float64) bool {
	return c.OK && c.HeightError <= maxError
}

// CheckClearance runs HeightError for every particle. Particles are not modified.
func (m *Model) CheckClearance(particles []Particle, footprintToBase Pose) []ClearanceResult {
	results := make([]ClearanceResult, len(particles))
	for i, p := range particles {
		e, ok := m.HeightError(p.Pose, footprintToBase)
		results[i] = ClearanceResult{Index: i, HeightError: e, OK: ok}
	}
	return results
}

// FilterByClearance returns the indices of particles whose clearance is
// determinable and no larger than maxError
func (m *Model) FilterByClearance(particles []Particle, footprintToBase Pose, maxError float64) []int {
	var keep []int
	for _, r := range m.CheckClearance(particles, footprintToBase) {
		if r.Plausible(maxError) {
			keep = append(keep, r.Index)
		}
	}
	return keep
}
