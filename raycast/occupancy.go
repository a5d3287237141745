package raycast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// OccupancyMap is the volumetric map the beam model casts rays against.
// Implementations must be safe for concurrent reads.
type OccupancyMap interface {
	// CastRay returns the first occupied cell along direction from origin
	// within maxLength. With ignoreUnknown, unknown cells are treated as free;
	// otherwise reaching an unknown cell ends the cast as a miss.
	CastRay(origin, direction r3.Vec, maxLength float64, ignoreUnknown bool) RayCastResult
	IsOccupied(p r3.Vec) bool
	Resolution() float64
}

// VoxelState is the occupancy state of one voxel
type VoxelState uint8

const (
	VoxelUnknown VoxelState = iota
	VoxelFree
	VoxelOccupied
)

func (s VoxelState) String() string {
	switch s {
	case VoxelFree:
		return "free"
	case VoxelOccupied:
		return "occupied"
	default:
		return "unknown"
	}
}

type voxelKey [3]int32

// VoxelMap is a sparse cubic voxel grid. Cells not stored are unknown.
// It is not safe to modify concurrently with reads; build it first, then share it.
type VoxelMap struct {
	resolution float64
	cells      map[voxelKey]VoxelState
	min, max   voxelKey
}

// NewVoxelMap creates an empty map with the given edge length per voxel
func NewVoxelMap(resolution float64) (*VoxelMap, error) {
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("voxel resolution must be > 0, got %g", resolution)
	}
	return &VoxelMap{
		resolution: resolution,
		cells:      make(map[voxelKey]VoxelState),
	}, nil
}

// Resolution returns the voxel edge length
func (m *VoxelMap) Resolution() float64 {
	return m.resolution
}

// Len returns the number of known (free or occupied) voxels
func (m *VoxelMap) Len() int {
	return len(m.cells)
}

func (m *VoxelMap) keyOf(p r3.Vec) voxelKey {
	return voxelKey{
		int32(math.Floor(p.X / m.resolution)),
		int32(math.Floor(p.Y / m.resolution)),
		int32(math.Floor(p.Z / m.resolution)),
	}
}

// center returns the voxel center, which is what CastRay reports as the hit point
func (m *VoxelMap) center(k voxelKey) r3.Vec {
	return r3.Vec{
		X: (float64(k[0]) + 0.5) * m.resolution,
		Y: (float64(k[1]) + 0.5) * m.resolution,
		Z: (float64(k[2]) + 0.5) * m.resolution,
	}
}

// Set marks the voxel containing p. Setting VoxelUnknown forgets the voxel.
func (m *VoxelMap) Set(p r3.Vec, state VoxelState) {
	k := m.keyOf(p)
	if state == VoxelUnknown {
		delete(m.cells, k)
		return
	}
	if len(m.cells) == 0 {
		m.min, m.max = k, k
	} else {
		for i := range k {
			m.min[i] = min(m.min[i], k[i])
			m.max[i] = max(m.max[i], k[i])
		}
	}
	m.cells[k] = state
}

// SetOccupied marks the voxel containing p as occupied
func (m *VoxelMap) SetOccupied(p r3.Vec) {
	m.Set(p, VoxelOccupied)
}

// SetFree marks the voxel containing p as free
func (m *VoxelMap) SetFree(p r3.Vec) {
	m.Set(p, VoxelFree)
}

// FillBox sets every voxel whose center lies inside the axis-aligned box [lo, hi]
func (m *VoxelMap) FillBox(lo, hi r3.Vec, state VoxelState) {
	a, b := m.keyOf(lo), m.keyOf(hi)
	for x := min(a[0], b[0]); x <= max(a[0], b[0]); x++ {
		for y := min(a[1], b[1]); y <= max(a[1], b[1]); y++ {
			for z := min(a[2], b[2]); z <= max(a[2], b[2]); z++ {
				m.Set(m.center(voxelKey{x, y, z}), state)
			}
		}
	}
}

// State returns the state of the voxel containing p
func (m *VoxelMap) State(p r3.Vec) VoxelState {
	return m.cells[m.keyOf(p)]
}

// IsOccupied reports whether the voxel containing p is occupied
func (m *VoxelMap) IsOccupied(p r3.Vec) bool {
	return m.State(p) == VoxelOccupied
}

// CastRay walks the voxels pierced by the ray (Amanatides & Woo traversal)
// and reports the center of the first occupied one. A non-positive or
// non-finite maxLength casts until the ray leaves the map's bounds.
func (m *VoxelMap) CastRay(origin, direction r3.Vec, maxLength float64, ignoreUnknown bool) RayCastResult {
	n := r3.Norm(direction)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) || !finite(origin) || len(m.cells) == 0 {
		return RayCastResult{}
	}
	dir := r3.Scale(1/n, direction)

	cur := m.keyOf(origin)
	switch m.cells[cur] {
	case VoxelOccupied:
		return RayCastResult{Hit: true, End: m.center(cur)}
	case VoxelUnknown:
		if !ignoreUnknown {
			return RayCastResult{}
		}
	}

	if !(maxLength > 0) || math.IsInf(maxLength, 0) {
		maxLength = m.boundsReach(origin)
	}

	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	var (
		step   [3]int32
		tMax   [3]float64
		tDelta [3]float64
	)
	for i := range 3 {
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (float64(cur[i]+1)*m.resolution - o[i]) / d[i]
			tDelta[i] = m.resolution / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (float64(cur[i])*m.resolution - o[i]) / d[i]
			tDelta[i] = -m.resolution / d[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	for {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		if tMax[axis] > maxLength {
			return RayCastResult{}
		}
		cur[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		switch m.cells[cur] {
		case VoxelOccupied:
			return RayCastResult{Hit: true, End: m.center(cur)}
		case VoxelUnknown:
			if !ignoreUnknown {
				return RayCastResult{}
			}
		}
	}
}

// boundsReach is the distance from origin to the far corner of the map bounds
func (m *VoxelMap) boundsReach(origin r3.Vec) float64 {
	lo := r3.Vec{
		X: float64(m.min[0]) * m.resolution,
		Y: float64(m.min[1]) * m.resolution,
		Z: float64(m.min[2]) * m.resolution,
	}
	hi := r3.Vec{
		X: float64(m.max[0]+1) * m.resolution,
		Y: float64(m.max[1]+1) * m.resolution,
		Z: float64(m.max[2]+1) * m.resolution,
	}
	far := r3.Vec{
		X: math.Max(math.Abs(origin.X-lo.X), math.Abs(origin.X-hi.X)),
		Y: math.Max(math.Abs(origin.Y-lo.Y), math.Abs(origin.Y-hi.Y)),
		Z: math.Max(math.Abs(origin.Z-lo.Z), math.Abs(origin.Z-hi.Z)),
	}
	return r3.Norm(far)
}

func finite(v r3.Vec) bool {
	for _, x := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
