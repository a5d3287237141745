package raycast

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// MapFrame is the frame id attached to virtual clouds
const MapFrame = "map"

// Particle is one pose hypothesis of the localization filter.
// Weight accumulates log-likelihood; the filter owns normalization and reset.
type Particle struct {
	Pose   Pose
	Weight float64
}

// Scan is one range-sensor reading: points in the sensor frame paired with
// the ranges the sensor measured for them.
type Scan struct {
	Points []r3.Vec
	Ranges []float64
}

// Len returns the number of beams in the scan
func (s Scan) Len() int {
	return len(s.Points)
}

// Validate checks that every point has a matching range
func (s Scan) Validate() error {
	if len(s.Points) != len(s.Ranges) {
		return fmt.Errorf("%w: %d points, %d ranges", ErrScanMismatch, len(s.Points), len(s.Ranges))
	}
	return nil
}

// ScanFromPoints builds a scan whose ranges are the distances of each point
// from the sensor origin
func ScanFromPoints(points []r3.Vec) Scan {
	ranges := make([]float64, len(points))
	for i, p := range points {
		ranges[i] = r3.Norm(p)
	}
	return Scan{Points: points, Ranges: ranges}
}

// RayCastResult is the outcome of a single ray cast. End is only meaningful when Hit is true.
type RayCastResult struct {
	Hit bool
	End r3.Vec
}

// VirtualCloud holds the ray-cast endpoints recorded for one particle.
// It is diagnostic output only and has no effect on the weights.
type VirtualCloud struct {
	Frame    string
	Particle int
	Points   []r3.Vec
}

// Len returns the number of recorded endpoints
func (c *VirtualCloud) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Points)
}

// CloudSink consumes virtual clouds produced by the integrator
type CloudSink interface {
	PublishVirtualCloud(cloud *VirtualCloud) error
}

// CloudSinks fans a cloud out to several sinks, stopping at the first error
type CloudSinks []CloudSink

// PublishVirtualCloud implements CloudSink
func (s CloudSinks) PublishVirtualCloud(cloud *VirtualCloud) error {
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.PublishVirtualCloud(cloud); err != nil {
			return err
		}
	}
	return nil
}
