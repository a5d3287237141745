package raycast

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// castRangeFactor stretches ray casts past the sensor max range so particles
// that drifted away from obstacles still find them
const castRangeFactor = 1.5

// Model is the ray-casting observation model. It weights particles by how
// well a scan agrees with the occupancy map from each particle's pose.
//
// Map, Params and the scan are only read during evaluation, so one Model may
// serve concurrent Evaluate calls.
type Model struct {
	Map             OccupancyMap
	Params          NoiseParameters
	UseSquaredError bool

	// Workers bounds the number of particles evaluated concurrently.
	// Zero uses GOMAXPROCS; one evaluates sequentially.
	Workers int

	// Sink receives the designated particle's virtual cloud after each
	// successful integration. Optional.
	Sink CloudSink

	Logger Logger

	missingMapReported atomic.Bool
}

// NewModel creates a model after validating the noise parameters
func NewModel(occMap OccupancyMap, params NoiseParameters, logger Logger) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NopLogger{}
	}
	return &Model{
		Map:    occMap,
		Params: params,
		Logger: logger,
	}, nil
}

// NewModelFromConfig creates a model with the beam parameters and worker
// count of a loaded configuration
func NewModelFromConfig(occMap OccupancyMap, config *Config, logger Logger) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m, err := NewModel(occMap, config.Raycasting.NoiseParameters, logger)
	if err != nil {
		return nil, err
	}
	m.UseSquaredError = config.Raycasting.UseSquaredError
	m.Workers = config.Workers
	return m, nil
}

func (m *Model) logger() Logger {
	if m.Logger == nil {
		return NopLogger{}
	}
	return m.Logger
}

// reportMissingMap logs the missing map at error level the first time only
func (m *Model) reportMissingMap() {
	if m.missingMapReported.CompareAndSwap(false, true) {
		m.logger().Errorf("Map is not set in raycasting, skipping measurement integration")
		return
	}
	m.logger().Debugf("Map is still not set in raycasting")
}

// Evaluation is the result of evaluating one scan from one particle pose
type Evaluation struct {
	LogLikelihood float64
	Beams         int
	Hits          int
	Misses        int
	MaxRange      int

	// Cloud holds the ray-cast endpoints when recording was requested, nil otherwise
	Cloud *VirtualCloud
}

// Evaluate computes the log-likelihood of scan as seen by a sensor mounted at
// sensorOffset on a body at pose. When record is set, every ray-cast endpoint
// is collected into the returned cloud.
//
// Beams measured beyond maxRange contribute log(ZMax) without a ray cast.
// Other beams are cast from the sensor origin towards their map-frame point
// for castRangeFactor·maxRange, treating unknown cells as free.
func (m *Model) Evaluate(pose Pose, scan Scan, sensorOffset Pose, maxRange float64, record bool) (Evaluation, error) {
	if err := scan.Validate(); err != nil {
		return Evaluation{}, err
	}
	if m.Map == nil {
		return Evaluation{}, ErrMissingMap
	}
	if !(maxRange > 0) || math.IsInf(maxRange, 0) {
		return Evaluation{}, fmt.Errorf("%w: got %g", ErrInvalidMaxRange, maxRange)
	}

	sensorPose := pose.Compose(sensorOffset)
	origin := sensorPose.Position
	points := sensorPose.ApplyAll(scan.Points)

	eval := Evaluation{Beams: len(points)}
	if record {
		eval.Cloud = &VirtualCloud{Frame: MapFrame}
	}

	for i, pt := range points {
		measured := scan.Ranges[i]

		var p float64
		if measured > maxRange {
			p = MaxRangeLikelihood(m.Params)
			eval.MaxRange++
		} else {
			res := m.Map.CastRay(origin, r3.Sub(pt, origin), castRangeFactor*maxRange, true)
			if res.Hit {
				if !m.Map.IsOccupied(res.End) {
					return Evaluation{}, fmt.Errorf("%w: beam %d at (%g, %g, %g)",
						ErrHitNotOccupied, i, res.End.X, res.End.Y, res.End.Z)
				}
				cast := r3.Norm(r3.Sub(origin, res.End))
				p = Likelihood(measured, cast, maxRange, m.UseSquaredError, m.Params)
				eval.Hits++
				if record {
					eval.Cloud.Points = append(eval.Cloud.Points, res.End)
				}
			} else {
				p = NoHitLikelihood(maxRange, m.Params)
				eval.Misses++
			}
		}

		// p is a density and may exceed 1
		if !(p > 0) || math.IsInf(p, 0) {
			return Evaluation{}, fmt.Errorf("%w: beam %d p=%g", ErrNonPositiveLikelihood, i, p)
		}
		eval.LogLikelihood += math.Log(p)
	}

	return eval, nil
}
