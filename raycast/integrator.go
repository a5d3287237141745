package raycast

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// IntegrationResult describes one Integrate call
type IntegrationResult struct {
	// Deltas[i] is the log-likelihood added to particles[i].Weight
	Deltas []float64

	// Designated is the index of the particle that recorded Cloud, -1 if none
	Designated int
	Cloud      *VirtualCloud
}

// Integrate weights every particle by the scan and adds the resulting
// log-likelihood to its Weight. Only the particle at designated records a
// virtual cloud; pass -1 to record none.
//
// The scan is checked before the map. All deltas are computed before any
// weight is touched: if the scan is malformed, the map is missing, the map breaks its contract or ctx is
// cancelled, no particle is modified. Each delta is produced by a single
// goroutine in beam order, so results do not depend on Workers.
func (m *Model) Integrate(ctx context.Context, particles []Particle, scan Scan, sensorOffset Pose, maxRange float64, designated int) (IntegrationResult, error) {
	result := IntegrationResult{Designated: -1}

	if err := scan.Validate(); err != nil {
		return result, err
	}
	if m.Map == nil {
		m.reportMissingMap()
		return result, ErrMissingMap
	}

	deltas, cloud, err := m.reduce(ctx, particles, scan, sensorOffset, maxRange, designated)
	if err != nil {
		return result, err
	}

	for i := range particles {
		particles[i].Weight += deltas[i]
	}

	result.Deltas = deltas
	if cloud != nil {
		result.Designated = designated
		result.Cloud = cloud
		m.publish(cloud)
	}
	return result, nil
}

// reduce evaluates every particle without mutating any of them
func (m *Model) reduce(ctx context.Context, particles []Particle, scan Scan, sensorOffset Pose, maxRange float64, designated int) ([]float64, *VirtualCloud, error) {
	deltas := make([]float64, len(particles))
	var cloud *VirtualCloud

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers(len(particles)))

	for i := range particles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record := i == designated
			eval, err := m.Evaluate(particles[i].Pose, scan, sensorOffset, maxRange, record)
			if err != nil {
				return fmt.Errorf("particle %d: %w", i, err)
			}
			deltas[i] = eval.LogLikelihood
			if record {
				m.logger().Debugf("Ray casting number for particle %d is %d (%d hits)", i, eval.Beams, eval.Hits)
				eval.Cloud.Particle = i
				cloud = eval.Cloud
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	// a cancellation that raced the last scheduled particle still aborts
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return deltas, cloud, nil
}

func (m *Model) workers(n int) int {
	w := m.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// publish hands the cloud to the sink; sink failures never fail integration
func (m *Model) publish(cloud *VirtualCloud) {
	if m.Sink == nil {
		return
	}
	if err := m.Sink.PublishVirtualCloud(cloud); err != nil {
		m.logger().Warnf("Publishing virtual cloud for particle %d failed: %v", cloud.Particle, err)
	}
}
