package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kwv/octoloc/raycast"
)

// ScanFile is the on-disk form of a scan. Points are in the sensor frame.
// When Ranges is omitted each range is the point's distance from the sensor.
type ScanFile struct {
	Points [][3]float64 `json:"points"`
	Ranges []float64    `json:"ranges,omitempty"`
}

// ParticleFile is the on-disk form of one particle
type ParticleFile struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Roll   float64 `json:"roll"`
	Pitch  float64 `json:"pitch"`
	Yaw    float64 `json:"yaw"`
	Weight float64 `json:"weight"`
}

func readJSON(path, what string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s file not found: %s", what, path)
		}
		return fmt.Errorf("reading %s file: %w", what, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s JSON: %w", what, err)
	}
	return nil
}

// LoadScan reads a scan from a JSON file
func LoadScan(path string) (raycast.Scan, error) {
	var file ScanFile
	if err := readJSON(path, "scan", &file); err != nil {
		return raycast.Scan{}, err
	}

	points := make([]r3.Vec, len(file.Points))
	for i, p := range file.Points {
		points[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	if file.Ranges == nil {
		return raycast.ScanFromPoints(points), nil
	}

	scan := raycast.Scan{Points: points, Ranges: file.Ranges}
	if err := scan.Validate(); err != nil {
		return raycast.Scan{}, fmt.Errorf("scan %s: %w", path, err)
	}
	return scan, nil
}

// LoadParticles reads a particle set from a JSON array
func LoadParticles(path string) ([]raycast.Particle, error) {
	var files []ParticleFile
	if err := readJSON(path, "particles", &files); err != nil {
		return nil, err
	}

	particles := make([]raycast.Particle, len(files))
	for i, p := range files {
		particles[i] = raycast.Particle{
			Pose:   raycast.PoseFromRPY(p.X, p.Y, p.Z, p.Roll, p.Pitch, p.Yaw),
			Weight: p.Weight,
		}
	}
	return particles, nil
}

// bestParticle returns the index of the highest-weight particle, -1 if empty.
// Ties go to the lowest index.
func bestParticle(particles []raycast.Particle) int {
	best := -1
	for i, p := range particles {
		if best < 0 || p.Weight > particles[best].Weight {
			best = i
		}
	}
	return best
}
