package raycast

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// VoxelMapFile is the on-disk YAML layout of a voxel map
type VoxelMapFile struct {
	Resolution float64      `yaml:"resolution"`
	Occupied   [][3]float64 `yaml:"occupied,omitempty"`
	Free       [][3]float64 `yaml:"free,omitempty"`
	Boxes      []VoxelBox   `yaml:"boxes,omitempty"`
}

// VoxelBox fills an axis-aligned region with one state ("occupied" or "free")
type VoxelBox struct {
	Min   [3]float64 `yaml:"min"`
	Max   [3]float64 `yaml:"max"`
	State string     `yaml:"state"`
}

func vec(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

// LoadVoxelMap reads a voxel map from a YAML file.
// Boxes are applied first, then free cells, then occupied cells.
func LoadVoxelMap(path string) (*VoxelMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("map file not found: %s", path)
		}
		return nil, fmt.Errorf("reading map file: %w", err)
	}

	var file VoxelMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing map YAML: %w", err)
	}

	return file.Build()
}

// Build materializes the file contents into a VoxelMap
func (f *VoxelMapFile) Build() (*VoxelMap, error) {
	m, err := NewVoxelMap(f.Resolution)
	if err != nil {
		return nil, err
	}

	for i, box := range f.Boxes {
		var state VoxelState
		switch box.State {
		case "occupied", "":
			state = VoxelOccupied
		case "free":
			state = VoxelFree
		default:
			return nil, fmt.Errorf("boxes[%d].state must be occupied or free, got %q", i, box.State)
		}
		m.FillBox(vec(box.Min), vec(box.Max), state)
	}
	for _, p := range f.Free {
		m.SetFree(vec(p))
	}
	for _, p := range f.Occupied {
		m.SetOccupied(vec(p))
	}

	return m, nil
}
