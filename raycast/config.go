package raycast

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the unified configuration file
type Config struct {
	Raycasting RaycastingConfig `yaml:"raycasting" json:"raycasting"`
	Sensor     SensorConfig     `yaml:"sensor" json:"sensor"`
	Footprint  FootprintConfig  `yaml:"footprint" json:"footprint"`
	Workers    int              `yaml:"workers" json:"workers"` // 0 uses GOMAXPROCS
	LogLevel   string           `yaml:"log_level" json:"logLevel"`
	MQTT       MQTTConfig       `yaml:"mqtt" json:"mqtt"`
}

// RaycastingConfig holds the beam model parameters
type RaycastingConfig struct {
	NoiseParameters `yaml:",inline"`
	UseSquaredError bool `yaml:"use_squared_error" json:"useSquaredError"`
}

// SensorConfig describes the range sensor mounted on the body
type SensorConfig struct {
	MaxRange float64      `yaml:"max_range" json:"maxRange"`
	Offset   OffsetConfig `yaml:"offset" json:"offset"` // body -> sensor
}

// FootprintConfig describes the footprint -> base offset used for clearance checks
type FootprintConfig struct {
	Offset         OffsetConfig `yaml:"offset" json:"offset"`
	MaxHeightError float64      `yaml:"max_height_error" json:"maxHeightError"`
}

// OffsetConfig is a rigid offset in meters and radians
type OffsetConfig struct {
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Z     float64 `yaml:"z" json:"z"`
	Roll  float64 `yaml:"roll,omitempty" json:"roll,omitempty"`
	Pitch float64 `yaml:"pitch,omitempty" json:"pitch,omitempty"`
	Yaw   float64 `yaml:"yaw,omitempty" json:"yaw,omitempty"`
}

// Pose converts the offset to a rigid transform
func (o OffsetConfig) Pose() Pose {
	return PoseFromRPY(o.X, o.Y, o.Z, o.Roll, o.Pitch, o.Yaw)
}

// MQTTConfig holds MQTT connection settings for the diagnostic publisher
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
	QoS           byte   `yaml:"qos" json:"qos"`
	Retain        bool   `yaml:"retain" json:"retain"`
}

// DefaultConfig returns the configuration used for keys missing from the file
func DefaultConfig() Config {
	return Config{
		Raycasting: RaycastingConfig{NoiseParameters: DefaultNoiseParameters()},
		Sensor:     SensorConfig{MaxRange: 10.0},
		Footprint:  FootprintConfig{MaxHeightError: 0.1},
		LogLevel:   "info",
		MQTT: MQTTConfig{
			PublishPrefix: "octoloc",
			ClientID:      "octoloc",
			Retain:        true,
		},
	}
}

// Validate checks values that would break the model at runtime
func (c *Config) Validate() error {
	if err := c.Raycasting.Validate(); err != nil {
		return err
	}
	if !(c.Sensor.MaxRange > 0) || math.IsInf(c.Sensor.MaxRange, 0) {
		return fmt.Errorf("sensor.max_range needs to be finite and > 0, got %g", c.Sensor.MaxRange)
	}
	if !(c.Footprint.MaxHeightError >= 0) || math.IsInf(c.Footprint.MaxHeightError, 0) {
		return fmt.Errorf("footprint.max_height_error needs to be finite and >= 0, got %g", c.Footprint.MaxHeightError)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// LoadConfig loads the configuration from a YAML file on top of DefaultConfig
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
