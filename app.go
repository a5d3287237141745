package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kwv/octoloc/diag"
	"github.com/kwv/octoloc/raycast"
)

// App encapsulates the application state and dependencies
type App struct {
	Config *raycast.Config
	Logger raycast.Logger
	Out    io.Writer

	// CLI Flags (effectively dependencies)
	ConfigFile    string
	MapFile       string
	ScanFile      string
	ParticlesFile string
	Best          int
	GeoJSONFile   string
	SnapshotFile  string
	Publish       bool

	newMQTTClient func(raycast.MQTTConfig, raycast.Logger) (mqtt.Client, error)
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Out:           os.Stdout,
		Best:          -1,
		newMQTTClient: diag.NewMQTTClient,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.MapFile = opts.MapFile
	a.ScanFile = opts.ScanFile
	a.ParticlesFile = opts.ParticlesFile
	a.Best = opts.Best
	a.GeoJSONFile = opts.GeoJSONFile
	a.SnapshotFile = opts.SnapshotFile
	a.Publish = opts.Publish
}

// loadConfig loads the config file, falling back to defaults when it does not exist
func (a *App) loadConfig() error {
	defaulted := false
	if a.Config == nil {
		if _, err := os.Stat(a.ConfigFile); a.ConfigFile == "" || os.IsNotExist(err) {
			cfg := raycast.DefaultConfig()
			a.Config = &cfg
			defaulted = true
		} else {
			cfg, err := raycast.LoadConfig(a.ConfigFile)
			if err != nil {
				return err
			}
			a.Config = cfg
		}
	}
	if a.Logger == nil {
		a.Logger = raycast.NewLogrusLogger(a.Config.LogLevel, os.Stderr)
	}
	if defaulted {
		a.Logger.Infof("Config file %q not found, using defaults", a.ConfigFile)
	}
	return nil
}

// newModel loads config, map and particles and builds the model over them
func (a *App) newModel() (*raycast.Model, []raycast.Particle, error) {
	if err := a.loadConfig(); err != nil {
		return nil, nil, err
	}

	var occMap raycast.OccupancyMap
	if a.MapFile != "" {
		m, err := raycast.LoadVoxelMap(a.MapFile)
		if err != nil {
			return nil, nil, err
		}
		a.Logger.Infof("Loaded map %s: %d voxels at %.3fm", a.MapFile, m.Len(), m.Resolution())
		occMap = m
	}

	if a.ParticlesFile == "" {
		return nil, nil, fmt.Errorf("no particle set given (use -particles)")
	}
	particles, err := LoadParticles(a.ParticlesFile)
	if err != nil {
		return nil, nil, err
	}

	model, err := raycast.NewModelFromConfig(occMap, a.Config, a.Logger)
	if err != nil {
		return nil, nil, err
	}
	return model, particles, nil
}

// buildSinks assembles the diagnostic outputs requested on the command line.
// The returned cleanup disconnects MQTT if it was used.
func (a *App) buildSinks(particles []raycast.Particle) (raycast.CloudSinks, func(), error) {
	var sinks raycast.CloudSinks
	cleanup := func() {}

	if a.GeoJSONFile != "" {
		sinks = append(sinks, &diag.GeoJSONSink{Path: a.GeoJSONFile})
	}
	if a.SnapshotFile != "" {
		sinks = append(sinks, &diag.SnapshotSink{Path: a.SnapshotFile, Particles: particles})
	}
	if a.Publish {
		client, err := a.newMQTTClient(a.Config.MQTT, a.Logger)
		if err != nil {
			return nil, cleanup, err
		}
		if client == nil {
			a.Logger.Warnf("-publish given but no MQTT broker configured")
		} else {
			if err := diag.Connect(client, 10*time.Second); err != nil {
				return nil, cleanup, err
			}
			cleanup = func() { client.Disconnect(250) }
			publisher := diag.NewPublisher(client, a.Config.MQTT.PublishPrefix)
			publisher.SetQoS(a.Config.MQTT.QoS)
			publisher.SetRetain(a.Config.MQTT.Retain)
			sinks = append(sinks, publisher)
		}
	}
	return sinks, cleanup, nil
}

// RunIntegrate weights the particle set by one scan and prints the result
func (a *App) RunIntegrate() error {
	model, particles, err := a.newModel()
	if err != nil {
		return err
	}
	scan, err := LoadScan(a.ScanFile)
	if err != nil {
		return err
	}

	sinks, cleanup, err := a.buildSinks(particles)
	if err != nil {
		return err
	}
	defer cleanup()
	if len(sinks) > 0 {
		model.Sink = sinks
	}

	designated := a.Best
	if designated < 0 {
		designated = bestParticle(particles)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	res, err := model.Integrate(ctx, particles, scan, a.Config.Sensor.Offset.Pose(), a.Config.Sensor.MaxRange, designated)
	if err != nil {
		return fmt.Errorf("integrating scan: %w", err)
	}
	a.Logger.Debugf("Integrated %d beams over %d particles in %v", scan.Len(), len(particles), time.Since(start))

	fmt.Fprintf(a.Out, "Integrated %d beams into %d particles\n\n", scan.Len(), len(particles))
	fmt.Fprintf(a.Out, "%5s  %12s  %12s\n", "#", "delta", "weight")
	for i, p := range particles {
		marker := ""
		if i == res.Designated {
			marker = "  *"
		}
		fmt.Fprintf(a.Out, "%5d  %12.4f  %12.4f%s\n", i, res.Deltas[i], p.Weight, marker)
	}

	if res.Cloud != nil {
		fmt.Fprintf(a.Out, "\nVirtual cloud of particle %d: %d points\n", res.Designated, res.Cloud.Len())
	}
	return nil
}

// RunClearance prints the ground clearance of every particle
func (a *App) RunClearance() error {
	model, particles, err := a.newModel()
	if err != nil {
		return err
	}
	if model.Map == nil {
		return raycast.ErrMissingMap
	}

	footprint := a.Config.Footprint.Offset.Pose()
	maxError := a.Config.Footprint.MaxHeightError

	plausible := 0
	fmt.Fprintf(a.Out, "%5s  %12s  %s\n", "#", "height error", "status")
	for _, r := range model.CheckClearance(particles, footprint) {
		status := "no ground"
		switch {
		case r.Plausible(maxError):
			status = "ok"
			plausible++
		case r.OK:
			status = "implausible"
		}
		fmt.Fprintf(a.Out, "%5d  %12.4f  %s\n", r.Index, r.HeightError, status)
	}

	fmt.Fprintf(a.Out, "\n%d of %d particles within %.3fm of the ground\n", plausible, len(particles), maxError)
	return nil
}
