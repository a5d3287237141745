package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile    string
	MapFile       string
	ScanFile      string
	ParticlesFile string
	Best          int
	Clearance     bool
	GeoJSONFile   string
	SnapshotFile  string
	Publish       bool
	ShowVersion   bool
}

// Runner is implemented by App; tests substitute a mock
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunIntegrate() error
	RunClearance() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("octoloc: %v", err)
	}
}

func run(args []string, out io.Writer, runner Runner) error {
	fs := flag.NewFlagSet("octoloc", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.MapFile, "map", "", "Path to voxel map YAML")
	fs.StringVar(&opts.ScanFile, "scan", "", "Path to scan JSON ({\"points\": [[x,y,z]...], \"ranges\": [...]})")
	fs.StringVar(&opts.ParticlesFile, "particles", "", "Path to particle set JSON")
	fs.IntVar(&opts.Best, "best", -1, "Particle whose virtual cloud is recorded (default: highest weight)")
	fs.BoolVar(&opts.Clearance, "clearance", false, "Check ground clearance of every particle and exit")
	fs.StringVar(&opts.GeoJSONFile, "geojson", "", "Write the virtual cloud as GeoJSON to this file")
	fs.StringVar(&opts.SnapshotFile, "snapshot", "", "Render the virtual cloud to this .svg or .png file")
	fs.BoolVar(&opts.Publish, "publish", false, "Publish the virtual cloud over MQTT")
	fs.BoolVar(&opts.ShowVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "octoloc version: %s\n", Version)
	if opts.ShowVersion {
		return nil
	}

	runner.ApplyOptions(opts)

	if opts.Clearance {
		return runner.RunClearance()
	}

	if opts.ScanFile != "" {
		return runner.RunIntegrate()
	}

	fmt.Fprintln(out, "Nothing to do.")
	fmt.Fprintln(out, "Use -map MAP -particles PARTICLES -scan SCAN to weight a particle set")
	fmt.Fprintln(out, "Use -map MAP -particles PARTICLES -clearance to check ground clearance")
	fmt.Fprintln(out, "Use -geojson, -snapshot or -publish to export the best particle's virtual cloud")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - beam model, sensor and footprint offsets, MQTT settings")
	return nil
}
