package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunIntegrate() error          { m.called["RunIntegrate"] = true; return m.err }
func (m *mockApp) RunClearance() error          { m.called["RunClearance"] = true; return m.err }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "Integrate",
			args:           []string{"--map", "room.yaml", "--particles", "p.json", "--scan", "scan.json"},
			expectedCalled: "RunIntegrate",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.MapFile != "room.yaml" {
					t.Errorf("expected MapFile room.yaml, got %s", opts.MapFile)
				}
				if opts.ParticlesFile != "p.json" {
					t.Errorf("expected ParticlesFile p.json, got %s", opts.ParticlesFile)
				}
				if opts.ScanFile != "scan.json" {
					t.Errorf("expected ScanFile scan.json, got %s", opts.ScanFile)
				}
				if opts.Best != -1 {
					t.Errorf("expected Best -1 by default, got %d", opts.Best)
				}
				if opts.ConfigFile != "config.yaml" {
					t.Errorf("expected default ConfigFile config.yaml, got %s", opts.ConfigFile)
				}
			},
		},
		{
			name:           "IntegrateWithOutputs",
			args:           []string{"--scan", "s.json", "--best", "4", "--geojson", "c.geojson", "--snapshot", "c.svg", "--publish"},
			expectedCalled: "RunIntegrate",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.Best != 4 {
					t.Errorf("expected Best 4, got %d", opts.Best)
				}
				if opts.GeoJSONFile != "c.geojson" {
					t.Errorf("expected GeoJSONFile c.geojson, got %s", opts.GeoJSONFile)
				}
				if opts.SnapshotFile != "c.svg" {
					t.Errorf("expected SnapshotFile c.svg, got %s", opts.SnapshotFile)
				}
				if !opts.Publish {
					t.Error("expected Publish true")
				}
			},
		},
		{
			name:           "Clearance",
			args:           []string{"--clearance", "--config", "robot.yaml", "--scan", "ignored.json"},
			expectedCalled: "RunClearance",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.Clearance {
					t.Error("expected Clearance true")
				}
				if opts.ConfigFile != "robot.yaml" {
					t.Errorf("expected ConfigFile robot.yaml, got %s", opts.ConfigFile)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one runner call, got %v", app.called)
			}

			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if err == nil {
		t.Error("expected error from --help, got nil")
	}
	if !strings.Contains(out.String(), "Usage of octoloc") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "octoloc version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "Nothing to do.") {
		t.Errorf("expected usage hints, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("expected no runner call, got %v", app.called)
	}
}

func TestRun_Version(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--version", "--scan", "s.json"}, &out, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(app.called) != 0 {
		t.Errorf("expected no runner call with --version, got %v", app.called)
	}
}

func TestRun_PropagatesRunnerError(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("boom")
	var out bytes.Buffer
	err := run([]string{"--scan", "s.json"}, &out, app)
	if err == nil || err.Error() != "boom" {
		t.Errorf("expected runner error, got %v", err)
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
