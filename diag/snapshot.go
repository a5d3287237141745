package diag

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kwv/octoloc/raycast"
)

// SnapshotRenderer draws a top-down view of a virtual cloud and the particle
// set it was computed for. Endpoints are colored by height.
type SnapshotRenderer struct {
	Cloud      *raycast.VirtualCloud
	Particles  []raycast.Particle
	Highlight  int               // particle drawn emphasized, -1 for none
	Scale      float64           // canvas millimeters per map meter
	Padding    float64           // meters around the content
	Resolution canvas.Resolution // PNG resolution
}

// NewSnapshotRenderer creates a renderer with default settings
func NewSnapshotRenderer(cloud *raycast.VirtualCloud, particles []raycast.Particle) *SnapshotRenderer {
	highlight := -1
	if cloud != nil {
		highlight = cloud.Particle
	}
	return &SnapshotRenderer{
		Cloud:      cloud,
		Particles:  particles,
		Highlight:  highlight,
		Scale:      50.0, // 5cm on canvas per meter
		Padding:    0.5,
		Resolution: canvas.DPMM(8),
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the snapshot as an SVG to the provided writer
func (r *SnapshotRenderer) RenderToSVG(w io.Writer) error {
	minX, minY, maxX, maxY := r.bounds()
	width, height := r.canvasSize(minX, minY, maxX, maxY)

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minX, minY, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the snapshot as a PNG with a caption line
func (r *SnapshotRenderer) RenderToPNG(w io.Writer) error {
	minX, minY, maxX, maxY := r.bounds()
	width, height := r.canvasSize(minX, minY, maxX, maxY)

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minX, minY, width, height)
	drawText(rast, 4, 14, r.caption(), color.RGBA{0, 0, 0, 255})

	return png.Encode(w, rast)
}

func (r *SnapshotRenderer) caption() string {
	return fmt.Sprintf("virtual cloud: %d points, particle %d of %d",
		r.Cloud.Len(), r.Highlight, len(r.Particles))
}

func (r *SnapshotRenderer) canvasSize(minX, minY, maxX, maxY float64) (float64, float64) {
	return (maxX - minX + 2*r.Padding) * r.Scale, (maxY - minY + 2*r.Padding) * r.Scale
}

// bounds returns the XY extent of all endpoints and particle positions
func (r *SnapshotRenderer) bounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64

	grow := func(x, y float64) {
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	if r.Cloud != nil {
		for _, p := range r.Cloud.Points {
			grow(p.X, p.Y)
		}
	}
	for _, p := range r.Particles {
		grow(p.Pose.Position.X, p.Pose.Position.Y)
	}

	if minX > maxX {
		return -1, -1, 1, 1
	}
	return minX, minY, maxX, maxY
}

func (r *SnapshotRenderer) heightRange() (float64, float64) {
	if r.Cloud.Len() == 0 {
		return 0, 0
	}
	lo, hi := r.Cloud.Points[0].Z, r.Cloud.Points[0].Z
	for _, p := range r.Cloud.Points {
		lo, hi = math.Min(lo, p.Z), math.Max(hi, p.Z)
	}
	return lo, hi
}

func (r *SnapshotRenderer) renderToCanvas(renderer canvasRenderer, minX, minY, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(x, y float64) (float64, float64) {
		return (x - minX + r.Padding) * r.Scale, (y - minY + r.Padding) * r.Scale
	}

	// endpoints
	if r.Cloud.Len() > 0 {
		lo, hi := r.heightRange()
		for _, p := range r.Cloud.Points {
			style := canvas.DefaultStyle
			style.Fill = canvas.Paint{Color: heightColor(p.Z, lo, hi)}
			style.Stroke = canvas.Paint{Color: canvas.Transparent}

			cx, cy := toCanvas(p.X, p.Y)
			renderer.RenderPath(canvas.Circle(0.5).Translate(cx, cy), style, canvas.Identity)
		}
	}

	// particles with a heading tick
	for i, p := range r.Particles {
		radius, c := 0.6, canvas.Gray
		if i == r.Highlight {
			radius, c = 1.2, canvas.Red
		}
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: c}
		style.StrokeWidth = 0.2

		cx, cy := toCanvas(p.Pose.Position.X, p.Pose.Position.Y)
		renderer.RenderPath(canvas.Circle(radius).Translate(cx, cy), style, canvas.Identity)

		_, _, yaw := p.Pose.RPY()
		tick := &canvas.Path{}
		tick.MoveTo(cx, cy)
		tick.LineTo(cx+3*radius*math.Cos(yaw), cy+3*radius*math.Sin(yaw))
		renderer.RenderPath(tick, style, canvas.Identity)
	}
}

// heightColor maps z onto a blue (low) to red (high) ramp
func heightColor(z, lo, hi float64) color.RGBA {
	t := 0.5
	if hi > lo {
		t = (z - lo) / (hi - lo)
	}
	t = math.Max(0, math.Min(1, t))
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(64 * (1 - math.Abs(2*t-1))),
		B: uint8(255 * (1 - t)),
		A: 255,
	}
}

func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// SnapshotSink renders each virtual cloud to Path, as SVG or PNG by extension
type SnapshotSink struct {
	Path      string
	Particles []raycast.Particle
}

var _ raycast.CloudSink = (*SnapshotSink)(nil)

// PublishVirtualCloud implements raycast.CloudSink
func (s *SnapshotSink) PublishVirtualCloud(cloud *raycast.VirtualCloud) error {
	renderer := NewSnapshotRenderer(cloud, s.Particles)

	var render func(io.Writer) error
	switch ext := filepath.Ext(s.Path); strings.ToLower(ext) {
	case ".svg":
		render = renderer.RenderToSVG
	case ".png":
		render = renderer.RenderToPNG
	default:
		return fmt.Errorf("unsupported snapshot format %q (want .svg or .png)", ext)
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	if err := render(f); err != nil {
		return fmt.Errorf("rendering snapshot: %w", err)
	}
	return f.Close()
}
