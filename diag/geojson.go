package diag

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/kwv/octoloc/raycast"
)

// CloudToFeatureCollection projects a virtual cloud onto the map's XY plane.
// Each endpoint becomes a Point feature carrying its height in "z"; a final
// "extent" Polygon feature covers the cloud's bounding box.
func CloudToFeatureCollection(cloud *raycast.VirtualCloud) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if cloud.Len() == 0 {
		return fc
	}

	mp := make(orb.MultiPoint, 0, cloud.Len())
	minZ, maxZ := cloud.Points[0].Z, cloud.Points[0].Z
	for i, p := range cloud.Points {
		pt := orb.Point{p.X, p.Y}
		mp = append(mp, pt)

		f := geojson.NewFeature(pt)
		f.Properties["kind"] = "endpoint"
		f.Properties["index"] = i
		f.Properties["z"] = p.Z
		fc.Append(f)

		minZ = min(minZ, p.Z)
		maxZ = max(maxZ, p.Z)
	}

	centroid, _ := planar.CentroidArea(mp)
	extent := geojson.NewFeature(mp.Bound().ToPolygon())
	extent.Properties["kind"] = "extent"
	extent.Properties["frame"] = cloud.Frame
	extent.Properties["particle"] = cloud.Particle
	extent.Properties["count"] = cloud.Len()
	extent.Properties["minZ"] = minZ
	extent.Properties["maxZ"] = maxZ
	extent.Properties["centroid"] = []float64{centroid[0], centroid[1]}
	fc.Append(extent)

	return fc
}

// GeoJSONSink writes each virtual cloud to Path, replacing the previous one
type GeoJSONSink struct {
	Path string
}

var _ raycast.CloudSink = (*GeoJSONSink)(nil)

// PublishVirtualCloud implements raycast.CloudSink
func (s *GeoJSONSink) PublishVirtualCloud(cloud *raycast.VirtualCloud) error {
	data, err := CloudToFeatureCollection(cloud).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON file: %w", err)
	}
	return nil
}
