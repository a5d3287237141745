package diag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwv/octoloc/raycast"
)

func TestCloudToFeatureCollection(t *testing.T) {
	fc := CloudToFeatureCollection(testCloud())
	require.Len(t, fc.Features, 4)

	first := fc.Features[0]
	assert.Equal(t, orb.Point{1, 0}, first.Geometry)
	assert.Equal(t, "endpoint", first.Properties["kind"])
	assert.Equal(t, 0, first.Properties["index"])
	assert.Equal(t, 0.5, first.Properties["z"])

	extent := fc.Features[3]
	assert.Equal(t, "extent", extent.Properties["kind"])
	assert.Equal(t, orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 2}}, extent.Geometry.Bound())
	assert.Equal(t, "map", extent.Properties["frame"])
	assert.Equal(t, 3, extent.Properties["particle"])
	assert.Equal(t, 3, extent.Properties["count"])
	assert.Equal(t, -0.5, extent.Properties["minZ"])
	assert.Equal(t, 0.5, extent.Properties["maxZ"])

	centroid := extent.Properties["centroid"].([]float64)
	assert.InDelta(t, 0.0, centroid[0], 1e-9)
	assert.InDelta(t, 1.0/3.0, centroid[1], 1e-9)
}

func TestCloudToFeatureCollection_Empty(t *testing.T) {
	assert.Empty(t, CloudToFeatureCollection(nil).Features)
	assert.Empty(t, CloudToFeatureCollection(&raycast.VirtualCloud{Particle: 0}).Features)
}

func TestGeoJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud.geojson")
	sink := &GeoJSONSink{Path: path}

	require.NoError(t, sink.PublishVirtualCloud(testCloud()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 4)
	assert.Equal(t, "Polygon", fc.Features[3].Geometry.GeoJSONType())
}

func TestGeoJSONSink_BadPath(t *testing.T) {
	sink := &GeoJSONSink{Path: filepath.Join(t.TempDir(), "missing", "cloud.geojson")}
	assert.Error(t, sink.PublishVirtualCloud(testCloud()))
}
