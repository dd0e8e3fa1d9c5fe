package nuscenesmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/mapgeom"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

const testMap = `{
  "version": "1.3",
  "node": [
    {"token": "n1", "x": 0, "y": 0},
    {"token": "n2", "x": 10, "y": 0},
    {"token": "n3", "x": 10, "y": 10},
    {"token": "n4", "x": 0, "y": 10},
    {"token": "n5", "x": 500, "y": 500},
    {"token": "n6", "x": 510, "y": 500},
    {"token": "h1", "x": 4, "y": 4},
    {"token": "h2", "x": 6, "y": 4},
    {"token": "h3", "x": 6, "y": 6}
  ],
  "line": [
    {"token": "l1", "node_tokens": ["n1", "n2"]},
    {"token": "l2", "node_tokens": ["n5", "n6"]},
    {"token": "bad", "node_tokens": ["n1", "missing"]}
  ],
  "polygon": [
    {"token": "p1", "exterior_node_tokens": ["n1", "n2", "n3", "n4"], "holes": [{"node_tokens": ["h1", "h2", "h3"]}]}
  ],
  "lane_divider": [{"token": "ld1", "line_token": "l1"}, {"token": "ld2", "line_token": "l2"}],
  "road_divider": [{"token": "rd1", "line_token": "bad"}],
  "ped_crossing": [],
  "road_segment": [{"token": "rs1", "polygon_token": "p1"}],
  "lane": [{"token": "la1", "polygon_token": "nope"}]
}`

func TestParseAndQuery(t *testing.T) {
	m, err := Parse("test-town", []byte(testMap))
	require.NoError(t, err)
	assert.Equal(t, "1.3", m.Version)

	raw := m.Query(mapgeom.ROI{Center: orb.Point{5, 5}, Width: 60, Height: 120})
	require.Len(t, raw[mapgeom.LaneDivider], 1, "far divider filtered by index")
	assert.Empty(t, raw[mapgeom.RoadDivider])
	assert.Empty(t, raw[mapgeom.Lane])

	require.Len(t, raw[mapgeom.RoadSegment], 1)
	poly := raw[mapgeom.RoadSegment][0].(orb.Polygon)
	require.Len(t, poly, 2)
	assert.True(t, poly[0].Closed())
	assert.True(t, poly[1].Closed())
	assert.Len(t, poly[0], 5)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("x", []byte("{"))
	assert.Error(t, err)
}

func TestExplorer(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "maps", "expansion")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test-town.json"), []byte(testMap), 0o644))

	e := NewExplorer(root, nil)
	var q mapgeom.Querier = e
	raw, err := q.QueryRegion("test-town", mapgeom.ROI{Center: orb.Point{500, 500}, Width: 20, Height: 20})
	require.NoError(t, err)
	assert.Len(t, raw[mapgeom.LaneDivider], 1)
	assert.Empty(t, raw[mapgeom.RoadSegment])

	m1, _ := e.Map("test-town")
	m2, _ := e.Map("test-town")
	assert.Same(t, m1, m2)

	_, err = e.QueryRegion("../../etc/passwd", mapgeom.ROI{})
	assert.Error(t, err)
	_, err = e.QueryRegion("missing-town", mapgeom.ROI{})
	assert.Error(t, err)
}

func TestExplorer_MemoryFS(t *testing.T) {
	root := t.TempDir()
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile(filepath.Join(root, "maps", "expansion", "mem.json"), []byte(testMap), 0o644))
	raw, err := NewExplorer(root, fs).QueryRegion("mem", mapgeom.ROI{Center: orb.Point{5, 5}, Width: 60, Height: 120})
	require.NoError(t, err)
	assert.Len(t, raw[mapgeom.RoadSegment], 1)
}
