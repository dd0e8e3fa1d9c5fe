// Package nuscenesmap answers map region queries from the nuScenes
// map-expansion JSON files.
package nuscenesmap

import (
	"encoding/json"
	"fmt"
	"path"
	"sync"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/paulmach/orb"

	"github.com/banshee-data/nuscenes-xviz/internal/fsutil"
	"github.com/banshee-data/nuscenes-xviz/internal/mapgeom"
	"github.com/banshee-data/nuscenes-xviz/internal/monitoring"
	"github.com/banshee-data/nuscenes-xviz/internal/security"
)

type node struct {
	Token string  `json:"token"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type line struct {
	Token      string   `json:"token"`
	NodeTokens []string `json:"node_tokens"`
}

type polygon struct {
	Token              string   `json:"token"`
	ExteriorNodeTokens []string `json:"exterior_node_tokens"`
	Holes              []struct {
		NodeTokens []string `json:"node_tokens"`
	} `json:"holes"`
}

type polygonRecord struct {
	Token        string `json:"token"`
	PolygonToken string `json:"polygon_token"`
}

type lineRecord struct {
	Token     string `json:"token"`
	LineToken string `json:"line_token"`
}

type expansionFile struct {
	Version     string          `json:"version"`
	Node        []node          `json:"node"`
	Line        []line          `json:"line"`
	Polygon     []polygon       `json:"polygon"`
	LaneDivider []lineRecord    `json:"lane_divider"`
	RoadDivider []lineRecord    `json:"road_divider"`
	PedCrossing []polygonRecord `json:"ped_crossing"`
	RoadSegment []polygonRecord `json:"road_segment"`
	Lane        []polygonRecord `json:"lane"`
}

// layerIndex holds one layer's world geometry behind a bounding-box index.
type layerIndex struct {
	geoms []orb.Geometry
	index *flatbush.Flatbush[float64]
}

func newLayerIndex(geoms []orb.Geometry) *layerIndex {
	li := &layerIndex{geoms: geoms}
	if len(geoms) == 0 {
		return li
	}
	li.index = flatbush.NewFlatbush[float64]()
	li.index.Reserve(len(geoms))
	for _, g := range geoms {
		b := g.Bound()
		li.index.Add(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	}
	li.index.Finish()
	return li
}

func (li *layerIndex) search(b orb.Bound, buf []int) ([]orb.Geometry, []int) {
	if li.index == nil {
		return nil, buf
	}
	buf = li.index.SearchFast(b.Min[0], b.Min[1], b.Max[0], b.Max[1], buf)
	out := make([]orb.Geometry, 0, len(buf))
	for _, i := range buf {
		out = append(out, li.geoms[i])
	}
	return out, buf
}

// Map is one location's layers, ready for region queries.
type Map struct {
	Location string
	Version  string
	layers   map[mapgeom.Layer]*layerIndex
}

// Parse builds a Map from the contents of a map-expansion JSON file.
// Records that reference unknown nodes, lines or polygons are skipped.
func Parse(location string, data []byte) (*Map, error) {
	var f expansionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse map %s: %w", location, err)
	}

	nodes := make(map[string]orb.Point, len(f.Node))
	for _, n := range f.Node {
		nodes[n.Token] = orb.Point{n.X, n.Y}
	}
	lines := make(map[string]orb.LineString, len(f.Line))
	for _, l := range f.Line {
		if ls, ok := resolveNodes(nodes, l.NodeTokens); ok {
			lines[l.Token] = orb.LineString(ls)
		}
	}
	polys := make(map[string]orb.Polygon, len(f.Polygon))
	for _, p := range f.Polygon {
		ext, ok := resolveNodes(nodes, p.ExteriorNodeTokens)
		if !ok {
			continue
		}
		poly := orb.Polygon{closeRing(ext)}
		for _, h := range p.Holes {
			if hole, ok := resolveNodes(nodes, h.NodeTokens); ok {
				poly = append(poly, closeRing(hole))
			}
		}
		polys[p.Token] = poly
	}

	m := &Map{Location: location, Version: f.Version, layers: make(map[mapgeom.Layer]*layerIndex)}
	m.layers[mapgeom.LaneDivider] = newLayerIndex(lineLayer(location, mapgeom.LaneDivider, f.LaneDivider, lines))
	m.layers[mapgeom.RoadDivider] = newLayerIndex(lineLayer(location, mapgeom.RoadDivider, f.RoadDivider, lines))
	m.layers[mapgeom.PedCrossing] = newLayerIndex(polygonLayer(location, mapgeom.PedCrossing, f.PedCrossing, polys))
	m.layers[mapgeom.RoadSegment] = newLayerIndex(polygonLayer(location, mapgeom.RoadSegment, f.RoadSegment, polys))
	m.layers[mapgeom.Lane] = newLayerIndex(polygonLayer(location, mapgeom.Lane, f.Lane, polys))
	return m, nil
}

func resolveNodes(nodes map[string]orb.Point, tokens []string) ([]orb.Point, bool) {
	pts := make([]orb.Point, 0, len(tokens))
	for _, t := range tokens {
		p, ok := nodes[t]
		if !ok {
			return nil, false
		}
		pts = append(pts, p)
	}
	return pts, len(pts) > 0
}

func closeRing(pts []orb.Point) orb.Ring {
	r := orb.Ring(pts)
	if !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

func lineLayer(location string, layer mapgeom.Layer, recs []lineRecord, lines map[string]orb.LineString) []orb.Geometry {
	out := make([]orb.Geometry, 0, len(recs))
	for _, r := range recs {
		ls, ok := lines[r.LineToken]
		if !ok {
			monitoring.Logf("[map] %s %s %s: unknown line %s", location, layer, r.Token, r.LineToken)
			continue
		}
		out = append(out, ls)
	}
	return out
}

func polygonLayer(location string, layer mapgeom.Layer, recs []polygonRecord, polys map[string]orb.Polygon) []orb.Geometry {
	out := make([]orb.Geometry, 0, len(recs))
	for _, r := range recs {
		p, ok := polys[r.PolygonToken]
		if !ok {
			monitoring.Logf("[map] %s %s %s: unknown polygon %s", location, layer, r.Token, r.PolygonToken)
			continue
		}
		out = append(out, p)
	}
	return out
}

// Query returns every geometry whose bounds meet the patch's world bound.
func (m *Map) Query(roi mapgeom.ROI) mapgeom.RawLayers {
	bound := roi.WorldBound()
	raw := make(mapgeom.RawLayers, len(m.layers))
	var buf []int
	for layer, li := range m.layers {
		var geoms []orb.Geometry
		geoms, buf = li.search(bound, buf)
		if len(geoms) > 0 {
			raw[layer] = geoms
		}
	}
	return raw
}

// Explorer loads location maps from <root>/maps/expansion on first use and
// caches them. It implements mapgeom.Querier.
type Explorer struct {
	root string
	fs   fsutil.FileSystem

	mu   sync.Mutex
	maps map[string]*Map
}

// NewExplorer returns an Explorer reading maps below dataRoot.
func NewExplorer(dataRoot string, fs fsutil.FileSystem) *Explorer {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	return &Explorer{root: dataRoot, fs: fs, maps: make(map[string]*Map)}
}

// Map returns the parsed map for location.
func (e *Explorer) Map(location string) (*Map, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.maps[location]; ok {
		return m, nil
	}
	if location == "" || security.SanitizeFilename(location) != location {
		return nil, fmt.Errorf("invalid map location %q", location)
	}
	p, err := security.ResolveWithin(e.root, path.Join("maps", "expansion", location+".json"))
	if err != nil {
		return nil, fmt.Errorf("invalid map location %q: %w", location, err)
	}
	data, err := e.fs.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read map %s: %w", location, err)
	}
	m, err := Parse(location, data)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("[map] loaded %s (version %s)", location, m.Version)
	e.maps[location] = m
	return m, nil
}

// QueryRegion implements mapgeom.Querier.
func (e *Explorer) QueryRegion(location string, roi mapgeom.ROI) (mapgeom.RawLayers, error) {
	m, err := e.Map(location)
	if err != nil {
		return nil, err
	}
	return m.Query(roi), nil
}
