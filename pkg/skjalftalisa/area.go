package skjalftalisa

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	h3 "github.com/uber/h3-go/v4"
)

// Iceland covers the SIL seismic network: north coast, west fjords, south coast and east.
var Iceland = h3.GeoPolygon{
	GeoLoop: h3.GeoLoop{
		{Lat: 67.14815809664168, Lng: -18.589553916826844},
		{Lat: 66.08886951976677, Lng: -20.204544151201848},
		{Lat: 65.68945088379868, Lng: -18.084182823076848},
		{Lat: 66.23539315614204, Lng: -16.040725791826848},
	},
}

// PolygonFromGeoJSON parses a GeoJSON Polygon ([ring][i][lon,lat]). The first ring is
// the exterior, any further rings become holes.
func PolygonFromGeoJSON(raw string) (h3.GeoPolygon, error) {
	var tmp struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return h3.GeoPolygon{}, fmt.Errorf("parse geojson: %w", err)
	}
	if t := strings.TrimSpace(tmp.Type); t != "Polygon" {
		return h3.GeoPolygon{}, fmt.Errorf("unsupported GeoJSON type: %q", t)
	}
	if len(tmp.Coordinates) == 0 {
		return h3.GeoPolygon{}, errors.New("empty polygon")
	}
	outer, err := toLoop(tmp.Coordinates[0])
	if err != nil {
		return h3.GeoPolygon{}, fmt.Errorf("outer ring: %w", err)
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(tmp.Coordinates); i++ {
		h, err := toLoop(tmp.Coordinates[i])
		if err != nil {
			return h3.GeoPolygon{}, fmt.Errorf("hole %d: %w", i-1, err)
		}
		holes = append(holes, h)
	}
	return h3.GeoPolygon{GeoLoop: outer, Holes: holes}, nil
}

// PolygonFromBBox returns the rectangle spanned by two corners in degrees.
func PolygonFromBBox(minLng, minLat, maxLng, maxLat float64) h3.GeoPolygon {
	return h3.GeoPolygon{
		GeoLoop: h3.GeoLoop{
			{Lat: minLat, Lng: minLng},
			{Lat: minLat, Lng: maxLng},
			{Lat: maxLat, Lng: maxLng},
			{Lat: maxLat, Lng: minLng},
		},
	}
}

// PolygonFromCell returns the boundary of an H3 cell as a search area.
func PolygonFromCell(cell h3.Cell) (h3.GeoPolygon, error) {
	if !cell.IsValid() {
		return h3.GeoPolygon{}, fmt.Errorf("invalid h3 cell %q", cell.String())
	}
	b, err := cell.Boundary()
	if err != nil {
		return h3.GeoPolygon{}, fmt.Errorf("h3 boundary: %w", err)
	}
	return h3.GeoPolygon{GeoLoop: h3.GeoLoop(b)}, nil
}

// ParseCell parses the hex form of an H3 index.
func ParseCell(s string) (h3.Cell, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", s)
	}
	return c, nil
}

// toLoop converts a GeoJSON ring to an h3 loop, dropping the duplicated closing vertex.
func toLoop(coords [][]float64) (h3.GeoLoop, error) {
	loop := make(h3.GeoLoop, 0, len(coords))
	for _, xy := range coords {
		if len(xy) != 2 {
			return nil, errors.New("coordinate must be [x,y]")
		}
		loop = append(loop, h3.LatLng{Lat: xy[1], Lng: xy[0]})
	}
	if len(loop) >= 2 {
		first, last := loop[0], loop[len(loop)-1]
		if first.Lat == last.Lat && first.Lng == last.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	if len(loop) < 3 {
		return nil, errors.New("ring has < 3 distinct vertices")
	}
	return loop, nil
}
