package skjalftalisa

import (
	"testing"

	h3 "github.com/uber/h3-go/v4"
)

func TestPolygonFromGeoJSON_DropsClosingVertexAndKeepsHoles(t *testing.T) {
	raw := `{"type":"Polygon","coordinates":[
		[[-20,63],[-13,63],[-13,67],[-20,67],[-20,63]],
		[[-19,64],[-18,64],[-18,65],[-19,64]]
	]}`
	poly, err := PolygonFromGeoJSON(raw)
	if err != nil {
		t.Fatalf("PolygonFromGeoJSON: %v", err)
	}
	if len(poly.GeoLoop) != 4 {
		t.Fatalf("outer len=%d want 4", len(poly.GeoLoop))
	}
	if poly.GeoLoop[0] != (h3.LatLng{Lat: 63, Lng: -20}) {
		t.Fatalf("axis order wrong: %+v", poly.GeoLoop[0])
	}
	if len(poly.Holes) != 1 || len(poly.Holes[0]) != 3 {
		t.Fatalf("holes=%v", poly.Holes)
	}

	area := NewRequest(poly).Area()
	if len(area) != 5 || area[0] != [2]float64{-20, 63} || area[4] != area[0] {
		t.Fatalf("round trip area=%v", area)
	}
}

func TestPolygonFromGeoJSON_Rejects(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"type":"LineString","coordinates":[[0,0],[1,1]]}`,
		`{"type":"Polygon","coordinates":[]}`,
		`{"type":"Polygon","coordinates":[[]]}`,
		`{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]}`,
		`{"type":"Polygon","coordinates":[[[0,0,1],[1,0],[1,1],[0,0]]]}`,
	} {
		if _, err := PolygonFromGeoJSON(raw); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestPolygonFromCell(t *testing.T) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(64.1466, -21.9426), 5)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	poly, err := PolygonFromCell(cell)
	if err != nil {
		t.Fatalf("PolygonFromCell: %v", err)
	}
	if n := len(poly.GeoLoop); n != 6 && n != 5 {
		t.Fatalf("unexpected boundary size %d", n)
	}

	parsed, err := ParseCell(cell.String())
	if err != nil || parsed != cell {
		t.Fatalf("ParseCell=%v err=%v want %v", parsed, err, cell)
	}
	if _, err := PolygonFromCell(h3.Cell(0)); err == nil {
		t.Fatalf("expected error for invalid cell")
	}
	if _, err := ParseCell("zz"); err == nil {
		t.Fatalf("expected error for bad hex")
	}
}
