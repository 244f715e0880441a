package skjalftalisa

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	h3 "github.com/uber/h3-go/v4"
)

func decodeWire(t *testing.T, r SearchRequest) map[string]any {
	t.Helper()
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestNewRequest_Defaults(t *testing.T) {
	m := decodeWire(t, NewRequest(Iceland))

	wantNums := map[string]float64{
		"depth_min": 0, "depth_max": 25,
		"size_min": 0, "size_max": 11,
	}
	for k, want := range wantNums {
		if got, ok := m[k].(float64); !ok || got != want {
			t.Fatalf("%s=%v want %v", k, m[k], want)
		}
	}
	if m["start_time"] != "1970-01-01 00:00:00" || m["end_time"] != "2030-12-31 23:59:59" {
		t.Fatalf("unexpected default window %v..%v", m["start_time"], m["end_time"])
	}

	wantLists := map[string][]any{
		"event_type":           {"qu"},
		"magnitude_preference": {"Mlw", "Autmag"},
		"originating_system":   {"SIL picks"},
		"fields": {
			"time", "lat", "long", "depth", "magnitude", "magnitude_type", "originating_system",
		},
	}
	for k, want := range wantLists {
		if !reflect.DeepEqual(m[k], want) {
			t.Fatalf("%s=%v want %v", k, m[k], want)
		}
	}
	if len(m) != 11 {
		t.Fatalf("expected exactly 11 keys, got %d: %v", len(m), m)
	}
}

func TestNewRequest_AreaIsLngLatAndClosed(t *testing.T) {
	r := NewRequest(Iceland)
	area := r.Area()
	if len(area) != len(Iceland.GeoLoop)+1 {
		t.Fatalf("area len=%d want %d", len(area), len(Iceland.GeoLoop)+1)
	}
	for i, ll := range Iceland.GeoLoop {
		if area[i] != [2]float64{ll.Lng, ll.Lat} {
			t.Fatalf("area[%d]=%v want [%v %v]", i, area[i], ll.Lng, ll.Lat)
		}
	}
	if area[0] != area[len(area)-1] {
		t.Fatalf("ring not closed: first=%v last=%v", area[0], area[len(area)-1])
	}
}

func TestNewRequest_AlreadyClosedRingNotDoubled(t *testing.T) {
	poly := h3.GeoPolygon{GeoLoop: h3.GeoLoop{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 0, Lng: 0},
	}}
	area := NewRequest(poly).Area()
	if len(area) != 4 {
		t.Fatalf("area len=%d want 4: %v", len(area), area)
	}
}

func TestNewRequest_HolesAreNotSent(t *testing.T) {
	poly := PolygonFromBBox(-20, 63, -13, 67)
	poly.Holes = []h3.GeoLoop{{
		{Lat: 64, Lng: -19}, {Lat: 64, Lng: -18}, {Lat: 65, Lng: -18},
	}}
	if got := len(NewRequest(poly).Area()); got != 5 {
		t.Fatalf("area len=%d want 5 (exterior only)", got)
	}
}

func TestBuilder_SettersReturnCopies(t *testing.T) {
	base := NewRequest(Iceland)
	sized := base.WithSize(2, 5).WithDepth(1, 10)

	m := decodeWire(t, sized)
	if m["size_min"] != 2.0 || m["size_max"] != 5.0 || m["depth_min"] != 1.0 || m["depth_max"] != 10.0 {
		t.Fatalf("setters not applied: %v", m)
	}
	mb := decodeWire(t, base)
	if mb["size_max"] != 11.0 || mb["depth_max"] != 25.0 {
		t.Fatalf("base request mutated: %v", mb)
	}

	// min > max is passed through untouched
	m = decodeWire(t, base.WithSize(9, 1))
	if m["size_min"] != 9.0 || m["size_max"] != 1.0 {
		t.Fatalf("inverted bounds rewritten: %v", m)
	}
}

func TestWithTime_TruncatesAndDropsZone(t *testing.T) {
	loc := time.FixedZone("X", 2*60*60)
	start := time.Date(2023, 5, 18, 20, 1, 51, 987654321, loc)
	end := time.Date(2023, 5, 18, 23, 59, 59, 999999999, time.UTC)

	s, e := NewRequest(Iceland).WithTime(start, end).TimeRange()
	if s != "2023-05-18 18:01:51" {
		t.Fatalf("start=%q", s)
	}
	if e != "2023-05-18 23:59:59" {
		t.Fatalf("end=%q", e)
	}
}

func TestWithEventTypes_CopiesInput(t *testing.T) {
	types := []string{"qu", "ex"}
	r := NewRequest(Iceland).WithEventTypes(types...)
	types[0] = "mutated"

	m := decodeWire(t, r)
	if !reflect.DeepEqual(m["event_type"], []any{"qu", "ex"}) {
		t.Fatalf("event_type=%v", m["event_type"])
	}
	m = decodeWire(t, r.WithOriginatingSystems("SIL aut.mag").WithMagnitudePreference("Autmag"))
	if !reflect.DeepEqual(m["originating_system"], []any{"SIL aut.mag"}) ||
		!reflect.DeepEqual(m["magnitude_preference"], []any{"Autmag"}) {
		t.Fatalf("unexpected lists: %v", m)
	}
}

func TestKey_StableAndSensitive(t *testing.T) {
	a := NewRequest(Iceland)
	b := NewRequest(Iceland)
	if a.Key() != b.Key() {
		t.Fatalf("identical requests must share a key")
	}
	if a.Key() == a.WithSize(1, 11).Key() {
		t.Fatalf("key must change with filters")
	}
}
