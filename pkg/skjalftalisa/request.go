// Package skjalftalisa queries the Icelandic Met Office earthquake catalog (skjálftalísa)
// and adapts its columnar responses into per-quake records.
package skjalftalisa

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	h3 "github.com/uber/h3-go/v4"
)

// TimeLayout is the timestamp format the catalog expects for start_time/end_time.
const TimeLayout = "2006-01-02 15:04:05"

const (
	DefaultDepthMin  int64 = 0
	DefaultDepthMax  int64 = 25
	DefaultSizeMin   int64 = 0
	DefaultSizeMax   int64 = 11
	DefaultStartTime       = "1970-01-01 00:00:00"
	DefaultEndTime         = "2030-12-31 23:59:59"
)

// Fields lists the columns every request asks the catalog to return.
var Fields = []string{
	"time",
	"lat",
	"long",
	"depth",
	"magnitude",
	"magnitude_type",
	"originating_system",
}

var (
	defaultEventTypes          = []string{"qu"}
	defaultMagnitudePreference = []string{"Mlw", "Autmag"}
	defaultOriginatingSystems  = []string{"SIL picks"}
)

// SearchRequest is the query document POSTed to the catalog. The zero value is not
// useful; start from NewRequest and chain the With* setters, each of which returns
// an updated copy and leaves the receiver untouched.
type SearchRequest struct {
	area                [][2]float64
	depthMin, depthMax  int64
	sizeMin, sizeMax    int64
	startTime, endTime  string
	eventTypes          []string
	fields              []string
	magnitudePreference []string
	originatingSystems  []string
}

// NewRequest builds a request for the exterior ring of poly with every filter at its default.
func NewRequest(poly h3.GeoPolygon) SearchRequest {
	return SearchRequest{
		area:                ringToArea(poly.GeoLoop),
		depthMin:            DefaultDepthMin,
		depthMax:            DefaultDepthMax,
		sizeMin:             DefaultSizeMin,
		sizeMax:             DefaultSizeMax,
		startTime:           DefaultStartTime,
		endTime:             DefaultEndTime,
		eventTypes:          slices.Clone(defaultEventTypes),
		fields:              slices.Clone(Fields),
		magnitudePreference: slices.Clone(defaultMagnitudePreference),
		originatingSystems:  slices.Clone(defaultOriginatingSystems),
	}
}

// ringToArea emits [lng, lat] pairs in loop order and closes the ring.
// h3 loops are implicitly closed, so the first vertex is repeated unless the caller
// already did so.
func ringToArea(loop h3.GeoLoop) [][2]float64 {
	if len(loop) == 0 {
		return [][2]float64{}
	}
	out := make([][2]float64, 0, len(loop)+1)
	for _, ll := range loop {
		out = append(out, [2]float64{ll.Lng, ll.Lat})
	}
	first, last := loop[0], loop[len(loop)-1]
	if first.Lat != last.Lat || first.Lng != last.Lng {
		out = append(out, [2]float64{first.Lng, first.Lat})
	}
	return out
}

// WithSize sets the magnitude bucket bounds. min <= max is not checked.
func (r SearchRequest) WithSize(minSize, maxSize int64) SearchRequest {
	r.sizeMin, r.sizeMax = minSize, maxSize
	return r
}

// WithDepth sets the depth bounds in kilometres. min <= max is not checked.
func (r SearchRequest) WithDepth(minDepth, maxDepth int64) SearchRequest {
	r.depthMin, r.depthMax = minDepth, maxDepth
	return r
}

// WithTime sets the time window. Both ends are converted to UTC and truncated to whole seconds.
func (r SearchRequest) WithTime(start, end time.Time) SearchRequest {
	r.startTime = FormatTime(start)
	r.endTime = FormatTime(end)
	return r
}

func (r SearchRequest) WithEventTypes(types ...string) SearchRequest {
	r.eventTypes = slices.Clone(types)
	return r
}

func (r SearchRequest) WithMagnitudePreference(pref ...string) SearchRequest {
	r.magnitudePreference = slices.Clone(pref)
	return r
}

func (r SearchRequest) WithOriginatingSystems(systems ...string) SearchRequest {
	r.originatingSystems = slices.Clone(systems)
	return r
}

// FormatTime renders t in TimeLayout (UTC, whole seconds, no zone designator).
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimeLayout)
}

// Area returns a copy of the [lng, lat] ring that will be sent.
func (r SearchRequest) Area() [][2]float64 { return slices.Clone(r.area) }

func (r SearchRequest) TimeRange() (start, end string) { return r.startTime, r.endTime }

type wireRequest struct {
	Area                [][2]float64 `json:"area"`
	DepthMin            int64        `json:"depth_min"`
	DepthMax            int64        `json:"depth_max"`
	SizeMin             int64        `json:"size_min"`
	SizeMax             int64        `json:"size_max"`
	StartTime           string       `json:"start_time"`
	EndTime             string       `json:"end_time"`
	EventType           []string     `json:"event_type"`
	Fields              []string     `json:"fields"`
	MagnitudePreference []string     `json:"magnitude_preference"`
	OriginatingSystem   []string     `json:"originating_system"`
}

func (r SearchRequest) wire() wireRequest {
	area := r.area
	if area == nil {
		area = [][2]float64{}
	}
	return wireRequest{
		Area:                area,
		DepthMin:            r.depthMin,
		DepthMax:            r.depthMax,
		SizeMin:             r.sizeMin,
		SizeMax:             r.sizeMax,
		StartTime:           r.startTime,
		EndTime:             r.endTime,
		EventType:           nonNil(r.eventTypes),
		Fields:              nonNil(r.fields),
		MagnitudePreference: nonNil(r.magnitudePreference),
		OriginatingSystem:   nonNil(r.originatingSystems),
	}
}

func (r SearchRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// Key is a stable fingerprint of the encoded request, used to correlate log lines.
func (r SearchRequest) Key() uint64 {
	b, err := json.Marshal(r.wire())
	if err != nil {
		return 0
	}
	return xxhash.Sum64(b)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
