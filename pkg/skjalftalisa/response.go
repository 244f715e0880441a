package skjalftalisa

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// Response is the top-level document returned by the catalog.
type Response struct {
	Data *ResponseData `json:"data"`
}

// ResponseData holds the catalog's parallel columns. Entry i of every column describes
// the same observation. Columns are filled once by decoding and never modified.
type ResponseData struct {
	depth             []float64
	lat               []float64
	long              []float64
	magnitude         []float64
	magnitudeType     []string
	originatingSystem []string
	time              []int64
}

type wireColumns struct {
	Depth             []float64 `json:"depth"`
	Lat               []float64 `json:"lat"`
	Long              []float64 `json:"long"`
	Magnitude         []float64 `json:"magnitude"`
	MagnitudeType     []string  `json:"magnitude_type"`
	OriginatingSystem []string  `json:"originating_system"`
	Time              []int64   `json:"time"`
}

// presentColumns mirrors wireColumns with pointers so absent and null columns can be
// told apart from empty ones.
type presentColumns struct {
	Depth             *[]float64 `json:"depth"`
	Lat               *[]float64 `json:"lat"`
	Long              *[]float64 `json:"long"`
	Magnitude         *[]float64 `json:"magnitude"`
	MagnitudeType     *[]string  `json:"magnitude_type"`
	OriginatingSystem *[]string  `json:"originating_system"`
	Time              *[]int64   `json:"time"`
}

// UnmarshalJSON requires every column to be present and non-null. Columns may differ in
// length.
func (d *ResponseData) UnmarshalJSON(b []byte) error {
	var w presentColumns
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode columns: %w", err)
	}
	var missing []string
	for name, ok := range map[string]bool{
		"depth":              w.Depth != nil,
		"lat":                w.Lat != nil,
		"long":               w.Long != nil,
		"magnitude":          w.Magnitude != nil,
		"magnitude_type":     w.MagnitudeType != nil,
		"originating_system": w.OriginatingSystem != nil,
		"time":               w.Time != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("decode columns: missing or null %s", strings.Join(missing, ", "))
	}
	*d = ResponseData{
		depth:             *w.Depth,
		lat:               *w.Lat,
		long:              *w.Long,
		magnitude:         *w.Magnitude,
		magnitudeType:     *w.MagnitudeType,
		originatingSystem: *w.OriginatingSystem,
		time:              *w.Time,
	}
	return nil
}

func (d *ResponseData) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireColumns{
		Depth:             orEmpty(d.depth),
		Lat:               orEmpty(d.lat),
		Long:              orEmpty(d.long),
		Magnitude:         orEmpty(d.magnitude),
		MagnitudeType:     orEmpty(d.magnitudeType),
		OriginatingSystem: orEmpty(d.originatingSystem),
		Time:              orEmpty(d.time),
	})
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ParseResponse decodes a catalog body into its columns.
func ParseResponse(body []byte) (*ResponseData, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("decode response: missing %q object", "data")
	}
	return resp.Data, nil
}

// Len is the number of complete rows, i.e. the length of the shortest column.
func (d *ResponseData) Len() int {
	return min(
		len(d.depth),
		len(d.lat),
		len(d.long),
		len(d.magnitude),
		len(d.magnitudeType),
		len(d.originatingSystem),
		len(d.time),
	)
}

// Get materializes row i. ok is false when any column has no entry at i.
func (d *ResponseData) Get(i int) (q Quake, ok bool) {
	if i < 0 || i >= d.Len() {
		return Quake{}, false
	}
	return Quake{
		Depth:             d.depth[i],
		Lat:               d.lat[i],
		Long:              d.long[i],
		Magnitude:         d.magnitude[i],
		MagnitudeType:     d.magnitudeType[i],
		OriginatingSystem: d.originatingSystem[i],
		Time:              d.time[i],
	}, true
}

// All yields every row in service order and stops at the first exhausted column.
// The sequence can be ranged over any number of times.
func (d *ResponseData) All() iter.Seq[Quake] {
	return func(yield func(Quake) bool) {
		for i := 0; ; i++ {
			q, ok := d.Get(i)
			if !ok || !yield(q) {
				return
			}
		}
	}
}

// InTimeRange yields, in index order, the rows whose time lies in [start, end].
// Rows are not assumed to be sorted by time, so every index is checked.
func (d *ResponseData) InTimeRange(start, end int64) iter.Seq[Quake] {
	return func(yield func(Quake) bool) {
		for i := 0; i < len(d.time); i++ {
			t := d.time[i]
			if t < start || t > end {
				continue
			}
			q, ok := d.Get(i)
			if !ok {
				return
			}
			if !yield(q) {
				return
			}
		}
	}
}

// Between is InTimeRange over wall-clock instants, truncated to whole seconds.
func (d *ResponseData) Between(start, end time.Time) iter.Seq[Quake] {
	return d.InTimeRange(start.Unix(), end.Unix())
}

// Quakes collects All into a slice.
func (d *ResponseData) Quakes() []Quake {
	out := make([]Quake, 0, d.Len())
	for q := range d.All() {
		out = append(out, q)
	}
	return out
}
