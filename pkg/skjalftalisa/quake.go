package skjalftalisa

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	h3 "github.com/uber/h3-go/v4"
)

// Quake is one observation materialized from the columnar response. It is a plain value
// and carries no reference back into ResponseData.
type Quake struct {
	Depth             float64 `json:"depth"`
	Lat               float64 `json:"lat"`
	Long              float64 `json:"long"`
	Magnitude         float64 `json:"magnitude"`
	MagnitudeType     string  `json:"magnitude_type"`
	OriginatingSystem string  `json:"originating_system"`
	Time              int64   `json:"time"`
}

func (q Quake) OccurredAt() time.Time {
	return time.Unix(q.Time, 0).UTC()
}

// Cell returns the H3 cell containing the epicentre.
func (q Quake) Cell(res int) (h3.Cell, error) {
	if res < 0 || res > 15 {
		return 0, fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	c, err := h3.LatLngToCell(h3.NewLatLng(q.Lat, q.Long), res)
	if err != nil {
		return 0, fmt.Errorf("h3 cell: %w", err)
	}
	return c, nil
}

// Key identifies a quake by time, position, depth and magnitude.
func (q Quake) Key() uint64 {
	var b [40]byte
	binary.BigEndian.PutUint64(b[0:], uint64(q.Time))
	binary.BigEndian.PutUint64(b[8:], math.Float64bits(q.Lat))
	binary.BigEndian.PutUint64(b[16:], math.Float64bits(q.Long))
	binary.BigEndian.PutUint64(b[24:], math.Float64bits(q.Depth))
	binary.BigEndian.PutUint64(b[32:], math.Float64bits(q.Magnitude))
	return xxhash.Sum64(b[:])
}

type Severity int

const (
	SeverityLow Severity = iota
	SeverityModerate
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityModerate:
		return "MODERATE"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "LOW"
	}
}

func (q Quake) Severity() Severity {
	switch {
	case q.Magnitude >= 6.0:
		return SeverityCritical
	case q.Magnitude >= 4.5:
		return SeverityHigh
	case q.Magnitude >= 2.5:
		return SeverityModerate
	default:
		return SeverityLow
	}
}
