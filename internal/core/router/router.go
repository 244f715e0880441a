// Package router parses /quakes query parameters into catalog requests and serves the results.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/skjalftalisa/internal/core/observability"
	mylog "github.com/mohammed-shakir/skjalftalisa/internal/logger"
	"github.com/mohammed-shakir/skjalftalisa/pkg/skjalftalisa"
)

// Fetcher is the slice of the catalog client the handler needs.
type Fetcher interface {
	FetchQuakes(ctx context.Context, req skjalftalisa.SearchRequest) (*skjalftalisa.ResponseData, error)
}

type quakeView struct {
	skjalftalisa.Quake
	OccurredAt time.Time `json:"occurred_at"`
	Severity   string    `json:"severity"`
	Cell       string    `json:"cell,omitempty"`
}

type quakesResponse struct {
	Count  int         `json:"count"`
	Quakes []quakeView `json:"quakes"`
}

type errorResponse struct {
	Error        string `json:"error"`
	UpstreamBody string `json:"upstream_body,omitempty"`
}

// HandleQuakes validates the query, asks the catalog and writes the rows as JSON.
func HandleQuakes(logger *slog.Logger, f Fetcher, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/quakes", sw.code, time.Since(start).Seconds())
		}()

		q, warn, err := ParseQuakeQuery(r, now())
		if warn != "" {
			logger.WarnContext(r.Context(), warn)
		}
		if err != nil {
			writeJSON(sw, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		ctx := mylog.WithQueryKey(r.Context(), strconv.FormatUint(q.Request.Key(), 16))
		data, err := f.FetchQuakes(ctx, q.Request)
		if err != nil {
			logger.ErrorContext(ctx, "catalog query failed", "err", err)
			out := errorResponse{Error: err.Error()}
			var se *skjalftalisa.SchemaError
			if errors.As(err, &se) {
				out.UpstreamBody = se.Body
			}
			writeJSON(sw, http.StatusBadGateway, out)
			return
		}

		resp := quakesResponse{Quakes: make([]quakeView, 0, data.Len())}
		for quake := range data.All() {
			v := quakeView{Quake: quake, OccurredAt: quake.OccurredAt(), Severity: quake.Severity().String()}
			if q.CellRes >= 0 {
				if c, err := quake.Cell(q.CellRes); err == nil {
					v.Cell = c.String()
				}
			}
			resp.Quakes = append(resp.Quakes, v)
		}
		resp.Count = len(resp.Quakes)
		writeJSON(sw, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// QuakeQuery is a parsed /quakes request.
type QuakeQuery struct {
	Request skjalftalisa.SearchRequest
	CellRes int // -1 when no cell annotation was asked for
}

// ParseQuakeQuery reads area (polygon, bbox or cell), time window and filters.
// Precedence for the area is polygon, then bbox, then cell; with none given the whole
// SIL network area is searched.
func ParseQuakeQuery(r *http.Request, now time.Time) (QuakeQuery, string, error) {
	return ParseQuakeValues(r.URL.Query(), now)
}

// ParseQuakeValues is ParseQuakeQuery for an already decoded query string.
func ParseQuakeValues(qs url.Values, now time.Time) (QuakeQuery, string, error) {
	var warn string

	rawPoly := strings.TrimSpace(qs.Get("polygon"))
	rawBBox := strings.TrimSpace(qs.Get("bbox"))
	rawCell := strings.TrimSpace(qs.Get("cell"))

	given := 0
	for _, s := range []string{rawPoly, rawBBox, rawCell} {
		if s != "" {
			given++
		}
	}
	if given > 1 {
		warn = "more than one of polygon/bbox/cell supplied; preferring polygon, then bbox"
	}

	area := skjalftalisa.Iceland
	switch {
	case rawPoly != "":
		p, err := skjalftalisa.PolygonFromGeoJSON(rawPoly)
		if err != nil {
			return QuakeQuery{}, warn, fmt.Errorf("invalid polygon: %w", err)
		}
		area = p
	case rawBBox != "":
		p, err := parseBBOX(rawBBox)
		if err != nil {
			return QuakeQuery{}, warn, fmt.Errorf("invalid bbox: %w", err)
		}
		area = p
	case rawCell != "":
		c, err := skjalftalisa.ParseCell(rawCell)
		if err != nil {
			return QuakeQuery{}, warn, fmt.Errorf("invalid cell: %w", err)
		}
		p, err := skjalftalisa.PolygonFromCell(c)
		if err != nil {
			return QuakeQuery{}, warn, fmt.Errorf("invalid cell: %w", err)
		}
		area = p
	}

	req := skjalftalisa.NewRequest(area)

	rawStart, rawEnd := strings.TrimSpace(qs.Get("start")), strings.TrimSpace(qs.Get("end"))
	if rawStart != "" || rawEnd != "" {
		end := now
		if rawEnd != "" {
			t, err := time.Parse(time.RFC3339, rawEnd)
			if err != nil {
				return QuakeQuery{}, warn, fmt.Errorf("invalid end: %w", err)
			}
			end = t
		}
		startAt := time.Unix(0, 0)
		if rawStart != "" {
			t, err := time.Parse(time.RFC3339, rawStart)
			if err != nil {
				return QuakeQuery{}, warn, fmt.Errorf("invalid start: %w", err)
			}
			startAt = t
		}
		if end.Before(startAt) {
			return QuakeQuery{}, warn, errors.New("end must not be before start")
		}
		req = req.WithTime(startAt, end)
	}

	if qs.Has("size_min") || qs.Has("size_max") {
		lo, hi, err := parseRange(qs.Get("size_min"), qs.Get("size_max"), skjalftalisa.DefaultSizeMin, skjalftalisa.DefaultSizeMax)
		if err != nil {
			return QuakeQuery{}, warn, fmt.Errorf("invalid size: %w", err)
		}
		req = req.WithSize(lo, hi)
	}
	if qs.Has("depth_min") || qs.Has("depth_max") {
		lo, hi, err := parseRange(qs.Get("depth_min"), qs.Get("depth_max"), skjalftalisa.DefaultDepthMin, skjalftalisa.DefaultDepthMax)
		if err != nil {
			return QuakeQuery{}, warn, fmt.Errorf("invalid depth: %w", err)
		}
		req = req.WithDepth(lo, hi)
	}

	cellRes := -1
	if raw := strings.TrimSpace(qs.Get("res")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 15 {
			return QuakeQuery{}, warn, fmt.Errorf("invalid res %q (must be 0..15)", raw)
		}
		cellRes = n
	}

	return QuakeQuery{Request: req, CellRes: cellRes}, warn, nil
}

func parseRange(rawMin, rawMax string, defMin, defMax int64) (int64, int64, error) {
	lo, hi := defMin, defMax
	var err error
	if s := strings.TrimSpace(rawMin); s != "" {
		if lo, err = strconv.ParseInt(s, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("min: %w", err)
		}
	}
	if s := strings.TrimSpace(rawMax); s != "" {
		if hi, err = strconv.ParseInt(s, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("max: %w", err)
		}
	}
	if hi < lo {
		return 0, 0, errors.New("max must be >= min")
	}
	return lo, hi, nil
}

func parseBBOX(bboxParam string) (h3.GeoPolygon, error) {
	parts := strings.Split(bboxParam, ",")
	if len(parts) != 4 && len(parts) != 5 {
		return h3.GeoPolygon{}, errors.New("expected comma-separated values: x1,y1,x2,y2[,EPSG:4326]")
	}
	var v [4]float64
	for i := range v {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return h3.GeoPolygon{}, fmt.Errorf("value %d: %w", i+1, err)
		}
		v[i] = f
	}
	if len(parts) == 5 {
		if srid := strings.ToUpper(strings.TrimSpace(parts[4])); srid != "EPSG:4326" {
			return h3.GeoPolygon{}, fmt.Errorf("only EPSG:4326 is supported (got %q)", srid)
		}
	}
	xMin, yMin, xMax, yMax := v[0], v[1], v[2], v[3]
	if !(xMin >= -180 && xMin <= 180 && xMax >= -180 && xMax <= 180) {
		return h3.GeoPolygon{}, errors.New("longitude must be in [-180,180]")
	}
	if !(yMin >= -90 && yMin <= 90 && yMax >= -90 && yMax <= 90) {
		return h3.GeoPolygon{}, errors.New("latitude must be in [-90,90]")
	}
	if xMax <= xMin || yMax <= yMin {
		return h3.GeoPolygon{}, errors.New("coordinates must satisfy x2>x1 and y2>y1")
	}
	return skjalftalisa.PolygonFromBBox(xMin, yMin, xMax, yMax), nil
}
