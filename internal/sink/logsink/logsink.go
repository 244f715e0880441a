// Package logsink writes each quake as a structured log line. It is the default sink
// when Kafka is disabled.
package logsink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/skjalftalisa/pkg/skjalftalisa"
)

type Sink struct {
	zl  zerolog.Logger
	res int
}

// New logs through zl; res < 0 leaves out the H3 cell.
func New(zl zerolog.Logger, res int) *Sink {
	return &Sink{zl: zl.With().Str("sink", "log").Logger(), res: res}
}

func (s *Sink) Publish(_ context.Context, quakes []skjalftalisa.Quake) error {
	for _, q := range quakes {
		ev := s.zl.Info().
			Time("occurred_at", q.OccurredAt()).
			Float64("lat", q.Lat).
			Float64("long", q.Long).
			Float64("depth", q.Depth).
			Float64("magnitude", q.Magnitude).
			Str("magnitude_type", q.MagnitudeType).
			Str("originating_system", q.OriginatingSystem).
			Stringer("severity", q.Severity())
		if s.res >= 0 {
			if c, err := q.Cell(s.res); err == nil {
				ev = ev.Str("cell", c.String())
			}
		}
		ev.Msg("quake")
	}
	return nil
}
