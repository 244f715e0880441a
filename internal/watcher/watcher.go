// Package watcher polls the catalog for a fixed area and forwards quakes it has not
// published before to a Sink.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	mylog "github.com/mohammed-shakir/skjalftalisa/internal/logger"
	"github.com/mohammed-shakir/skjalftalisa/pkg/skjalftalisa"
)

type Fetcher interface {
	FetchQuakes(ctx context.Context, req skjalftalisa.SearchRequest) (*skjalftalisa.ResponseData, error)
}

// Sink receives new quakes in catalog order. A failed Publish leaves the batch unmarked
// so the next poll offers it again.
type Sink interface {
	Publish(ctx context.Context, quakes []skjalftalisa.Quake) error
}

type Options struct {
	Logger     *slog.Logger
	Register   prometheus.Registerer
	Interval   time.Duration
	Lookback   time.Duration
	DedupeSize int
	Now        func() time.Time // for tests
}

type Watcher struct {
	log      *slog.Logger
	fetch    Fetcher
	base     skjalftalisa.SearchRequest
	sink     Sink
	interval time.Duration
	lookback time.Duration
	now      func() time.Time
	seen     *seenSet
	ms       *metricSet

	mu          sync.RWMutex
	lastSuccess time.Time
}

// New returns a watcher for base; the time window of base is replaced on every poll.
func New(f Fetcher, base skjalftalisa.SearchRequest, sink Sink, opts Options) *Watcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Lookback < opts.Interval {
		opts.Lookback = opts.Interval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Watcher{
		log:      opts.Logger,
		fetch:    f,
		base:     base,
		sink:     sink,
		interval: opts.Interval,
		lookback: opts.Lookback,
		now:      opts.Now,
		seen:     newSeenSet(opts.DedupeSize),
		ms:       newMetricSet(opts.Register),
	}
}

// PollOnce queries [now-lookback, now] and publishes the unseen rows. It returns how
// many quakes were published.
func (w *Watcher) PollOnce(ctx context.Context) (int, error) {
	end := w.now().UTC()
	start := end.Add(-w.lookback)
	req := w.base.WithTime(start, end)
	ctx = mylog.WithQueryKey(ctx, strconv.FormatUint(req.Key(), 16))

	data, err := w.fetch.FetchQuakes(ctx, req)
	if err != nil {
		result := "transport_error"
		if errors.Is(err, skjalftalisa.ErrSchema) {
			result = "schema_error"
		}
		w.ms.polls.WithLabelValues(result).Inc()
		return 0, fmt.Errorf("fetch quakes: %w", err)
	}

	var fresh []skjalftalisa.Quake
	batch := make(map[uint64]struct{})
	dups := 0
	// the catalog filters on whole seconds; re-check the window on our side
	for q := range data.Between(start, end) {
		k := q.Key()
		if _, dup := batch[k]; dup || w.seen.seen(q) {
			dups++
			continue
		}
		batch[k] = struct{}{}
		fresh = append(fresh, q)
	}
	w.ms.skipped.Add(float64(dups))

	if len(fresh) > 0 {
		if err := w.sink.Publish(ctx, fresh); err != nil {
			w.ms.polls.WithLabelValues("sink_error").Inc()
			return 0, fmt.Errorf("publish %d quakes: %w", len(fresh), err)
		}
		w.seen.mark(fresh)
		w.ms.published.Add(float64(len(fresh)))
	}

	w.mu.Lock()
	w.lastSuccess = end
	w.mu.Unlock()
	w.ms.polls.WithLabelValues("ok").Inc()
	w.ms.lastSuccess.Set(float64(end.Unix()))

	w.log.DebugContext(ctx, "poll done",
		"rows", data.Len(), "published", len(fresh), "duplicates", dups)
	return len(fresh), nil
}

// Run polls immediately and then every interval until ctx is cancelled. Poll errors are
// logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watcher started", "interval", w.interval.String(), "lookback", w.lookback.String())
	t := time.NewTicker(w.interval)
	defer t.Stop()

	for {
		if n, err := w.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			w.log.ErrorContext(ctx, "poll failed", "err", err)
		} else if n > 0 {
			w.log.InfoContext(ctx, "published quakes", "count", n)
		}

		select {
		case <-ctx.Done():
			w.log.Info("watcher stopped")
			return nil
		case <-t.C:
		}
	}
	w.log.Info("watcher stopped")
	return nil
}

func (w *Watcher) Readiness() (ready bool, lastSuccess time.Time) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.lastSuccess.IsZero(), w.lastSuccess
}
