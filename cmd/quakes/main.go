// Command quakes runs one catalog query and prints the matching quakes, one JSON object
// per line.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/skjalftalisa/internal/core/httpclient"
	"github.com/mohammed-shakir/skjalftalisa/internal/core/router"
	"github.com/mohammed-shakir/skjalftalisa/internal/logger"
	"github.com/mohammed-shakir/skjalftalisa/pkg/skjalftalisa"
)

type line struct {
	skjalftalisa.Quake
	OccurredAt time.Time `json:"occurred_at"`
	Severity   string    `json:"severity"`
	Cell       string    `json:"cell,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quakes", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("endpoint", skjalftalisa.DefaultEndpoint, "catalog endpoint")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	since := fs.Duration("since", 0, "shorthand for -start now-since")
	areaFile := fs.String("area", "", "GeoJSON polygon file to search in")
	logLevel := fs.String("log-level", "warn", "log level")
	params := map[string]*string{}
	for _, name := range []string{"polygon", "bbox", "cell", "start", "end", "size_min", "size_max", "depth_min", "depth_max", "res"} {
		params[name] = fs.String(name, "", "same as the /quakes query parameter "+name)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	zl := logger.Build(logger.Config{Level: *logLevel, Console: true, Component: "quakes"}, stderr)
	log := logger.NewSlog(&zl)

	now := time.Now().UTC()
	qs := url.Values{}
	for name, v := range params {
		if *v != "" {
			qs.Set(name, *v)
		}
	}
	if *areaFile != "" && !qs.Has("polygon") {
		b, err := os.ReadFile(*areaFile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "quakes: %v\n", err)
			return 2
		}
		qs.Set("polygon", string(b))
	}
	if *since > 0 && !qs.Has("start") {
		qs.Set("start", now.Add(-*since).Format(time.RFC3339))
	}
	q, warn, err := router.ParseQuakeValues(qs, now)
	if warn != "" {
		log.Warn(warn)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "quakes: %v\n", err)
		return 2
	}

	client, err := skjalftalisa.New(log, httpclient.NewOutbound(*timeout), *endpoint)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "quakes: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := client.FetchQuakes(ctx, q.Request)
	if err != nil {
		var se *skjalftalisa.SchemaError
		if errors.As(err, &se) {
			_, _ = fmt.Fprintf(stderr, "quakes: unexpected response from catalog:\n%s\n", se.Body)
		}
		_, _ = fmt.Fprintf(stderr, "quakes: %v\n", err)
		return 1
	}

	if err := writeLines(stdout, data, q.CellRes); err != nil {
		_, _ = fmt.Fprintf(stderr, "quakes: write: %v\n", err)
		return 1
	}
	log.Info("done", "count", data.Len())
	return 0
}

func writeLines(w io.Writer, data *skjalftalisa.ResponseData, res int) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for q := range data.All() {
		l := line{Quake: q, OccurredAt: q.OccurredAt(), Severity: q.Severity().String()}
		if res >= 0 {
			if c, err := q.Cell(res); err == nil {
				l.Cell = c.String()
			}
		}
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	return bw.Flush()
}
