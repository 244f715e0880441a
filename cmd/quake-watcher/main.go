package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/skjalftalisa/internal/core/config"
	"github.com/mohammed-shakir/skjalftalisa/internal/core/httpclient"
	"github.com/mohammed-shakir/skjalftalisa/internal/core/observability"
	"github.com/mohammed-shakir/skjalftalisa/internal/core/server"
	"github.com/mohammed-shakir/skjalftalisa/internal/logger"
	"github.com/mohammed-shakir/skjalftalisa/internal/metrics"
	"github.com/mohammed-shakir/skjalftalisa/internal/sink/kafkasink"
	"github.com/mohammed-shakir/skjalftalisa/internal/sink/logsink"
	"github.com/mohammed-shakir/skjalftalisa/internal/watcher"
	"github.com/mohammed-shakir/skjalftalisa/pkg/skjalftalisa"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	once := flag.Bool("once", false, "poll a single time and exit")
	flag.Parse()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "quake-watcher",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 2
	}

	observability.SetComponent("quake-watcher")
	observability.ExposeBuildInfo(Version)

	p := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnable,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			Branch:    os.Getenv("BUILD_BRANCH"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})

	base, err := baseRequest(cfg)
	if err != nil {
		appLog.Error("invalid search area", "err", err)
		return 2
	}

	client, err := skjalftalisa.New(appLog, httpclient.NewOutbound(cfg.HTTPTimeout), cfg.Endpoint)
	if err != nil {
		appLog.Error("failed to initialize catalog client", "err", err)
		return 1
	}

	sink, closeSink, err := buildSink(cfg, zl, appLog)
	if err != nil {
		appLog.Error("failed to initialize sink", "err", err)
		return 1
	}
	defer closeSink()

	w := watcher.New(client, base, sink, watcher.Options{
		Logger:     appLog,
		Register:   p.Registerer(),
		Interval:   cfg.PollInterval,
		Lookback:   cfg.PollLookback,
		DedupeSize: cfg.DedupeSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("starting quake-watcher",
		"addr", cfg.Addr,
		"version", Version,
		"endpoint", client.Endpoint(),
		"kafka", cfg.Kafka.Enabled)

	if *once {
		n, err := w.PollOnce(ctx)
		if err != nil {
			appLog.Error("poll failed", "err", err)
			return 1
		}
		appLog.Info("poll done", "published", n)
		return 0
	}

	watchDone := make(chan error, 1)
	go func() { watchDone <- w.Run(ctx) }()

	handler := server.NewRouter(appLog, server.Deps{
		Fetcher: client,
		Ready:   w,
		Metrics: p.Handler(),
		Origins: cfg.CORSOrigins,
	})
	if err := server.Run(ctx, cfg.Addr, appLog, handler); err != nil {
		appLog.Error("server exited with error", "err", err)
		stop()
		<-watchDone
		return 1
	}
	<-watchDone
	appLog.Info("quake-watcher stopped")
	return 0
}

func baseRequest(cfg config.Config) (skjalftalisa.SearchRequest, error) {
	area := skjalftalisa.Iceland
	if cfg.AreaGeoJSON != "" {
		poly, err := skjalftalisa.PolygonFromGeoJSON(cfg.AreaGeoJSON)
		if err != nil {
			return skjalftalisa.SearchRequest{}, fmt.Errorf("AREA_GEOJSON: %w", err)
		}
		area = poly
	}
	return skjalftalisa.NewRequest(area).
		WithSize(cfg.SizeMin, cfg.SizeMax).
		WithDepth(cfg.DepthMin, cfg.DepthMax), nil
}

func buildSink(cfg config.Config, zl zerolog.Logger, log *slog.Logger) (watcher.Sink, func(), error) {
	if !cfg.Kafka.Enabled {
		return logsink.New(zl, cfg.H3Res), func() {}, nil
	}
	pub, err := kafkasink.New(kafkasink.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		H3Res:   cfg.H3Res,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Error("closing kafka sink", "err", err)
		}
	}, nil
}

