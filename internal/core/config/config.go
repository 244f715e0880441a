// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type KafkaCfg struct {
	Enabled bool
	Brokers []string `validate:"required_if=Enabled true,dive,hostname_port"`
	Topic   string   `validate:"required_if=Enabled true"`
}

type Config struct {
	Addr          string        `validate:"required"`
	LogLevel      string        `validate:"oneof=debug info warn error"`
	LogConsole    bool
	LogSampleN    int           `validate:"gte=0"`
	Endpoint      string        `validate:"required,url"`
	HTTPTimeout   time.Duration `validate:"gt=0"`
	PollInterval  time.Duration `validate:"gte=1s"`
	PollLookback  time.Duration `validate:"gtefield=PollInterval"`
	AreaGeoJSON   string
	SizeMin       int64
	SizeMax       int64 `validate:"gtefield=SizeMin"`
	DepthMin      int64
	DepthMax      int64 `validate:"gtefield=DepthMin"`
	H3Res         int   `validate:"gte=-1,lte=15"` // -1 leaves the cell out of published quakes
	DedupeSize    int   `validate:"gt=0"`
	MetricsEnable bool
	CORSOrigins   []string
	Kafka         KafkaCfg
}

func FromEnv() Config {
	return Config{
		Addr:          getenv("ADDR", ":8090"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogConsole:    getbool("LOG_CONSOLE", false),
		LogSampleN:    getint("LOG_SAMPLE_N", 0),
		Endpoint:      getenv("SKJALFTALISA_URL", "https://skjalftalisa-api.vedur.is/v1/quake/array"),
		HTTPTimeout:   getduration("HTTP_TIMEOUT", 30*time.Second),
		PollInterval:  getduration("POLL_INTERVAL", time.Minute),
		PollLookback:  getduration("POLL_LOOKBACK", time.Hour),
		AreaGeoJSON:   getenv("AREA_GEOJSON", ""),
		SizeMin:       int64(getint("SIZE_MIN", 0)),
		SizeMax:       int64(getint("SIZE_MAX", 11)),
		DepthMin:      int64(getint("DEPTH_MIN", 0)),
		DepthMax:      int64(getint("DEPTH_MAX", 25)),
		H3Res:         getint("H3_RES", 7),
		DedupeSize:    getint("DEDUPE_SIZE", 8192),
		MetricsEnable: getbool("METRICS_ENABLED", true),
		CORSOrigins:   splitCSV(getenv("CORS_ORIGINS", "")),
		Kafka: KafkaCfg{
			Enabled: getbool("KAFKA_ENABLED", false),
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "quakes"),
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports every invalid field in one error.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
