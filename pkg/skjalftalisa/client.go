package skjalftalisa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mohammed-shakir/skjalftalisa/internal/core/observability"
)

// DefaultEndpoint is the catalog's array query endpoint.
const DefaultEndpoint = "https://skjalftalisa-api.vedur.is/v1/quake/array"

const maxErrorBody = 8 << 10

type Interface interface {
	FetchQuakes(ctx context.Context, req SearchRequest) (*ResponseData, error)
}

type Client struct {
	logger   *slog.Logger
	client   *http.Client
	endpoint *url.URL
	startNow func() time.Time // for tests
}

var _ Interface = (*Client)(nil)

// New returns a client for endpoint (DefaultEndpoint when empty). A nil httpClient
// means http.DefaultClient and a nil logger discards output.
func New(logger *slog.Logger, httpClient *http.Client, endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		logger:   logger,
		client:   httpClient,
		endpoint: u,
		startNow: time.Now,
	}, nil
}

func (c *Client) Endpoint() string { return c.endpoint.String() }

// FetchQuakes sends req and decodes the catalog's answer. On error the returned data is
// always nil; failures are *TransportError or *SchemaError.
func (c *Client) FetchQuakes(ctx context.Context, req SearchRequest) (*ResponseData, error) {
	data, err := c.fetch(ctx, req)
	switch {
	case err == nil:
		observability.IncFetch("ok")
		observability.AddQuakesReturned(data.Len())
	case errors.Is(err, ErrSchema):
		observability.IncFetch("schema_error")
	default:
		observability.IncFetch("transport_error")
	}
	return data, err
}

func (c *Client) fetch(ctx context.Context, req SearchRequest) (*ResponseData, error) {
	key := strconv.FormatUint(req.Key(), 16)

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "encode request", Err: err}
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")

	start := c.startNow()
	resp, err := c.client.Do(hreq)
	if err != nil {
		return nil, &TransportError{Op: "do request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		observability.ObserveUpstreamLatency("skjalftalisa", time.Since(start).Seconds())
		c.logger.WarnContext(ctx, "catalog returned non-success status",
			"status", resp.StatusCode, "query_key", key)
		return nil, &TransportError{
			Op:         "post",
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	dur := time.Since(start)
	observability.ObserveUpstreamLatency("skjalftalisa", dur.Seconds())
	if err != nil {
		return nil, &TransportError{Op: "read body", Err: err}
	}

	if !json.Valid(body) {
		return nil, &TransportError{
			Op:   "decode body",
			Body: snippet(body),
			Err:  errors.New("response body is not valid JSON"),
		}
	}

	data, err := ParseResponse(body)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog response did not match expected shape",
			"query_key", key, "err", err, "body", snippet(body))
		return nil, &SchemaError{Body: string(body), Err: err}
	}

	c.logger.DebugContext(ctx, "catalog query done",
		"query_key", key,
		"rows", data.Len(),
		"bytes", len(body),
		"duration", dur.String())
	return data, nil
}

func snippet(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
