package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
)

// Defaults applied when the config leaves a value unset.
const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second

	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// Client writes PSU readings and command outcomes to one InfluxDB bucket.
//
// Writes never block the caller: points are batched by the underlying
// WriteAPI and sent every BatchSize points or FlushInterval, whichever
// comes first. All methods are safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	bucket   string

	connected atomic.Bool

	mu      sync.RWMutex
	onError func(err error)
}

// Connect pings the server and opens a batching write API on cfg.Bucket.
//
// Returns:
//   - *Client: ready for writes
//   - error: ErrDisabled, or ErrConnectionFailed when the ping fails
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
	}
	c.connected.Store(true)

	// Errors must be requested before the first write to be reported.
	go c.forwardErrors(c.writeAPI.Errors())
	return c, nil
}

func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := time.Duration(cfg.FlushInterval) * time.Second
	if flush <= 0 {
		flush = defaultFlushInterval
	}

	// #nosec G115 -- both values are positive here
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).
		SetFlushInterval(uint(flush.Milliseconds())).
		SetApplicationName("hvpsud")
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !healthy {
		return errors.New("server not healthy")
	}
	return nil
}

// forwardErrors hands batch failures to the SetOnError callback until the
// write API shuts down.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(fmt.Errorf("%w: bucket %s: %w", ErrWriteFailed, c.bucket, err))
		}
	}
}

// SetOnError sets the callback for failed batch writes. Every error it
// receives wraps ErrWriteFailed.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// IsConnected reports whether Close has not been called yet. HealthCheck
// performs an active ping.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// HealthCheck pings the server.
//
// Returns:
//   - error: nil if healthy, ErrNotConnected after Close
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush sends buffered points now. It blocks until the batch is written and
// is a no-op after Close.
func (c *Client) Flush() {
	if c.writeAPI == nil || !c.IsConnected() {
		return
	}
	c.writeAPI.Flush()
}

// Close flushes pending points and releases the client. Safe to call more
// than once and on a zero Client.
func (c *Client) Close() error {
	if c.client == nil || !c.connected.Swap(false) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
