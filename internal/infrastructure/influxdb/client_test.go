package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/hvpsu/internal/infrastructure/config"
	"github.com/nerrad567/hvpsu/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu      sync.Mutex
	lines   []string
	writeTo string
	healthy bool
	reject  bool
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{healthy: true}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.URL.Path {
		case "/ping":
			if !f.healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			if f.reject {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"invalid","message":"unable to parse points"}`))
				return
			}
			body, _ := io.ReadAll(r.Body)
			f.writeTo = r.URL.Query().Get("org") + "/" + r.URL.Query().Get("bucket")
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.lines) >= n {
			out := append([]string(nil), f.lines...)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines", n)
	return nil
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "hvpsu-dev-token",
		Org:           "lab",
		Bucket:        "psu",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	f := newFakeInflux(t)
	f.healthy = false

	_, err := influxdb.Connect(testConfig(f.URL))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWritePSUReading(t *testing.T) {
	f := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(f.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	client.WritePSUReading("fug", 12000, 0.25, true, ts)
	client.Flush()

	lines := f.waitLines(t, 1)
	line := lines[0]
	if !strings.HasPrefix(line, "psu_reading,identity=fug ") || !strings.HasSuffix(line, " 1772355600000000000") {
		t.Errorf("line = %q", line)
	}
	for _, field := range []string{"current=0.25", "relay_on=true", "voltage=12000"} {
		if !strings.Contains(line, field) {
			t.Errorf("line %q missing %s", line, field)
		}
	}
	if f.writeTo != "lab/psu" {
		t.Errorf("wrote to %q, want lab/psu", f.writeTo)
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	f := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(f.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WritePSUCommand("fug", "connect", nil, true, "ok", time.Now())
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	client.WritePSUReading("fug", 1, 1, false, time.Now())
	client.Flush()

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	lines := f.waitLines(t, 1)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "psu_command,identity=fug") {
		t.Errorf("lines = %v", lines)
	}
}

func TestWritePSUCommand(t *testing.T) {
	f := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(f.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	v := 12000.0
	client.WritePSUCommand("fug", "set_voltage", &v, true, "ok", ts)
	client.WritePSUCommand("", "teardown", nil, false, "driver_fault", ts)
	client.Flush()

	lines := f.waitLines(t, 2)
	if !strings.HasPrefix(lines[0], "psu_command,code=ok,identity=fug,op=set_voltage ") ||
		!strings.Contains(lines[0], "accepted=true") || !strings.Contains(lines[0], "value=12000") {
		t.Errorf("set_voltage line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "psu_command,code=driver_fault,op=teardown accepted=false ") {
		t.Errorf("teardown line = %q", lines[1])
	}
}

func TestWriteFailureReachesCallback(t *testing.T) {
	f := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(f.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	errs := make(chan error, 4)
	client.SetOnError(func(err error) { errs <- err })

	f.mu.Lock()
	f.reject = true
	f.mu.Unlock()

	client.WritePSUReading("fug", 1, 1, false, time.Now())
	client.Flush()

	select {
	case err := <-errs:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
		if !strings.Contains(err.Error(), "bucket psu") {
			t.Errorf("callback error %q does not name the bucket", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write failure not reported")
	}
}

func TestClose_Nil(t *testing.T) {
	var client influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}
