package psu

import (
	"context"
	"sync"
	"time"
)

// StatusEntry is the monitoring view of one identity.
//
// Reading and RelayOn are present only when the device is connected and the
// read succeeded. Error is set when the device is connected but the read
// failed.
type StatusEntry struct {
	Connected bool         `json:"connected"`
	Board     Board        `json:"board"`
	Limits    DeviceLimits `json:"limits"`
	Reading   *Reading     `json:"reading,omitempty"`
	RelayOn   *bool        `json:"relay_on,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Snapshot reads every connected device and returns one entry per
// configured identity. It never connects a device and never fails: a read
// error is recorded in that identity's entry only.
func (m *Manager) Snapshot(ctx context.Context) map[string]StatusEntry {
	out := make(map[string]StatusEntry, len(m.identities))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range m.identities {
		dev := m.devices[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry := snapshotDevice(ctx, dev)
			mu.Lock()
			out[dev.Identity()] = entry
			mu.Unlock()
		}()
	}
	wg.Wait()

	return out
}

func snapshotDevice(ctx context.Context, dev *Device) StatusEntry {
	entry := StatusEntry{Board: dev.Board(), Limits: dev.Limits()}
	if !dev.Connected() {
		return entry
	}
	entry.Connected = true
	if err := ctx.Err(); err != nil {
		entry.Error = err.Error()
		return entry
	}

	r, err := dev.Read()
	if err != nil {
		// A teardown that won the race leaves the entry disconnected.
		entry.Connected = dev.Connected()
		if entry.Connected {
			entry.Error = err.Error()
		}
		return entry
	}
	on := r.RelayOn
	entry.Reading = &r
	entry.RelayOn = &on
	return entry
}

// Snapshotter produces per-identity status entries.
type Snapshotter interface {
	Snapshot(ctx context.Context) map[string]StatusEntry
}

// Status is the monitoring document served to operators.
type Status struct {
	Service   string                 `json:"service"`
	Timestamp time.Time              `json:"timestamp"`
	PSUs      map[string]StatusEntry `json:"psus"`
}

// StatusAggregator shapes a snapshot into a Status document. It holds no
// state of its own.
type StatusAggregator struct {
	service string
	source  Snapshotter
	now     func() time.Time
}

// NewStatusAggregator creates an aggregator over source.
func NewStatusAggregator(service string, source Snapshotter) *StatusAggregator {
	return &StatusAggregator{
		service: service,
		source:  source,
		now:     time.Now,
	}
}

// Status takes a fresh snapshot.
func (a *StatusAggregator) Status(ctx context.Context) Status {
	return Status{
		Service:   a.service,
		Timestamp: a.now().UTC(),
		PSUs:      a.source.Snapshot(ctx),
	}
}
