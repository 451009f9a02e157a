// Package metrics exposes PSU state as Prometheus gauges.
//
// The Collector takes a fresh psu snapshot on every scrape, so readings are
// as current as the scrape interval. It never connects a device.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// scrapeTimeout bounds one snapshot taken during Collect.
const scrapeTimeout = 5 * time.Second

// Collector implements prometheus.Collector for configured PSUs.
type Collector struct {
	source  psu.Snapshotter
	timeout time.Duration

	connected   *prometheus.Desc
	voltage     *prometheus.Desc
	current     *prometheus.Desc
	relayOn     *prometheus.Desc
	maxVoltage  *prometheus.Desc
	maxCurrent  *prometheus.Desc
	readSuccess *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source psu.Snapshotter) *Collector {
	labels := []string{"identity"}
	return &Collector{
		source:  source,
		timeout: scrapeTimeout,
		connected: prometheus.NewDesc(
			"hvpsu_connected",
			"Whether the PSU has a live hardware handle (1=yes, 0=no)",
			labels, nil,
		),
		voltage: prometheus.NewDesc(
			"hvpsu_voltage_volts",
			"Measured output voltage in volts",
			labels, nil,
		),
		current: prometheus.NewDesc(
			"hvpsu_current_milliamps",
			"Measured output current in milliamps",
			labels, nil,
		),
		relayOn: prometheus.NewDesc(
			"hvpsu_relay_on",
			"Output relay state (1=on, 0=off); absent for PSUs without a relay",
			labels, nil,
		),
		maxVoltage: prometheus.NewDesc(
			"hvpsu_max_voltage_volts",
			"Configured maximum output voltage in volts",
			labels, nil,
		),
		maxCurrent: prometheus.NewDesc(
			"hvpsu_max_current_milliamps",
			"Configured maximum output current in milliamps",
			labels, nil,
		),
		readSuccess: prometheus.NewDesc(
			"hvpsu_read_success",
			"Whether the last scrape read the PSU successfully",
			labels, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connected
	ch <- c.voltage
	ch <- c.current
	ch <- c.relayOn
	ch <- c.maxVoltage
	ch <- c.maxCurrent
	ch <- c.readSuccess
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	for identity, entry := range c.source.Snapshot(ctx) {
		c.collectEntry(identity, entry, ch)
	}
}

func (c *Collector) collectEntry(identity string, entry psu.StatusEntry, ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.maxVoltage, prometheus.GaugeValue, entry.Limits.MaxVoltage, identity)
	ch <- prometheus.MustNewConstMetric(c.maxCurrent, prometheus.GaugeValue, entry.Limits.MaxCurrent, identity)
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolValue(entry.Connected), identity)

	if entry.Reading == nil {
		ch <- prometheus.MustNewConstMetric(c.readSuccess, prometheus.GaugeValue, 0, identity)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.readSuccess, prometheus.GaugeValue, 1, identity)
	ch <- prometheus.MustNewConstMetric(c.voltage, prometheus.GaugeValue, entry.Reading.Voltage, identity)
	ch <- prometheus.MustNewConstMetric(c.current, prometheus.GaugeValue, entry.Reading.Current, identity)
	if entry.Limits.HasRelay {
		ch <- prometheus.MustNewConstMetric(c.relayOn, prometheus.GaugeValue, boolValue(entry.Reading.RelayOn), identity)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
