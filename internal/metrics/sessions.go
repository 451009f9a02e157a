package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionCounter reports open WebSocket sessions. *api.Hub implements it.
type SessionCounter interface {
	SessionCount() int
}

// NewSessionGauge exports the live session count as hvpsu_websocket_sessions.
func NewSessionGauge(counter SessionCounter) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "hvpsu_websocket_sessions",
		Help: "Open WebSocket sessions on the API",
	}, func() float64 {
		return float64(counter.SessionCount())
	})
}
