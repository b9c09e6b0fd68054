package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Observers     ObserverMetrics  `json:"observers"`
	MQTT          *MQTTMetrics     `json:"mqtt,omitempty"`
	Devices       DeviceMetrics    `json:"devices"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// ObserverMetrics counts attached state observers.
type ObserverMetrics struct {
	Line      int `json:"line"`
	WebSocket int `json:"websocket"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics summarises the device registry.
type DeviceMetrics struct {
	Total      int            `json:"total"`
	ByProtocol map[string]int `json:"by_protocol"`
	PoweredOn  int            `json:"powered_on"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns a JSON summary of the running controller.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Observers: ObserverMetrics{
			WebSocket: s.observers.Live(),
		},
		Devices: DeviceMetrics{ByProtocol: make(map[string]int)},
	}
	if s.lineObservers != nil {
		metrics.Observers.Line = s.lineObservers()
	}
	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}

	// Peek only: reading metrics must not initialise untouched devices.
	if err := s.engine.Do(r.Context(), func(p *hvac.Processor) {
		for _, d := range p.Registry().Devices() {
			metrics.Devices.Total++
			metrics.Devices.ByProtocol[d.Protocol]++
		}
		metrics.Devices.PoweredOn = p.PoweredOn()
	}); err != nil {
		writeUnavailable(w, "control loop stopped")
		return
	}

	if s.db != nil {
		st := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
