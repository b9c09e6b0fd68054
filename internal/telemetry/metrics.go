package telemetry

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

const namespace = "irhvac"

// Metrics holds the controller's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	commands         *prometheus.CounterVec   // cmd, source, result
	commandDuration  *prometheus.HistogramVec // cmd
	stateChanges     *prometheus.CounterVec   // device_id, source
	transmissions    *prometheus.CounterVec   // emitter, kind, result
	invalidJSON      *prometheus.CounterVec   // source
	observerRefused  *prometheus.CounterVec   // pool
	broadcastDropped *prometheus.CounterVec   // pool
}

// NewMetrics creates and registers every collector, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Commands executed, by command, source and result (ok or error code)",
		}, []string{"cmd", "source", "result"}),

		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Command execution time on the control loop",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"cmd"}),

		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "changes_total",
			Help:      "Material device state changes",
		}, []string{"device_id", "source"}),

		transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emitter",
			Name:      "transmissions_total",
			Help:      "IR transmissions by emitter, program kind and result",
		}, []string{"emitter", "kind", "result"}),

		invalidJSON: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "invalid_json_total",
			Help:      "Command payloads that failed to decode",
		}, []string{"source"}),

		observerRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observers",
			Name:      "refused_total",
			Help:      "Observer connections refused because every slot was live",
		}, []string{"pool"}),

		broadcastDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "observers",
			Name:      "dropped_total",
			Help:      "State notifications dropped for a full observer queue",
		}, []string{"pool"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands,
		m.commandDuration,
		m.stateChanges,
		m.transmissions,
		m.invalidJSON,
		m.observerRefused,
		m.broadcastDropped,
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePool exports a live-session gauge for an observer pool.
func (m *Metrics) ObservePool(pool string, live func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "observers",
		Name:        "live",
		Help:        "Live observer sessions",
		ConstLabels: prometheus.Labels{"pool": pool},
	}, func() float64 { return float64(live()) }))
}

// ObserveDispatcher exports the event dispatcher's drop counter.
func (m *Metrics) ObserveDispatcher(dropped func() uint64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "State and command events dropped for a full dispatch queue",
	}, func() float64 { return float64(dropped()) }))
}

// HandleCommand implements hvac.CommandSink.
func (m *Metrics) HandleCommand(_ context.Context, rec hvac.CommandRecord) {
	if m == nil {
		return
	}
	result := "ok"
	if !rec.OK {
		result = string(rec.Error)
	}
	cmd := commandLabel(rec.Command)
	m.commands.WithLabelValues(cmd, rec.Source, result).Inc()
	m.commandDuration.WithLabelValues(cmd).Observe(rec.Duration.Seconds())
}

// HandleState implements hvac.StateSink.
func (m *Metrics) HandleState(_ context.Context, change hvac.StateChange) {
	if m == nil {
		return
	}
	m.stateChanges.WithLabelValues(change.Message.ID, change.Source).Inc()
}

// ObserveTransmit matches emitter.Options.OnTransmit.
func (m *Metrics) ObserveTransmit(index int, kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.transmissions.WithLabelValues(strconv.Itoa(index), kind, result).Inc()
}

// InvalidJSON counts an undecodable command payload.
func (m *Metrics) InvalidJSON(source string) {
	if m == nil {
		return
	}
	m.invalidJSON.WithLabelValues(source).Inc()
}

// ObserverRefused counts a refused observer connection.
func (m *Metrics) ObserverRefused(pool string) {
	if m == nil {
		return
	}
	m.observerRefused.WithLabelValues(pool).Inc()
}

// BroadcastDropped returns an observer.Options.OnDrop callback for pool.
func (m *Metrics) BroadcastDropped(pool string) func(slot int) {
	return func(int) {
		if m == nil {
			return
		}
		m.broadcastDropped.WithLabelValues(pool).Inc()
	}
}

// commandLabel keeps unknown command names out of the label space.
func commandLabel(name string) string {
	switch name {
	case "list", "send", "get", "get_all", "raw", "help":
		return name
	}
	return "unknown"
}
