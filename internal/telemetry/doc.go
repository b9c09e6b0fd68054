// Package telemetry exports controller counters to Prometheus and state
// changes to InfluxDB.
//
// Metrics and InfluxRecorder both implement the hvac sink interfaces and are
// registered on the hvac.Dispatcher. All Metrics methods are safe on a nil
// receiver so callers can leave metrics disabled.
package telemetry
