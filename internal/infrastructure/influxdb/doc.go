// Package influxdb provides InfluxDB connectivity for the controller's
// telemetry: device state changes and command outcomes become points in the
// configured bucket.
//
// It wraps the official influxdb-client-go v2 library. Writes are
// non-blocking and batched; asynchronous failures are reported through
// SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
package influxdb
