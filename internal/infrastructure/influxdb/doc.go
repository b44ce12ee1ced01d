// Package influxdb records gateway outcome telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every pending entry
// that leaves the registry becomes one point in the gateway_outcomes
// measurement:
//
//	gateway_outcomes,action=COURSE_CREATE,disposition=resolved,service=coursebook-gateway status=201i,wait_ms=84.2
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	registry := pending.New(pending.WithObserver(client))
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; asynchronous write
// errors go to the handler given by WithErrorHandler.
package influxdb
