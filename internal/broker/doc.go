// Package broker publishes command envelopes to downstream workers and
// consumes their completion events.
//
// The gateway speaks to two workers through routing keys:
//
//	mongo  document store worker (registration, course and wish writes)
//	riak   counters worker (best-effort usage statistics)
//
// A Broker dials its transport lazily. The first Publish (or an explicit
// Connect) performs the dial; concurrent first publishes share that single
// dial. A failed dial is not remembered, so the next Publish tries again.
// Nothing is retried silently: each failure is returned to the caller as a
// *PublishError.
//
// Two transports are provided, selected by broker.driver in config.yaml:
// MQTT (paho) and NATS (nats.go, optionally with JetStream).
package broker
