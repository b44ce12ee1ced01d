// Package natsbus provides NATS connectivity for the Coursebook gateway.
//
// It is the transport behind the "nats" broker driver and mirrors the mqtt
// package's subject layout with NATS separators:
//
//	coursebook.command.mongo   gateway -> document store worker
//	coursebook.command.riak    gateway -> counters worker
//	coursebook.completion      workers -> gateway
//
// When JetStream is enabled, Connect ensures a stream covering
// <exchange>.command.> so commands survive a worker restart, and publishes
// wait for the stream's acknowledgement. Without JetStream a publish is
// confirmed with a flush round-trip to the server.
package natsbus
