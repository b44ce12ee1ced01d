// Package mqtt provides MQTT connectivity for the Coursebook gateway.
//
// It is the transport behind the default broker driver. Commands go out on
// per-worker topics and completions come back on a single topic:
//
//	gateway --coursebook/command/mongo--> document store worker
//	gateway --coursebook/command/riak---> counters worker
//	workers --coursebook/completion-----> gateway
//
// The gateway also keeps a retained status message on
// coursebook/system/status, with a Last Will so workers see an unexpected
// disconnect.
//
// # Connection behaviour
//
// Connect dials exactly once and returns ErrConnectionFailed on failure.
// The broker package decides when to dial again. An established session is
// kept alive by paho's auto-reconnect, and subscriptions are restored after
// each reconnect.
//
// # Usage
//
//	topics := mqtt.Topics{Exchange: cfg.Broker.Exchange}
//	client, err := mqtt.Connect(ctx, cfg.Broker.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, topics.Command("mongo"), payload, client.QoS(), false)
package mqtt
