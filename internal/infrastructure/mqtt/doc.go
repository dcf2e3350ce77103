// Package mqtt provides MQTT client connectivity for AgriSense Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Field devices (soil probes, weather stations, valves, pumps) publish
// telemetry through farm gateways to the broker. Core subscribes to the
// per-farm hierarchies and feeds the ingest pipeline; commands flow back
// over the same broker.
//
//	Field Devices ↔ Farm Gateway ↔ MQTT Broker ↔ AgriSense Core
//
// Telemetry is published at QoS 1, so Core must tolerate duplicate
// deliveries. Deduplication happens downstream in the reading store.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all sensor telemetry
//	err = client.Subscribe(mqtt.Topics{}.AllSensorData(), 1,
//	    func(topic string, payload []byte) error {
//	        return pipeline.Enqueue(topic, payload)
//	    })
//
//	// Send a command to an actuator
//	topic := mqtt.Topics{}.Command("farm-001", "valve-3")
//	client.Publish(topic, []byte(`{"action":"open"}`), 1, false)
package mqtt
