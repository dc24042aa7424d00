// Package mqtt provides MQTT client connectivity for the iqstream core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and backoff
//   - IQ chunk publishing with QoS selection
//   - Control-topic subscription with panic-contained handlers
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The broker decouples the receiver from downstream consumers:
//
//	HackRF -> iqstream core -> MQTT broker -> consumers
//	operator -> MQTT broker -> control topic -> iqstream core
//
// All retry and reconnection policy lives in this package. The
// publisher loop upstream treats a disconnected transport as a
// drop-and-continue condition and never retries a publish.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Register the control dispatcher
//	err = client.Subscribe(mqtt.Topics{}.Control("hackrf-01"), 1, dispatcher.HandleMessage)
//
//	// Publish one IQ chunk
//	client.Publish(mqtt.Topics{}.Data("hackrf-01"), chunk, 0, false)
package mqtt
