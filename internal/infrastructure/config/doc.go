// Package config provides configuration loading for the iqstream core.
//
// Configuration is loaded from a YAML file, merged over built-in
// defaults, and finally overridden by IQSTREAM_* environment variables.
// The loaded result is validated before use; an invalid configuration
// aborts startup.
//
// # Sections
//
//   - device:    HackRF tuning (frequency, sample rate, gains) and chunking
//   - mqtt:      broker address, auth, QoS, data/control topics, reconnect
//   - queue:     bounded IQ queue capacity (0 = unbounded)
//   - publisher: poll interval, which also bounds shutdown latency
//   - stream:    whether capture starts immediately on boot
//   - database:  SQLite session ledger location
//   - influxdb:  optional telemetry sink
//   - logging:   level, format, output
//
// # Example
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Topics.Control)
package config
