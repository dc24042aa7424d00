package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.MQTT.Topics.Data != "iqstream/data/hackrf-01/iq" {
		t.Errorf("default data topic = %q", cfg.MQTT.Topics.Data)
	}
	if cfg.MQTT.Topics.Control != "iqstream/control/hackrf-01" {
		t.Errorf("default control topic = %q", cfg.MQTT.Topics.Control)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "rooftop-03"
  center_frequency_hz: 433920000
  sample_rate_hz: 8000000
queue:
  capacity: 50
stream:
  start_on_boot: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "rooftop-03" {
		t.Errorf("Device.ID = %q, want rooftop-03", cfg.Device.ID)
	}
	if cfg.Device.CenterFrequencyHz != 433_920_000 {
		t.Errorf("CenterFrequencyHz = %d", cfg.Device.CenterFrequencyHz)
	}
	if cfg.Queue.Capacity != 50 {
		t.Errorf("Queue.Capacity = %d, want 50", cfg.Queue.Capacity)
	}
	if cfg.Stream.StartOnBoot {
		t.Error("StartOnBoot = true, want false")
	}

	// Unset values keep their defaults.
	if cfg.Device.LNAGain != 32 {
		t.Errorf("LNAGain = %d, want default 32", cfg.Device.LNAGain)
	}

	// Topics derive from the overridden device id.
	if cfg.MQTT.Topics.Data != "iqstream/data/rooftop-03/iq" {
		t.Errorf("data topic = %q", cfg.MQTT.Topics.Data)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
device:
  id: "from-file"
`)

	t.Setenv("IQSTREAM_DEVICE_ID", "from-env")
	t.Setenv("IQSTREAM_MQTT_HOST", "broker.internal")
	t.Setenv("IQSTREAM_QUEUE_CAPACITY", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "from-env" {
		t.Errorf("Device.ID = %q, env must override file", cfg.Device.ID)
	}
	if cfg.MQTT.Broker.Host != "broker.internal" {
		t.Errorf("Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.Queue.Capacity != 7 {
		t.Errorf("Queue.Capacity = %d, want 7", cfg.Queue.Capacity)
	}
	if cfg.MQTT.Topics.Control != "iqstream/control/from-env" {
		t.Errorf("control topic = %q, must derive from final id", cfg.MQTT.Topics.Control)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty device id", func(c *Config) { c.Device.ID = "" }},
		{"frequency too low", func(c *Config) { c.Device.CenterFrequencyHz = 500_000 }},
		{"frequency too high", func(c *Config) { c.Device.CenterFrequencyHz = 7_000_000_000 }},
		{"sample rate too low", func(c *Config) { c.Device.SampleRateHz = 1_000_000 }},
		{"lna gain off-step", func(c *Config) { c.Device.LNAGain = 30 }},
		{"lna gain too high", func(c *Config) { c.Device.LNAGain = 48 }},
		{"vga gain off-step", func(c *Config) { c.Device.VGAGain = 25 }},
		{"zero chunk size", func(c *Config) { c.Device.ChunkSize = 0 }},
		{"negative queue capacity", func(c *Config) { c.Queue.Capacity = -1 }},
		{"zero poll interval", func(c *Config) { c.Publisher.PollIntervalMs = 0 }},
		{"qos out of range", func(c *Config) { c.MQTT.QoS = 3 }},
		{"bad broker port", func(c *Config) { c.MQTT.Broker.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() on missing file = nil, want error")
	}
}
