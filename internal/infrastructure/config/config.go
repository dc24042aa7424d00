package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the iqstream core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Queue     QueueConfig     `yaml:"queue"`
	Publisher PublisherConfig `yaml:"publisher"`
	Stream    StreamConfig    `yaml:"stream"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig contains HackRF tuning and capture settings.
//
// Values are passed to the hackrf_transfer subprocess; ranges follow
// the HackRF One hardware limits.
type DeviceConfig struct {
	// ID identifies this receiver in MQTT topics and telemetry.
	ID string `yaml:"id"`

	// Binary is the path to the hackrf_transfer executable.
	Binary string `yaml:"binary"`

	// CenterFrequencyHz is the RF centre frequency (1 MHz - 6 GHz).
	CenterFrequencyHz uint64 `yaml:"center_frequency_hz"`

	// SampleRateHz is the baseband sample rate (2 - 20 Msps).
	SampleRateHz uint32 `yaml:"sample_rate_hz"`

	// FilterBandwidthHz is the baseband filter bandwidth.
	// 0 lets the device pick a default for the sample rate.
	FilterBandwidthHz uint32 `yaml:"filter_bandwidth_hz"`

	// LNAGain is the IF gain in dB (0-40, steps of 8).
	LNAGain uint32 `yaml:"lna_gain"`

	// VGAGain is the baseband RX gain in dB (0-62, steps of 2).
	VGAGain uint32 `yaml:"vga_gain"`

	// AmpEnable switches the front-end RF amplifier on.
	AmpEnable bool `yaml:"amp_enable"`

	// ChunkSize is the number of bytes per IQ chunk handed to the
	// producer callback. One chunk becomes one MQTT message.
	ChunkSize int `yaml:"chunk_size"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTTopicsConfig contains the outbound data topic and the inbound
// control topic. Empty values are filled from the device id at load
// time using the standard topic layout.
type MQTTTopicsConfig struct {
	Data    string `yaml:"data"`
	Control string `yaml:"control"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// QueueConfig contains bounded queue settings.
type QueueConfig struct {
	// Capacity is the maximum number of queued chunks.
	// 0 means unbounded; any positive value caps worst-case memory at
	// capacity x chunk_size bytes.
	Capacity int `yaml:"capacity"`
}

// PublisherConfig contains publisher loop settings.
type PublisherConfig struct {
	// PollIntervalMs is the WaitPop timeout in milliseconds. It governs
	// both publish cadence and shutdown responsiveness.
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

// StreamConfig contains initial streaming state settings.
type StreamConfig struct {
	// StartOnBoot starts capture immediately after startup.
	// When false, the device stays paused until a RESUME command.
	StartOnBoot bool `yaml:"start_on_boot"`
}

// DatabaseConfig contains SQLite session-ledger settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains telemetry sink settings.
type InfluxDBConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	Org            string `yaml:"org"`
	Bucket         string `yaml:"bucket"`
	BatchSize      int    `yaml:"batch_size"`
	FlushInterval  int    `yaml:"flush_interval"`
	SampleInterval int    `yaml:"sample_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// HackRF hardware limits used by Validate.
const (
	minFrequencyHz = 1_000_000
	maxFrequencyHz = 6_000_000_000

	minSampleRateHz = 2_000_000
	maxSampleRateHz = 20_000_000

	maxLNAGain  = 40
	lnaGainStep = 8

	maxVGAGain  = 62
	vgaGainStep = 2

	maxQoS = 2

	maxPort = 65535
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IQSTREAM_SECTION_KEY
// For example: IQSTREAM_MQTT_HOST, IQSTREAM_QUEUE_CAPACITY
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Fill derived topic defaults after the device id is final
	cfg.applyTopicDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with topic defaults
// applied. Used by tests and when no config file is required.
func Default() *Config {
	cfg := defaultConfig()
	cfg.applyTopicDefaults()
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
//
// Radio defaults match the reference receiver profile: 2.4 GHz centre,
// 2 Msps, 1.75 MHz filter, LNA 32 dB, VGA 24 dB.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:                "hackrf-01",
			Binary:            "hackrf_transfer",
			CenterFrequencyHz: 2_400_000_000,
			SampleRateHz:      2_000_000,
			FilterBandwidthHz: 1_750_000,
			LNAGain:           32,
			VGAGain:           24,
			AmpEnable:         false,
			ChunkSize:         262144,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				TLS:      false,
				ClientID: "iqstream-core",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Queue: QueueConfig{
			Capacity: 100,
		},
		Publisher: PublisherConfig{
			PollIntervalMs: 100,
		},
		Stream: StreamConfig{
			StartOnBoot: true,
		},
		Database: DatabaseConfig{
			Path:        "data/iqstream.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			Enabled:        false,
			URL:            "http://localhost:8086",
			Bucket:         "iqstream",
			BatchSize:      100,
			FlushInterval:  10,
			SampleInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyTopicDefaults fills empty topic values from the device id.
func (c *Config) applyTopicDefaults() {
	if c.MQTT.Topics.Data == "" {
		c.MQTT.Topics.Data = fmt.Sprintf("iqstream/data/%s/iq", c.Device.ID)
	}
	if c.MQTT.Topics.Control == "" {
		c.MQTT.Topics.Control = fmt.Sprintf("iqstream/control/%s", c.Device.ID)
	}
}

// applyEnvOverrides applies IQSTREAM_* environment variables on top of
// the loaded configuration. Only operationally useful keys are exposed;
// everything else belongs in the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IQSTREAM_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IQSTREAM_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("IQSTREAM_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IQSTREAM_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("IQSTREAM_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("IQSTREAM_DEVICE_BINARY"); v != "" {
		cfg.Device.Binary = v
	}
	if v := os.Getenv("IQSTREAM_QUEUE_CAPACITY"); v != "" {
		if capacity, err := strconv.Atoi(v); err == nil {
			cfg.Queue.Capacity = capacity
		}
	}
	if v := os.Getenv("IQSTREAM_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("IQSTREAM_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("IQSTREAM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for invalid or inconsistent values.
//
// Returns:
//   - error: Describing the first invalid value found, or nil
func (c *Config) Validate() error {
	if c.Device.ID == "" {
		return fmt.Errorf("device.id cannot be empty")
	}
	if c.Device.Binary == "" {
		return fmt.Errorf("device.binary cannot be empty")
	}
	if c.Device.CenterFrequencyHz < minFrequencyHz || c.Device.CenterFrequencyHz > maxFrequencyHz {
		return fmt.Errorf("device.center_frequency_hz %d outside %d-%d",
			c.Device.CenterFrequencyHz, minFrequencyHz, maxFrequencyHz)
	}
	if c.Device.SampleRateHz < minSampleRateHz || c.Device.SampleRateHz > maxSampleRateHz {
		return fmt.Errorf("device.sample_rate_hz %d outside %d-%d",
			c.Device.SampleRateHz, minSampleRateHz, maxSampleRateHz)
	}
	if c.Device.LNAGain > maxLNAGain || c.Device.LNAGain%lnaGainStep != 0 {
		return fmt.Errorf("device.lna_gain %d must be 0-%d in steps of %d",
			c.Device.LNAGain, maxLNAGain, lnaGainStep)
	}
	if c.Device.VGAGain > maxVGAGain || c.Device.VGAGain%vgaGainStep != 0 {
		return fmt.Errorf("device.vga_gain %d must be 0-%d in steps of %d",
			c.Device.VGAGain, maxVGAGain, vgaGainStep)
	}
	if c.Device.ChunkSize <= 0 {
		return fmt.Errorf("device.chunk_size must be positive, got %d", c.Device.ChunkSize)
	}
	if c.MQTT.Broker.Host == "" {
		return fmt.Errorf("mqtt.broker.host cannot be empty")
	}
	if c.MQTT.Broker.Port <= 0 || c.MQTT.Broker.Port > maxPort {
		return fmt.Errorf("mqtt.broker.port %d outside 1-%d", c.MQTT.Broker.Port, maxPort)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > maxQoS {
		return fmt.Errorf("mqtt.qos must be 0-%d, got %d", maxQoS, c.MQTT.QoS)
	}
	if c.Queue.Capacity < 0 {
		return fmt.Errorf("queue.capacity cannot be negative, got %d", c.Queue.Capacity)
	}
	if c.Publisher.PollIntervalMs <= 0 {
		return fmt.Errorf("publisher.poll_interval_ms must be positive, got %d", c.Publisher.PollIntervalMs)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		return fmt.Errorf("influxdb.url cannot be empty when influxdb is enabled")
	}
	return nil
}

// PollInterval returns the publisher poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Publisher.PollIntervalMs) * time.Millisecond
}

// SampleInterval returns the telemetry sampling interval as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.InfluxDB.SampleInterval) * time.Second
}
