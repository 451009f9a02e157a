package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the hvpsu service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Driver    DriverConfig    `yaml:"driver"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	PSUs      []PSUConfig     `yaml:"psus"`
}

// ServiceConfig identifies this service instance.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
// An empty Secret disables API authentication.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// DriverConfig selects the hardware driver and its transport settings.
type DriverConfig struct {
	// Type is "analog" for the USB interface board or "simulated".
	Type string `yaml:"type"`

	// TimeoutMS is the per-transfer USB timeout in milliseconds.
	TimeoutMS int `yaml:"timeout_ms"`

	// Attempts is the number of bulk transfer attempts.
	Attempts int `yaml:"attempts"`

	// Interface is the USB interface number to claim.
	Interface int `yaml:"interface"`

	// Absent lists identities the simulated driver reports as unplugged.
	Absent []string `yaml:"absent,omitempty"`
}

// TelemetryConfig controls the periodic status publisher.
type TelemetryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PSUConfig declares one PSU identity, its limits and board selection.
type PSUConfig struct {
	Identity        string  `yaml:"identity"`
	MaxVoltage      float64 `yaml:"max_voltage"`
	MaxCurrent      float64 `yaml:"max_current"`
	MaxInputVoltage float64 `yaml:"max_input_voltage"`
	HasRelay        bool    `yaml:"has_relay"`
	DeviceIndex     int     `yaml:"device_index"`
	USBPath         string  `yaml:"usb_path,omitempty"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HVPSU_SECTION_KEY
// For example: HVPSU_DATABASE_PATH, HVPSU_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
// PSUs has no default; the identities must come from the file.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "hvpsu-001",
			Name: "hvpsu",
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/hvpsu.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hvpsu",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5001,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Driver: DriverConfig{
			Type:      DriverAnalog,
			TimeoutMS: 100,
			Attempts:  10,
		},
		Telemetry: TelemetryConfig{
			Enabled:  true,
			Interval: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Driver types.
const (
	DriverAnalog    = "analog"
	DriverSimulated = "simulated"
)

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HVPSU_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HVPSU_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HVPSU_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HVPSU_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HVPSU_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HVPSU_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HVPSU_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("HVPSU_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Driver
	if v := os.Getenv("HVPSU_DRIVER_TYPE"); v != "" {
		cfg.Driver.Type = v
	}

	// Security - JWT secret
	if v := os.Getenv("HVPSU_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// An unset secret runs the API open (bench use). A short one is
	// always a mistake.
	const minJWTSecretLength = 32
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	switch c.Driver.Type {
	case DriverAnalog, DriverSimulated:
	default:
		errs = append(errs, fmt.Sprintf("driver.type must be %q or %q", DriverAnalog, DriverSimulated))
	}
	if c.Driver.TimeoutMS < 1 {
		errs = append(errs, "driver.timeout_ms must be positive")
	}
	if c.Driver.Attempts < 1 {
		errs = append(errs, "driver.attempts must be positive")
	}

	if c.Telemetry.Enabled && c.Telemetry.Interval <= 0 {
		errs = append(errs, "telemetry.interval must be positive")
	}

	errs = append(errs, c.validatePSUs()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validatePSUs() []string {
	if len(c.PSUs) == 0 {
		return []string{"psus: at least one PSU must be configured"}
	}

	var errs []string
	seen := make(map[string]bool, len(c.PSUs))
	for i, p := range c.PSUs {
		prefix := fmt.Sprintf("psus[%d]", i)
		if p.Identity == "" {
			errs = append(errs, prefix+".identity is required")
		} else if seen[p.Identity] {
			errs = append(errs, fmt.Sprintf("%s.identity %q is duplicated", prefix, p.Identity))
		} else if strings.ContainsAny(p.Identity, "/+# ") {
			errs = append(errs, fmt.Sprintf("%s.identity %q must not contain '/', '+', '#' or spaces", prefix, p.Identity))
		}
		seen[p.Identity] = true

		if p.MaxVoltage <= 0 {
			errs = append(errs, prefix+".max_voltage must be positive")
		}
		if p.MaxCurrent <= 0 {
			errs = append(errs, prefix+".max_current must be positive")
		}
		if p.MaxInputVoltage <= 0 {
			errs = append(errs, prefix+".max_input_voltage must be positive")
		}
		if p.DeviceIndex < 0 {
			errs = append(errs, prefix+".device_index must not be negative")
		}
	}
	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDriverTimeout returns the per-transfer USB timeout as a Duration.
func (c *Config) GetDriverTimeout() time.Duration {
	return time.Duration(c.Driver.TimeoutMS) * time.Millisecond
}
