package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const psusYAML = `
psus:
  - identity: heinzinger
    max_voltage: 30000
    max_current: 2.0
    max_input_voltage: 10
    has_relay: false
    device_index: 0
  - identity: fug
    max_voltage: 50000
    max_current: 0.5
    max_input_voltage: 10
    has_relay: true
    device_index: 1
    usb_path: "1-1.3"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func validPSUs() []PSUConfig {
	return []PSUConfig{
		{Identity: "heinzinger", MaxVoltage: 30000, MaxCurrent: 2, MaxInputVoltage: 10},
		{Identity: "fug", MaxVoltage: 50000, MaxCurrent: 0.5, MaxInputVoltage: 10, HasRelay: true, DeviceIndex: 1},
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
service:
  id: "lab-3"
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  port: 5001
driver:
  type: simulated
telemetry:
  interval: 2s
` + psusYAML

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "lab-3" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "lab-3")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Driver.Type != DriverSimulated {
		t.Errorf("Driver.Type = %q, want %q", cfg.Driver.Type, DriverSimulated)
	}
	if cfg.Telemetry.Interval != 2*time.Second {
		t.Errorf("Telemetry.Interval = %v, want 2s", cfg.Telemetry.Interval)
	}

	if len(cfg.PSUs) != 2 {
		t.Fatalf("len(PSUs) = %d, want 2", len(cfg.PSUs))
	}
	fug := cfg.PSUs[1]
	if fug.Identity != "fug" || fug.MaxVoltage != 50000 || fug.MaxCurrent != 0.5 || !fug.HasRelay || fug.DeviceIndex != 1 {
		t.Errorf("PSUs[1] = %+v", fug)
	}
	if fug.USBPath != "1-1.3" {
		t.Errorf("PSUs[1].USBPath = %q, want %q", fug.USBPath, "1-1.3")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, psusYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 5001 {
		t.Errorf("API.Port = %d, want 5001", cfg.API.Port)
	}
	if cfg.Driver.Type != DriverAnalog {
		t.Errorf("Driver.Type = %q, want %q", cfg.Driver.Type, DriverAnalog)
	}
	if got := cfg.GetDriverTimeout(); got != 100*time.Millisecond {
		t.Errorf("GetDriverTimeout() = %v, want 100ms", got)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
	if cfg.Security.JWT.Secret != "" {
		t.Error("JWT secret should default to empty")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
service:
  id: ""
api:
  port: 5001
` + psusYAML

	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty service.id, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HVPSU_DATABASE_PATH", "/var/lib/hvpsu/audit.db")
	t.Setenv("HVPSU_API_PORT", "6001")
	t.Setenv("HVPSU_DRIVER_TYPE", "simulated")
	t.Setenv("HVPSU_JWT_SECRET", "env-secret-key-at-least-32-characters")

	cfg, err := Load(writeConfig(t, psusYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/hvpsu/audit.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.API.Port != 6001 {
		t.Errorf("API.Port = %d, want 6001", cfg.API.Port)
	}
	if cfg.Driver.Type != DriverSimulated {
		t.Errorf("Driver.Type = %q", cfg.Driver.Type)
	}
	if cfg.Security.JWT.Secret != "env-secret-key-at-least-32-characters" {
		t.Errorf("JWT secret not overridden")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.PSUs = validPSUs()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:   "valid with JWT secret",
			mutate: func(c *Config) { c.Security.JWT.Secret = "test-secret-key-at-least-32-chars!" },
		},
		{
			name:    "short JWT secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "security.jwt.secret",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Driver.Type = "gpib" },
			wantErr: "driver.type",
		},
		{
			name:    "no PSUs",
			mutate:  func(c *Config) { c.PSUs = nil },
			wantErr: "at least one PSU",
		},
		{
			name:    "duplicate identity",
			mutate:  func(c *Config) { c.PSUs[1].Identity = "heinzinger" },
			wantErr: "duplicated",
		},
		{
			name:    "identity with topic wildcard",
			mutate:  func(c *Config) { c.PSUs[0].Identity = "hz/1" },
			wantErr: "must not contain",
		},
		{
			name:    "zero max voltage",
			mutate:  func(c *Config) { c.PSUs[0].MaxVoltage = 0 },
			wantErr: "psus[0].max_voltage",
		},
		{
			name:    "negative device index",
			mutate:  func(c *Config) { c.PSUs[1].DeviceIndex = -1 },
			wantErr: "psus[1].device_index",
		},
		{
			name:    "database enabled without path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name: "database disabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = false
				c.Database.Path = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.API.Port = 0
	cfg.MQTT.QoS = 9

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"api.port", "mqtt.qos", "psus"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := &Config{API: APIConfig{Timeouts: APITimeoutConfig{Read: 10, Write: 20, Idle: 30}}}

	if got := cfg.GetReadTimeout(); got != 10*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 10s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 20*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 20s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 30*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 30s", got)
	}
}
