// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	applog "caraudio/internal/log"
	"caraudio/internal/routing"
)

// EnvPrefix prefixes every environment override, e.g.
// CARAUDIO_FOCUS_RESPONSE_TIMEOUT=2s.
const EnvPrefix = "CARAUDIO"

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug       bool            `yaml:"debug" envconfig:"DEBUG"`               // Enable debug mode (console logging).
	LogLevel    string          `yaml:"log_level" envconfig:"LOG_LEVEL"`       // Logging level ("debug", "info", "warn", "error").
	PackageName string          `yaml:"package_name" envconfig:"PACKAGE_NAME"` // Package the arbiter registers its sentinels under.
	Focus       FocusConfig     `yaml:"focus"`
	Routing     RoutingConfig   `yaml:"routing"`
	HAL         HALConfig       `yaml:"hal"`
	Transport   TransportConfig `yaml:"transport"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}

// FocusConfig holds the arbiter timing and radio behaviour.
type FocusConfig struct {
	ResponseTimeout time.Duration `yaml:"response_timeout" envconfig:"RESPONSE_TIMEOUT"` // Wait for a vehicle answer before forcing LOSS.
	ReleaseDelay    time.Duration `yaml:"release_delay" envconfig:"RELEASE_DELAY"`       // Debounce before releasing vehicle focus.
	RadioDuck       string        `yaml:"radio_duck" envconfig:"RADIO_DUCK"`             // "stop" or "mix".
}

// RoutingConfig holds routing policy text per audio hardware variant.
type RoutingConfig struct {
	Policies map[int]string `yaml:"policies" ignored:"true"`
	Override string         `yaml:"override" envconfig:"OVERRIDE"` // Used for every variant when set.
}

// HALConfig configures the simulated vehicle.
type HALConfig struct {
	FocusSupported   bool          `yaml:"focus_supported" envconfig:"FOCUS_SUPPORTED"`
	RadioExternal    bool          `yaml:"radio_external" envconfig:"RADIO_EXTERNAL"`
	HwVariant        int           `yaml:"hw_variant" envconfig:"HW_VARIANT"`
	Latency          time.Duration `yaml:"latency" envconfig:"LATENCY"`
	AvailableStreams uint32        `yaml:"available_streams" envconfig:"AVAILABLE_STREAMS"`
	DropResponses    bool          `yaml:"drop_responses" envconfig:"DROP_RESPONSES"`
}

// TransportConfig holds settings related to publishing arbiter status.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled" envconfig:"WS_ENABLED"`
	WSAddr           string        `yaml:"ws_addr" envconfig:"WS_ADDR"`                     // Listen address of the status hub.
	WSPingInterval   time.Duration `yaml:"ws_ping_interval" envconfig:"WS_PING_INTERVAL"`   // Client ping and sweep period.
	WSClientTimeout  time.Duration `yaml:"ws_client_timeout" envconfig:"WS_CLIENT_TIMEOUT"` // Silence before a client is dropped.
	UDPEnabled       bool          `yaml:"udp_enabled" envconfig:"UDP_ENABLED"`
	UDPTargetAddress string        `yaml:"udp_target_address" envconfig:"UDP_TARGET_ADDRESS"` // e.g. "127.0.0.1:9090".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval" envconfig:"UDP_SEND_INTERVAL"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it searches "caraudio.yaml" and "config.yaml" in the working
// directory, and uses the built-in defaults when neither exists. Environment
// overrides are applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range []string{"caraudio.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("configuration: loaded %s", path)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides overwrites every field whose CARAUDIO_* variable is set.
func (c *Config) applyEnvOverrides() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not a known level", c.LogLevel))
	}
	if c.PackageName == "" {
		errs = append(errs, errors.New("package_name must not be empty"))
	}

	// Focus
	if t := c.Focus.ResponseTimeout; t < MinResponseTimeout || t > MaxResponseTimeout {
		errs = append(errs, fmt.Errorf("focus.response_timeout %s out of range [%s, %s]",
			t, MinResponseTimeout, MaxResponseTimeout))
	}
	if c.Focus.ReleaseDelay < 0 {
		errs = append(errs, errors.New("focus.release_delay must not be negative"))
	}
	if _, err := c.RadioDuckPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("focus.radio_duck: %w", err))
	}

	// Routing
	for variant, text := range c.RoutingTable() {
		if _, err := routing.Parse(text); err != nil {
			errs = append(errs, fmt.Errorf("routing policy for variant %d: %w", variant, err))
		}
	}

	// HAL
	if c.HAL.AvailableStreams == 0 {
		errs = append(errs, errors.New("hal.available_streams must grant at least one stream"))
	}
	if c.HAL.Latency < 0 {
		errs = append(errs, errors.New("hal.latency must not be negative"))
	}

	// Transport
	if c.Transport.WSEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.WSAddr); err != nil {
			errs = append(errs, fmt.Errorf("transport.ws_addr %q: %w", c.Transport.WSAddr, err))
		}
	}
	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			errs = append(errs, fmt.Errorf("transport.udp_target_address %q: %w", c.Transport.UDPTargetAddress, err))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	return errors.Join(errs...)
}
