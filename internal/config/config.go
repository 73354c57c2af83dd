package config

import (
	"time"

	"caraudio/internal/audio"
	"caraudio/internal/hal"
	"caraudio/internal/routing"
)

// Defaults applied before the YAML file and environment are read.
const (
	DefaultLogLevel        = "info"
	DefaultPackageName     = audio.DefaultPackageName
	DefaultResponseTimeout = audio.DefaultResponseTimeout
	DefaultReleaseDelay    = audio.DefaultReleaseDelay
	DefaultRadioDuck       = "stop"

	DefaultHwVariant        = 0
	DefaultHalLatency       = 20 * time.Millisecond
	DefaultAvailableStreams = 0x3 // two physical streams

	DefaultWSAddr        = ":8080"
	DefaultPingInterval  = 10 * time.Second
	DefaultClientTimeout = 30 * time.Second
	DefaultUDPAddr       = "127.0.0.1:9090"
	DefaultUDPInterval   = 100 * time.Millisecond

	// Bounds checked by Validate.
	MinResponseTimeout = 10 * time.Millisecond
	MaxResponseTimeout = 10 * time.Second
)

// NewConfig returns a Config holding the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel:    DefaultLogLevel,
		PackageName: DefaultPackageName,
		Focus: FocusConfig{
			ResponseTimeout: DefaultResponseTimeout,
			ReleaseDelay:    DefaultReleaseDelay,
			RadioDuck:       DefaultRadioDuck,
		},
		Routing: RoutingConfig{
			Policies: map[int]string{0: routing.DefaultPolicy},
		},
		HAL: HALConfig{
			FocusSupported:   true,
			RadioExternal:    true,
			HwVariant:        DefaultHwVariant,
			Latency:          DefaultHalLatency,
			AvailableStreams: DefaultAvailableStreams,
		},
		Transport: TransportConfig{
			WSEnabled:        true,
			WSAddr:           DefaultWSAddr,
			WSPingInterval:   DefaultPingInterval,
			WSClientTimeout:  DefaultClientTimeout,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPAddr,
			UDPSendInterval:  DefaultUDPInterval,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// RoutingTable returns the per-variant policy table. A non-empty override
// applies to every hardware variant.
func (c *Config) RoutingTable() routing.Table {
	if c.Routing.Override != "" {
		return routing.Table{0: c.Routing.Override}
	}
	t := make(routing.Table, len(c.Routing.Policies))
	for v, text := range c.Routing.Policies {
		t[v] = text
	}
	return t
}

// RadioDuckPolicy returns the parsed focus.radio_duck setting.
func (c *Config) RadioDuckPolicy() (audio.RadioDuckPolicy, error) {
	return audio.ParseRadioDuckPolicy(c.Focus.RadioDuck)
}

// SimulatorConfig returns the settings of the simulated vehicle HAL.
func (c *Config) SimulatorConfig() hal.SimulatorConfig {
	return hal.SimulatorConfig{
		FocusSupported:   c.HAL.FocusSupported,
		RadioExternal:    c.HAL.RadioExternal,
		HwVariant:        c.HAL.HwVariant,
		Latency:          c.HAL.Latency,
		AvailableStreams: c.HAL.AvailableStreams,
		DropResponses:    c.HAL.DropResponses,
	}
}
