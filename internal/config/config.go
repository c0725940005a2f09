// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Scroll() ScrollConfig
	Engine() EngineConfig
	Surface() SurfaceConfig
	Session() SessionConfig
	Store() StoreConfig
	Telemetry() TelemetryConfig
	Browser() BrowserConfig

	// Scroll Setters
	SetScrollTechnique(string)
	SetScrollGains(schemas.ScrollSettings)

	// Session Setters
	SetSessionAPIBase(string)

	// Store Setters
	SetStoreType(string)
	SetStorePath(string)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserPageURL(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	ScrollCfg    ScrollConfig    `mapstructure:"scroll" yaml:"scroll"`
	EngineCfg    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	SurfaceCfg   SurfaceConfig   `mapstructure:"surface" yaml:"surface"`
	SessionCfg   SessionConfig   `mapstructure:"session" yaml:"session"`
	StoreCfg     StoreConfig     `mapstructure:"store" yaml:"store"`
	TelemetryCfg TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Scroll() ScrollConfig       { return c.ScrollCfg }
func (c *Config) Engine() EngineConfig       { return c.EngineCfg }
func (c *Config) Surface() SurfaceConfig     { return c.SurfaceCfg }
func (c *Config) Session() SessionConfig     { return c.SessionCfg }
func (c *Config) Store() StoreConfig         { return c.StoreCfg }
func (c *Config) Telemetry() TelemetryConfig { return c.TelemetryCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetScrollTechnique(t string) { c.ScrollCfg.Technique = t }
func (c *Config) SetScrollGains(s schemas.ScrollSettings) {
	c.ScrollCfg.DragGain = s.DragGain
	c.ScrollCfg.InertiaGain = s.InertiaGain
}

func (c *Config) SetSessionAPIBase(u string) { c.SessionCfg.APIBase = u }

func (c *Config) SetStoreType(t string) { c.StoreCfg.Type = t }
func (c *Config) SetStorePath(p string) { c.StoreCfg.Path = p }

func (c *Config) SetBrowserHeadless(b bool)  { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserPageURL(u string) { c.BrowserCfg.PageURL = u }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ScrollConfig selects the technique and gains a controller starts with.
type ScrollConfig struct {
	Technique   string       `mapstructure:"technique" yaml:"technique"`
	DragGain    float64      `mapstructure:"drag_gain" yaml:"drag_gain"`
	InertiaGain float64      `mapstructure:"inertia_gain" yaml:"inertia_gain"`
	Tuning      TuningConfig `mapstructure:"tuning" yaml:"tuning"`
}

// Settings returns the configured gains.
func (s ScrollConfig) Settings() schemas.ScrollSettings {
	return schemas.ScrollSettings{DragGain: s.DragGain, InertiaGain: s.InertiaGain}
}

// TuningConfig mirrors scroll.Tuning for the config file.
type TuningConfig struct {
	DecayTauMs         float64 `mapstructure:"decay_tau_ms" yaml:"decay_tau_ms"`
	FlickMinVelocity   float64 `mapstructure:"flick_min_velocity" yaml:"flick_min_velocity"`
	FlickMaxIntervalMs float64 `mapstructure:"flick_max_interval_ms" yaml:"flick_max_interval_ms"`
	MaxFrameDeltaMs    float64 `mapstructure:"max_frame_delta_ms" yaml:"max_frame_delta_ms"`
	StopVelocity       float64 `mapstructure:"stop_velocity" yaml:"stop_velocity"`
	EdgeMargin         float64 `mapstructure:"edge_margin" yaml:"edge_margin"`
	MarkerRadius       float64 `mapstructure:"marker_radius" yaml:"marker_radius"`
	StopAtScrollBounds bool    `mapstructure:"stop_at_scroll_bounds" yaml:"stop_at_scroll_bounds"`
}

// ToTuning converts to the engine's representation.
func (t TuningConfig) ToTuning() scroll.Tuning {
	return scroll.Tuning{
		DecayTauMs:         t.DecayTauMs,
		FlickMinVelocity:   t.FlickMinVelocity,
		FlickMaxIntervalMs: t.FlickMaxIntervalMs,
		MaxFrameDeltaMs:    t.MaxFrameDeltaMs,
		StopVelocity:       t.StopVelocity,
		EdgeMargin:         t.EdgeMargin,
		MarkerRadius:       t.MarkerRadius,
		StopAtScrollBounds: t.StopAtScrollBounds,
	}
}

// EngineConfig holds settings for the frame loop.
type EngineConfig struct {
	FrameInterval   time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	CommandBuffer   int           `mapstructure:"command_buffer" yaml:"command_buffer"`
	MaxSettleFrames int           `mapstructure:"max_settle_frames" yaml:"max_settle_frames"`
}

// SurfaceConfig describes the headless surface geometry.
type SurfaceConfig struct {
	Container     scroll.Rect `mapstructure:"container" yaml:"container"`
	ContentHeight float64     `mapstructure:"content_height" yaml:"content_height"`
}

// SessionConfig holds the session API client settings.
type SessionConfig struct {
	APIBase           string        `mapstructure:"api_base" yaml:"api_base"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	RateLimit         float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst         int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Type        string `mapstructure:"type" yaml:"type"`
	Path        string `mapstructure:"path" yaml:"path"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

// TelemetryConfig sizes the interaction event bus.
type TelemetryConfig struct {
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// BrowserConfig holds settings for the CDP surface.
type BrowserConfig struct {
	Headless          bool   `mapstructure:"headless" yaml:"headless"`
	PageURL           string `mapstructure:"page_url" yaml:"page_url"`
	ContainerSelector string `mapstructure:"container_selector" yaml:"container_selector"`
	ContentSelector   string `mapstructure:"content_selector" yaml:"content_selector"`
	MarkerSelector    string `mapstructure:"marker_selector" yaml:"marker_selector"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scrolllab")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Scroll --
	tuning := scroll.DefaultTuning()
	v.SetDefault("scroll.technique", string(scroll.TechniqueI))
	v.SetDefault("scroll.drag_gain", schemas.PresetStudy.DragGain)
	v.SetDefault("scroll.inertia_gain", schemas.PresetStudy.InertiaGain)
	v.SetDefault("scroll.tuning.decay_tau_ms", tuning.DecayTauMs)
	v.SetDefault("scroll.tuning.flick_min_velocity", tuning.FlickMinVelocity)
	v.SetDefault("scroll.tuning.flick_max_interval_ms", tuning.FlickMaxIntervalMs)
	v.SetDefault("scroll.tuning.max_frame_delta_ms", tuning.MaxFrameDeltaMs)
	v.SetDefault("scroll.tuning.stop_velocity", tuning.StopVelocity)
	v.SetDefault("scroll.tuning.edge_margin", tuning.EdgeMargin)
	v.SetDefault("scroll.tuning.marker_radius", tuning.MarkerRadius)
	v.SetDefault("scroll.tuning.stop_at_scroll_bounds", tuning.StopAtScrollBounds)

	// -- Engine --
	v.SetDefault("engine.frame_interval", "16ms")
	v.SetDefault("engine.command_buffer", 64)
	v.SetDefault("engine.max_settle_frames", 2000)

	// -- Surface --
	v.SetDefault("surface.container.left", 0)
	v.SetDefault("surface.container.top", 0)
	v.SetDefault("surface.container.width", 390)
	v.SetDefault("surface.container.height", 600)
	v.SetDefault("surface.content_height", 3000)

	// -- Session --
	v.SetDefault("session.api_base", "http://localhost:4500")
	v.SetDefault("session.request_timeout", "10s")
	v.SetDefault("session.heartbeat_interval", "60s")
	v.SetDefault("session.rate_limit", 5.0)
	v.SetDefault("session.rate_burst", 2)

	// -- Store --
	v.SetDefault("store.type", "file")
	v.SetDefault("store.path", "~/.scrolllab/store")
	v.SetDefault("store.database_url", "")

	// -- Telemetry --
	v.SetDefault("telemetry.buffer_size", 64)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.page_url", "")
	v.SetDefault("browser.container_selector", "#scroll-container")
	v.SetDefault("browser.content_selector", "#scroll-content")
	v.SetDefault("browser.marker_selector", "#scroll-marker")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials come from the environment rather than the config file.
	_ = v.BindEnv("store.database_url", "SCROLLLAB_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.ScrollCfg.Validate(); err != nil {
		return fmt.Errorf("scroll configuration invalid: %w", err)
	}
	if c.EngineCfg.FrameInterval <= 0 {
		return fmt.Errorf("engine.frame_interval must be a positive duration")
	}
	if c.EngineCfg.CommandBuffer <= 0 {
		return fmt.Errorf("engine.command_buffer must be a positive integer")
	}
	if c.EngineCfg.MaxSettleFrames <= 0 {
		return fmt.Errorf("engine.max_settle_frames must be a positive integer")
	}
	if c.TelemetryCfg.BufferSize < 0 {
		return fmt.Errorf("telemetry.buffer_size must not be negative")
	}
	if err := c.StoreCfg.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the technique, gains and tuning values.
func (s *ScrollConfig) Validate() error {
	if _, err := scroll.ParseTechnique(s.Technique); err != nil {
		return err
	}
	for name, g := range map[string]float64{"drag_gain": s.DragGain, "inertia_gain": s.InertiaGain} {
		if g < schemas.MinGain || g > schemas.MaxGain {
			return fmt.Errorf("%s must be between %.1f and %.1f", name, schemas.MinGain, schemas.MaxGain)
		}
	}
	return s.Tuning.Validate()
}

// Validate checks that every threshold is usable.
func (t *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"decay_tau_ms", t.DecayTauMs},
		{"flick_min_velocity", t.FlickMinVelocity},
		{"flick_max_interval_ms", t.FlickMaxIntervalMs},
		{"max_frame_delta_ms", t.MaxFrameDeltaMs},
		{"stop_velocity", t.StopVelocity},
		{"marker_radius", t.MarkerRadius},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("tuning.%s must be positive", p.name)
		}
	}
	if t.EdgeMargin < 0 {
		return fmt.Errorf("tuning.edge_margin must not be negative")
	}
	return nil
}

// Validate checks the store backend selection.
func (s *StoreConfig) Validate() error {
	switch s.Type {
	case "file":
		if s.Path == "" {
			return fmt.Errorf("path is required for the file store")
		}
	case "postgres":
		if s.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the postgres store (hint: check SCROLLLAB_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown store type %q", s.Type)
	}
	return nil
}
