package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/deskclock/internal/validation"
)

// Config holds device configuration loaded from YAML and env.
type Config struct {
	Device string

	StatusEnabled   bool
	StatusPort      string
	ShutdownTimeout time.Duration

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherLocation   string
	WeatherAPITimeout time.Duration
	PollDeadline      time.Duration // whole poll, retries included

	RetryAttempts           int
	RetryBaseDelay          time.Duration
	RetryMaxDelay           time.Duration
	BreakerFailureThreshold int
	BreakerTimeout          time.Duration
	RefreshRPS              float64
	RefreshBurst            int

	HealthWindow       time.Duration
	DegradedFailurePct int
	OverloadDenials    int

	ClockPeriod       time.Duration
	RotatePeriod      time.Duration
	WeatherPeriod     time.Duration
	NetworkPeriod     time.Duration
	LoopDelay         time.Duration
	IconSettle        time.Duration
	AnimationDuration time.Duration
	AnimationStep     time.Duration

	ProbeHost     string
	ProbeTimeout  time.Duration
	ProbeFallback string // host:port dialled when ping cannot open a socket

	NTPServer     string
	NTPTimeout    time.Duration
	FallbackEpoch int64
	UTCOffset     time.Duration

	Panel PanelConfig

	CacheBackend     string // "none" or "memcached"
	MemcachedAddrs   string
	MemcachedTimeout time.Duration
	MirrorTTL        time.Duration
}

// PanelConfig is the display wiring. Driver "none" renders headless.
type PanelConfig struct {
	Driver      string
	SPIPort     string
	FrequencyHz int64
	DCPin       string
	RSTPin      string
	BLPin       string
	Width       int
	Height      int
	XOffset     int
	YOffset     int
	Rotation    int
	Invert      bool
}

type fileConfig struct {
	Device string `yaml:"device"`

	Server struct {
		Enabled *bool  `yaml:"enabled"`
		Port    string `yaml:"port"`
	} `yaml:"server"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	WeatherAPI struct {
		URL      string `yaml:"url"`
		Location string `yaml:"location"`
		Timeout      string `yaml:"timeout"`
		PollDeadline string `yaml:"poll_deadline"`
	} `yaml:"weather_api"`

	Reliability struct {
		RetryMaxAttempts        int     `yaml:"retry_max_attempts"`
		RetryBaseDelay          string  `yaml:"retry_base_delay"`
		RetryMaxDelay           string  `yaml:"retry_max_delay"`
		BreakerFailureThreshold int     `yaml:"breaker_failure_threshold"`
		BreakerTimeout          string  `yaml:"breaker_timeout"`
		RefreshRPS              float64 `yaml:"refresh_rps"`
		RefreshBurst            int     `yaml:"refresh_burst"`
	} `yaml:"reliability"`

	Health struct {
		Window             string `yaml:"window"`
		DegradedFailurePct int    `yaml:"degraded_failure_pct"`
		OverloadDenials    int    `yaml:"overload_denials"`
	} `yaml:"health"`

	Schedule struct {
		Clock      string `yaml:"clock"`
		Rotate     string `yaml:"rotate"`
		Weather    string `yaml:"weather"`
		Network    string `yaml:"network"`
		LoopDelay  string `yaml:"loop_delay"`
		IconSettle string `yaml:"icon_settle"`
		Animation  string `yaml:"animation"`
		AnimStep   string `yaml:"animation_step"`
	} `yaml:"schedule"`

	Network struct {
		ProbeHost    string `yaml:"probe_host"`
		ProbeTimeout string `yaml:"probe_timeout"`
		FallbackAddr string `yaml:"fallback_addr"`
	} `yaml:"network"`

	Clock struct {
		NTPServer     string `yaml:"ntp_server"`
		NTPTimeout    string `yaml:"ntp_timeout"`
		FallbackEpoch int64  `yaml:"fallback_epoch"`
		UTCOffset     string `yaml:"utc_offset"`
	} `yaml:"clock"`

	Panel struct {
		Driver   string `yaml:"driver"`
		SPIPort  string `yaml:"spi_port"`
		SPIHz    int64  `yaml:"spi_hz"`
		DCPin    string `yaml:"dc_pin"`
		RSTPin   string `yaml:"rst_pin"`
		BLPin    string `yaml:"bl_pin"`
		Width    int    `yaml:"width"`
		Height   int    `yaml:"height"`
		XOffset  int    `yaml:"x_offset"`
		YOffset  int    `yaml:"y_offset"`
		Rotation *int   `yaml:"rotation"`
		Invert   *bool  `yaml:"invert"`
	} `yaml:"panel"`

	Cache struct {
		Backend   string `yaml:"backend"`
		MirrorTTL string `yaml:"mirror_ttl"`
		Memcached struct {
			Addrs   string `yaml:"addrs"`
			Timeout string `yaml:"timeout"`
		} `yaml:"memcached"`
	} `yaml:"cache"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Defaults for an IST desk panel with a 320x240 landscape ST7789.
const (
	DefaultFallbackEpoch = 1739009400 // 2025-02-08 15:00 IST
	DefaultUTCOffset     = 5*time.Hour + 30*time.Minute
	DefaultNTPServer     = "pool.ntp.org"
	DefaultWeatherAPIURL = "https://api.weatherapi.com/v1/current.json"
)

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// API key comes from WEATHER_API_KEY env or secrets file. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	cfg.Device = strings.TrimSpace(fc.Device)
	if cfg.Device == "" {
		cfg.Device = "deskclock"
	}

	cfg.StatusEnabled = true
	if fc.Server.Enabled != nil {
		cfg.StatusEnabled = *fc.Server.Enabled
	}
	cfg.StatusPort = fc.Server.Port
	if cfg.StatusPort == "" {
		cfg.StatusPort = "8080"
	}
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 5*time.Second)

	cfg.WeatherAPIKey, err = loadAPIKey(cwd)
	if err != nil {
		return nil, err
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = DefaultWeatherAPIURL
	}
	cfg.WeatherLocation = strings.TrimSpace(os.Getenv("WEATHER_LOCATION"))
	if cfg.WeatherLocation == "" {
		cfg.WeatherLocation = fc.WeatherAPI.Location
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.PollDeadline = parseDuration(fc.WeatherAPI.PollDeadline, cfg.WeatherAPITimeout)

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 200*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 3
	}
	cfg.BreakerTimeout = parseDuration(fc.Reliability.BreakerTimeout, 30*time.Minute)
	cfg.RefreshRPS = fc.Reliability.RefreshRPS
	if cfg.RefreshRPS <= 0 {
		cfg.RefreshRPS = 0.1
	}
	cfg.RefreshBurst = fc.Reliability.RefreshBurst
	if cfg.RefreshBurst <= 0 {
		cfg.RefreshBurst = 1
	}

	cfg.HealthWindow = parseDuration(fc.Health.Window, time.Hour)
	cfg.DegradedFailurePct = fc.Health.DegradedFailurePct
	if cfg.DegradedFailurePct <= 0 {
		cfg.DegradedFailurePct = 50
	}
	cfg.OverloadDenials = fc.Health.OverloadDenials
	if cfg.OverloadDenials <= 0 {
		cfg.OverloadDenials = 20
	}

	cfg.ClockPeriod = parseDuration(fc.Schedule.Clock, time.Second)
	cfg.RotatePeriod = parseDuration(fc.Schedule.Rotate, 7*time.Second)
	cfg.WeatherPeriod = parseDuration(fc.Schedule.Weather, 10*time.Minute)
	cfg.NetworkPeriod = parseDuration(fc.Schedule.Network, 2*time.Second)
	cfg.LoopDelay = parseDuration(fc.Schedule.LoopDelay, 5*time.Millisecond)
	cfg.IconSettle = parseDuration(fc.Schedule.IconSettle, 30*time.Millisecond)
	cfg.AnimationDuration = parseDuration(fc.Schedule.Animation, 900*time.Millisecond)
	cfg.AnimationStep = parseDurationOrZero(fc.Schedule.AnimStep, 100*time.Millisecond)
	if cfg.AnimationStep < 0 {
		cfg.AnimationStep = 0
	}

	cfg.ProbeHost = strings.TrimSpace(fc.Network.ProbeHost)
	if cfg.ProbeHost == "" {
		cfg.ProbeHost = "1.1.1.1"
	}
	cfg.ProbeTimeout = parseDuration(fc.Network.ProbeTimeout, time.Second)
	cfg.ProbeFallback = strings.TrimSpace(fc.Network.FallbackAddr)

	cfg.NTPServer = strings.TrimSpace(fc.Clock.NTPServer)
	if cfg.NTPServer == "" {
		cfg.NTPServer = DefaultNTPServer
	}
	cfg.NTPTimeout = parseDuration(fc.Clock.NTPTimeout, 2*time.Second)
	cfg.FallbackEpoch = fc.Clock.FallbackEpoch
	if cfg.FallbackEpoch <= 0 {
		cfg.FallbackEpoch = DefaultFallbackEpoch
	}
	cfg.UTCOffset = parseDurationOrZero(fc.Clock.UTCOffset, DefaultUTCOffset)

	cfg.Panel = loadPanel(fc)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "none"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MirrorTTL = parseDuration(fc.Cache.MirrorTTL, time.Hour)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAPIKey(cwd string) (string, error) {
	if key := os.Getenv("WEATHER_API_KEY"); key != "" {
		return key, nil
	}
	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	secretsData, err := os.ReadFile(secretsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(secretsData, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return sec.WeatherAPIKey, nil
}

func loadPanel(fc fileConfig) PanelConfig {
	p := PanelConfig{
		Driver:      strings.TrimSpace(strings.ToLower(fc.Panel.Driver)),
		SPIPort:     fc.Panel.SPIPort,
		FrequencyHz: fc.Panel.SPIHz,
		DCPin:       fc.Panel.DCPin,
		RSTPin:      fc.Panel.RSTPin,
		BLPin:       fc.Panel.BLPin,
		Width:       fc.Panel.Width,
		Height:      fc.Panel.Height,
		XOffset:     fc.Panel.XOffset,
		YOffset:     fc.Panel.YOffset,
		Rotation:    1,
		Invert:      true,
	}
	if p.Driver == "" {
		p.Driver = "none"
	}
	if p.FrequencyHz <= 0 {
		p.FrequencyHz = 40_000_000
	}
	if p.Width <= 0 {
		p.Width = 320
	}
	if p.Height <= 0 {
		p.Height = 240
	}
	if fc.Panel.Rotation != nil {
		p.Rotation = *fc.Panel.Rotation
	}
	if fc.Panel.Invert != nil {
		p.Invert = *fc.Panel.Invert
	}
	return p
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	if err := validation.ValidateDeviceName(cfg.Device); err != nil {
		return fmt.Errorf("device %q: %w", cfg.Device, err)
	}
	loc, err := validation.ValidateLocation(cfg.WeatherLocation, 2, 100)
	if err != nil {
		return fmt.Errorf("weather_api.location: %w", err)
	}
	cfg.WeatherLocation = loc
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.WeatherAPITimeout >= cfg.WeatherPeriod {
		return fmt.Errorf("weather_api.timeout (%v) must be shorter than schedule.weather (%v)", cfg.WeatherAPITimeout, cfg.WeatherPeriod)
	}
	if cfg.PollDeadline >= cfg.WeatherPeriod {
		return fmt.Errorf("weather_api.poll_deadline (%v) must be shorter than schedule.weather (%v)", cfg.PollDeadline, cfg.WeatherPeriod)
	}
	if cfg.ProbeFallback != "" {
		if _, _, err := net.SplitHostPort(cfg.ProbeFallback); err != nil {
			return fmt.Errorf("network.fallback_addr: %w", err)
		}
	}
	if cfg.LoopDelay >= cfg.ClockPeriod {
		return fmt.Errorf("schedule.loop_delay (%v) must be shorter than schedule.clock (%v)", cfg.LoopDelay, cfg.ClockPeriod)
	}
	for name, d := range map[string]time.Duration{
		"schedule.clock":   cfg.ClockPeriod,
		"schedule.rotate":  cfg.RotatePeriod,
		"schedule.weather": cfg.WeatherPeriod,
		"schedule.network": cfg.NetworkPeriod,
	} {
		if d > time.Duration(1<<31)*time.Millisecond {
			return fmt.Errorf("%s (%v) exceeds half the millisecond counter range", name, d)
		}
	}
	if cfg.DegradedFailurePct > 100 {
		return fmt.Errorf("health.degraded_failure_pct must be 1-100, got %d", cfg.DegradedFailurePct)
	}
	if cfg.UTCOffset < -14*time.Hour || cfg.UTCOffset > 14*time.Hour {
		return fmt.Errorf("clock.utc_offset %v out of range", cfg.UTCOffset)
	}
	switch cfg.CacheBackend {
	case "none", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be none or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.Panel.Driver {
	case "none":
	case "st7789":
		if cfg.Panel.SPIPort == "" || cfg.Panel.DCPin == "" || cfg.Panel.RSTPin == "" {
			return fmt.Errorf("panel.spi_port, panel.dc_pin and panel.rst_pin are required for st7789")
		}
	default:
		return fmt.Errorf("panel.driver must be none or st7789, got %q", cfg.Panel.Driver)
	}
	if cfg.Panel.Rotation < 0 || cfg.Panel.Rotation > 3 {
		return fmt.Errorf("panel.rotation must be 0-3, got %d", cfg.Panel.Rotation)
	}
	return nil
}
