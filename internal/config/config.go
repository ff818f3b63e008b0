// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package config loads and validates ServerSentry's root YAML configuration
// document (spec.md §6), generalizing the teacher's per-plugin-type flag
// exposure (config.New(pluginType)) to a per-subcommand one
// (config.New(cmd CommandType, args []string)).
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Updated via build-time ldflags; a placeholder keeps non-Makefile builds
// from reporting an empty version string.
var version = "x.y.z"

// ErrVersionRequested indicates the user passed -version.
var ErrVersionRequested = errors.New("version information requested")

// Version renders the application name and version string for -version
// output.
func Version() string {
	return fmt.Sprintf("%s %s (%s)", myAppName, version, myAppURL)
}

// PluginThreshold is the per-plugin threshold configuration document shape
// (spec.md §6 "cpu_threshold, memory_warning_threshold, ...").
type PluginThreshold struct {
	Warning        float64 `yaml:"warning"`
	Critical       float64 `yaml:"critical"`
	Direction      string  `yaml:"direction"` // "greater_is_bad" (default) or "less_is_bad"
	HysteresisBand float64 `yaml:"hysteresis_band"`
	MinConsecutive int     `yaml:"min_consecutive"`
}

// AnomalyOverride is a per-plugin override of the anomaly_detection
// defaults (spec.md §6 "per-anomaly configuration overrides defaults").
type AnomalyOverride struct {
	Enabled              *bool    `yaml:"enabled"`
	Sensitivity          *float64 `yaml:"sensitivity"`
	Window               *int     `yaml:"window"`
	MinPoints            *int     `yaml:"min_points"`
	DetectTrends         *bool    `yaml:"detect_trends"`
	DetectSpikes         *bool    `yaml:"detect_spikes"`
	ConsecutiveThreshold *int     `yaml:"consecutive_threshold"`
	CooldownSeconds      *int     `yaml:"cooldown_seconds"`
}

// SystemConfig is the "system.*" key group (spec.md §6).
type SystemConfig struct {
	Enabled       bool   `yaml:"enabled"`
	LogLevel      string `yaml:"log_level"`
	CheckInterval int    `yaml:"check_interval"`
	CheckTimeout  int    `yaml:"check_timeout"`
	StateDir      string `yaml:"state_dir"`
	LogDir        string `yaml:"log_dir"`
	PIDFile       string `yaml:"pid_file"`
}

// PluginsConfig is the "plugins.*" key group.
type PluginsConfig struct {
	Enabled    []string                   `yaml:"enabled"`
	Thresholds map[string]PluginThreshold `yaml:"thresholds"`

	// Settings carries each plugin's own configuration payload (e.g. disk's
	// "mount", process's "names") straight through to Plugin.Configure,
	// independent of the Threshold Evaluator settings above.
	Settings map[string]map[string]any `yaml:"settings"`
}

// TeamsConfig is "notifications.teams.*".
type TeamsConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// SlackConfig is "notifications.slack.*".
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig is "notifications.discord.*".
type DiscordConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig is "notifications.webhook.*" (the generic JSON channel).
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// EmailConfig is "notifications.email.*" (spec.md §6 "from, to,
// smtp_server, smtp_port").
type EmailConfig struct {
	From       string `yaml:"from"`
	To         string `yaml:"to"`
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
}

// NotificationsConfig is the "notifications.*" key group.
type NotificationsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Channels        []string      `yaml:"channels"`
	CooldownSeconds int           `yaml:"cooldown_seconds"`
	Teams           TeamsConfig   `yaml:"teams"`
	Slack           SlackConfig   `yaml:"slack"`
	Discord         DiscordConfig `yaml:"discord"`
	Email           EmailConfig   `yaml:"email"`
	Webhook         WebhookConfig `yaml:"webhook"`
}

// AnomalyDetectionConfig is the "anomaly_detection.*" key group.
type AnomalyDetectionConfig struct {
	Enabled            bool                       `yaml:"enabled"`
	DefaultSensitivity float64                     `yaml:"default_sensitivity"`
	DataRetentionDays  int                         `yaml:"data_retention_days"`
	Overrides          map[string]AnomalyOverride  `yaml:"overrides"`
}

// CompositeChecksConfig is the "composite_checks.*" key group.
type CompositeChecksConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ConfigDirectory string `yaml:"config_directory"`
}

// Config is the fully parsed, defaulted and validated root configuration
// document.
type Config struct {
	System           SystemConfig           `yaml:"system"`
	Plugins          PluginsConfig          `yaml:"plugins"`
	Notifications    NotificationsConfig    `yaml:"notifications"`
	AnomalyDetection AnomalyDetectionConfig `yaml:"anomaly_detection"`
	CompositeChecks  CompositeChecksConfig  `yaml:"composite_checks"`

	// ConfigPath is the resolved path the document was (or would have been)
	// loaded from; not itself part of the document.
	ConfigPath string `yaml:"-"`

	// Command is the CLI subcommand this Config was built for.
	Command CommandType `yaml:"-"`

	// PluginFilter restricts a one-shot `check` to a single plugin id; set
	// from the positional argument, empty means "all enabled plugins".
	PluginFilter string `yaml:"-"`

	// Log is the process-wide logger, configured by setupLogging.
	Log zerolog.Logger `yaml:"-"`
}

func applyDefaults(c *Config) {
	if c.System.LogLevel == "" {
		c.System.LogLevel = defaultLogLevel
	}
	if c.System.CheckInterval == 0 {
		c.System.CheckInterval = defaultCheckInterval
	}
	if c.System.CheckTimeout == 0 {
		c.System.CheckTimeout = defaultCheckTimeout
	}
	if c.System.StateDir == "" {
		c.System.StateDir = defaultStateDir
	}
	if c.System.LogDir == "" {
		c.System.LogDir = defaultLogDir
	}
	if c.System.PIDFile == "" {
		c.System.PIDFile = defaultPIDFile
	}
	if c.Notifications.CooldownSeconds == 0 {
		c.Notifications.CooldownSeconds = defaultDispatchCooldown
	}
	if c.AnomalyDetection.DefaultSensitivity == 0 {
		c.AnomalyDetection.DefaultSensitivity = defaultAnomalySensitivity
	}
	if c.AnomalyDetection.DataRetentionDays == 0 {
		c.AnomalyDetection.DataRetentionDays = defaultDataRetentionDays
	}
	if c.CompositeChecks.ConfigDirectory == "" {
		c.CompositeChecks.ConfigDirectory = defaultCompositeConfigDir
	}
}

// loadDocument reads and unmarshals the YAML document at path into c. A
// missing file is not an error (spec.md §6 keys all have documented
// defaults); every other read or parse failure is fatal per spec.md §7
// "(1) for the root configuration at startup".
func loadDocument(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// New parses CLI flags for cmd, loads the root YAML document, applies
// defaults, validates the result and configures logging — mirroring the
// teacher's config.New(pluginType) entrypoint shape.
func New(cmd CommandType, args []string) (*Config, error) {
	fs := flag.NewFlagSet(commandLabel(cmd), flag.ContinueOnError)

	configPath := fs.String(ConfigFlagLong, defaultConfigPath, configFlagHelp)
	logLevelOverride := fs.String(LogLevelFlagLong, "", logLevelFlagHelp)
	var checkIntervalOverride int
	if cmd.Check || cmd.Start {
		fs.IntVar(&checkIntervalOverride, CheckIntervalFlagLong, 0, checkIntervalFlagHelp)
	}
	showVersion := fs.Bool(VersionFlagLong, false, versionFlagHelp)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}
	if *showVersion {
		return nil, ErrVersionRequested
	}

	c := &Config{Command: cmd, ConfigPath: *configPath}
	if err := loadDocument(*configPath, c); err != nil {
		return nil, err
	}
	applyDefaults(c)

	if *logLevelOverride != "" {
		c.System.LogLevel = *logLevelOverride
	}
	if checkIntervalOverride > 0 {
		c.System.CheckInterval = checkIntervalOverride
	}
	if cmd.Check && fs.NArg() > 0 {
		c.PluginFilter = fs.Arg(0)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := c.setupLogging(); err != nil {
		return nil, err
	}

	return c, nil
}
