// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package config

import (
	"fmt"

	"github.com/azzuwayed/serversentry/internal/anomaly"
	"github.com/azzuwayed/serversentry/internal/threshold"
)

// Threshold converts the configured PluginThreshold for pluginID into a
// threshold.Config, defaulting min_consecutive to 1 and direction to
// greater-is-bad.
func (c Config) Threshold(pluginID string) threshold.Config {
	pt := c.Plugins.Thresholds[pluginID]
	dir := threshold.GreaterIsBad
	if pt.Direction == "less_is_bad" {
		dir = threshold.LessIsBad
	}
	minConsecutive := pt.MinConsecutive
	if minConsecutive < 1 {
		minConsecutive = 1
	}
	return threshold.Config{
		Warning:        pt.Warning,
		Critical:       pt.Critical,
		Direction:      dir,
		HysteresisBand: pt.HysteresisBand,
		MinConsecutive: minConsecutive,
	}
}

// Anomaly builds the effective anomaly.Config for pluginID: the
// anomaly_detection defaults, overridden field-by-field by
// anomaly_detection.overrides.<pluginID> (spec.md §6 "per-anomaly
// configuration overrides defaults").
func (c Config) Anomaly(pluginID string) anomaly.Config {
	cfg := anomaly.DefaultConfig()
	cfg.Enabled = c.AnomalyDetection.Enabled
	cfg.Sensitivity = c.AnomalyDetection.DefaultSensitivity

	override, ok := c.AnomalyDetection.Overrides[pluginID]
	if !ok {
		return cfg
	}
	if override.Enabled != nil {
		cfg.Enabled = *override.Enabled
	}
	if override.Sensitivity != nil {
		cfg.Sensitivity = *override.Sensitivity
	}
	if override.Window != nil {
		cfg.Window = *override.Window
	}
	if override.MinPoints != nil {
		cfg.MinPoints = *override.MinPoints
	}
	if override.DetectTrends != nil {
		cfg.DetectTrends = *override.DetectTrends
	}
	if override.DetectSpikes != nil {
		cfg.DetectSpikes = *override.DetectSpikes
	}
	if override.ConsecutiveThreshold != nil {
		cfg.ConsecutiveThreshold = *override.ConsecutiveThreshold
	}
	if override.CooldownSeconds != nil {
		cfg.CooldownSeconds = *override.CooldownSeconds
	}
	return cfg
}

// Validate enforces spec.md §6/§7's document-level invariants: out-of-range
// values are classified KindInvalidInput and are fatal at startup (spec.md
// §7 "Propagation policy").
func (c Config) Validate() error {
	if _, ok := loggingLevels[c.System.LogLevel]; !ok {
		return fmt.Errorf("config: system.log_level: invalid value %q", c.System.LogLevel)
	}
	if c.System.CheckInterval <= 0 {
		return fmt.Errorf("config: system.check_interval must be positive, got %d", c.System.CheckInterval)
	}
	if c.System.CheckTimeout <= 0 {
		return fmt.Errorf("config: system.check_timeout must be positive, got %d", c.System.CheckTimeout)
	}
	if c.System.CheckTimeout >= c.System.CheckInterval {
		return fmt.Errorf("config: system.check_timeout (%d) must be less than system.check_interval (%d)", c.System.CheckTimeout, c.System.CheckInterval)
	}

	for _, id := range c.Plugins.Enabled {
		if err := c.Threshold(id).Validate(); err != nil {
			return fmt.Errorf("config: plugins.thresholds.%s: %w", id, err)
		}
	}

	if c.AnomalyDetection.Enabled {
		for _, id := range c.Plugins.Enabled {
			if err := c.Anomaly(id).Validate(); err != nil {
				return fmt.Errorf("config: anomaly_detection (plugin %s): %w", id, err)
			}
		}
	}

	if c.CompositeChecks.Enabled && c.CompositeChecks.ConfigDirectory == "" {
		return fmt.Errorf("config: composite_checks.config_directory must be set when composite_checks.enabled is true")
	}

	if c.Notifications.Enabled {
		for _, ch := range c.Notifications.Channels {
			if err := c.validateChannel(ch); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c Config) validateChannel(name string) error {
	switch name {
	case "teams":
		if c.Notifications.Teams.WebhookURL == "" {
			return fmt.Errorf("config: notifications.teams.webhook_url is required when teams is enabled")
		}
	case "slack":
		if c.Notifications.Slack.WebhookURL == "" {
			return fmt.Errorf("config: notifications.slack.webhook_url is required when slack is enabled")
		}
	case "discord":
		if c.Notifications.Discord.WebhookURL == "" {
			return fmt.Errorf("config: notifications.discord.webhook_url is required when discord is enabled")
		}
	case "webhook":
		if c.Notifications.Webhook.URL == "" {
			return fmt.Errorf("config: notifications.webhook.url is required when webhook is enabled")
		}
	case "email":
		if c.Notifications.Email.SMTPServer == "" || c.Notifications.Email.From == "" || c.Notifications.Email.To == "" {
			return fmt.Errorf("config: notifications.email requires from, to and smtp_server when email is enabled")
		}
	default:
		return fmt.Errorf("config: notifications.channels: unknown channel %q", name)
	}
	return nil
}
