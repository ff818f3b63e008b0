// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package config

const myAppName string = "serversentry"
const myAppURL string = "https://github.com/azzuwayed/serversentry"

// Recognised system.log_level values (spec.md §6).
const (
	LogLevelDisabled string = "disabled"
	LogLevelPanic    string = "panic"
	LogLevelFatal    string = "fatal"
	LogLevelCritical string = "critical"
	LogLevelError    string = "error"
	LogLevelWarn     string = "warning"
	LogLevelInfo     string = "info"
	LogLevelDebug    string = "debug"
	LogLevelTrace    string = "trace"
)

const (
	versionFlagHelp       string = "Whether to display application version and then immediately exit application."
	configFlagHelp        string = "Path to the root YAML configuration document."
	logLevelFlagHelp      string = "Overrides system.log_level: one of disabled, panic, fatal, critical, error, warning, info, debug or trace."
	checkIntervalFlagHelp string = "Overrides system.check_interval (seconds between ticks) for this invocation."
	pluginFlagHelp        string = "Restricts a one-shot check to a single plugin id."
)

const shorthandFlagSuffix = " (shorthand)"

// Default settings applied when the root configuration document omits a
// key, per spec.md §6.
const (
	defaultLogLevel         string = LogLevelInfo
	defaultCheckInterval    int    = 60
	defaultCheckTimeout     int    = 30
	defaultConfigPath       string = "serversentry.yaml"
	defaultStateDir         string = "state"
	defaultPIDFile          string = "state/serversentry.pid"
	defaultLogDir           string = "logs"
	defaultDispatchCooldown int    = 60
	defaultAnomalySensitivity float64 = 2.0
	defaultDataRetentionDays int    = 30
	defaultCompositeConfigDir string = "composite.d"
)

// CommandType represents the CLI subcommand being configured (spec.md §6
// "CLI surface"). Not all commands expose the same flags; unlike the
// teacher's single-binary-per-plugin model, a subcommand switch on one
// binary replaces the separate cmd/check_vmware_* entrypoints.
type CommandType struct {
	Status        bool
	Start         bool
	Stop          bool
	Check         bool
	AnomalyTest   bool
	CompositeTest bool
	WebhookTest   bool
}

func commandLabel(cmd CommandType) string {
	switch {
	case cmd.Status:
		return "status"
	case cmd.Start:
		return "start"
	case cmd.Stop:
		return "stop"
	case cmd.Check:
		return "check"
	case cmd.AnomalyTest:
		return "anomaly-test"
	case cmd.CompositeTest:
		return "composite-test"
	case cmd.WebhookTest:
		return "webhook-test"
	default:
		return "unknown"
	}
}
