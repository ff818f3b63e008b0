// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

var loggingLevels = make(map[string]zerolog.Level)

func init() {
	loggingLevels[LogLevelDisabled] = zerolog.Disabled
	loggingLevels[LogLevelPanic] = zerolog.PanicLevel
	loggingLevels[LogLevelFatal] = zerolog.FatalLevel
	loggingLevels[LogLevelCritical] = zerolog.FatalLevel
	loggingLevels[LogLevelError] = zerolog.ErrorLevel
	loggingLevels[LogLevelWarn] = zerolog.WarnLevel
	loggingLevels[LogLevelInfo] = zerolog.InfoLevel
	loggingLevels[LogLevelDebug] = zerolog.DebugLevel
	loggingLevels[LogLevelTrace] = zerolog.TraceLevel
}

func setLoggingLevel(logLevel string) error {
	level, ok := loggingLevels[logLevel]
	if !ok {
		return fmt.Errorf("config: invalid log level %q", logLevel)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// setupLogging configures the process-wide logger. Logging goes to stderr
// so it never mixes with stdout output intended for the one-shot
// `check`/`status` exit-state summary (spec.md §6 "CLI surface").
func (c *Config) setupLogging() error {
	c.Log = zerolog.New(os.Stderr).With().Timestamp().Caller().
		Str("version", version).
		Str("command", commandLabel(c.Command)).
		Str("log_level", c.System.LogLevel).
		Logger()

	return setLoggingLevel(c.System.LogLevel)
}
