// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package config

// Long flag names, kept as exported constants the way the teacher exposes
// its *FlagLong constants so cmd/serversentry's help text and tests can
// reference them without duplicating string literals.
const (
	VersionFlagLong       string = "version"
	ConfigFlagLong        string = "config"
	LogLevelFlagLong      string = "log-level"
	CheckIntervalFlagLong string = "interval"
)
