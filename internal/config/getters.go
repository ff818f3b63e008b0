// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package config

import "time"

// CheckInterval converts system.check_interval (seconds) to a Duration.
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.System.CheckInterval) * time.Second
}

// CheckTimeout converts system.check_timeout (seconds) to a Duration.
func (c Config) CheckTimeout() time.Duration {
	return time.Duration(c.System.CheckTimeout) * time.Second
}

// DispatchCooldown converts notifications.cooldown_seconds to a Duration.
func (c Config) DispatchCooldown() time.Duration {
	return time.Duration(c.Notifications.CooldownSeconds) * time.Second
}
