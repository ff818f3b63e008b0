// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package composite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/status"
)

const sampleRuleYAML = `
name: high-load
description: CPU or memory pressure with disk nearly full
enabled: true
severity: critical
cooldown: 600
rule: "(cpu.value > 90 OR memory.value > 95) AND disk.value > 90"
notify_on_trigger: true
notify_on_recovery: true
notification_message: "host under pressure: cpu={cpu.value}"
`

func TestLoadDirectoryParsesRules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "high-load.yaml"), []byte(sampleRuleYAML), 0o644))

	reg := NewRegistry(zerolog.Nop())
	require.NoError(t, reg.LoadDirectory(dir))

	rules := reg.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "high-load", rules[0].Name)
	assert.Equal(t, status.CRITICAL, rules[0].Severity)
	assert.Equal(t, 600, rules[0].CooldownSeconds)
	require.NotNil(t, rules[0].Expr)
}

func TestLoadDirectorySkipsInvalidRuleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(sampleRuleYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\nrule: \"cpu.value >\"\nenabled: true\n"), 0o644))

	reg := NewRegistry(zerolog.Nop())
	require.NoError(t, reg.LoadDirectory(dir))
	assert.Len(t, reg.Rules(), 1)
}

func TestLoadDirectoryExcludesDisabledFromRules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "off.yaml"), []byte("name: off\nenabled: false\nrule: \"cpu.value > 1\"\n"), 0o644))

	reg := NewRegistry(zerolog.Nop())
	require.NoError(t, reg.LoadDirectory(dir))
	assert.Empty(t, reg.Rules())
}
