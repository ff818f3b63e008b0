// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/agenterr"
)

func TestSubcommandArgStripsMatchingToken(t *testing.T) {
	assert.Equal(t, []string{"--plugin", "cpu"}, subcommandArg([]string{"test", "--plugin", "cpu"}, "test"))
}

func TestSubcommandArgLeavesNonMatchingArgsAlone(t *testing.T) {
	assert.Equal(t, []string{"--plugin", "cpu"}, subcommandArg([]string{"--plugin", "cpu"}, "test"))
}

func TestClassifyFatalPassesThroughExistingAgentError(t *testing.T) {
	original := agenterr.New(agenterr.KindInvalidInput, "config", "bad yaml", "fix the file", nil)
	got := classifyFatal(original)
	require.NotNil(t, got)
	assert.Equal(t, agenterr.KindInvalidInput, got.Kind)
}

func TestClassifyFatalClassifiesPermissionErrors(t *testing.T) {
	got := classifyFatal(&os.PathError{Op: "open", Path: "/etc/serversentry.yaml", Err: os.ErrPermission})
	require.NotNil(t, got)
	assert.Equal(t, agenterr.KindPermissionDenied, got.Kind)
}

func TestClassifyFatalIgnoresOrdinaryErrors(t *testing.T) {
	assert.Nil(t, classifyFatal(errors.New("dispatch failed")))
}

func TestWriteCrashReportWritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	oldTmp := os.Getenv("TMPDIR")
	os.Setenv("TMPDIR", dir)
	defer os.Setenv("TMPDIR", oldTmp)

	agErr := agenterr.New(agenterr.KindCritical, "process", "panic: boom", "restart", nil)
	writeCrashReport(agErr)

	data, err := os.ReadFile(filepath.Join(os.TempDir(), "serversentry-crash.json"))
	require.NoError(t, err)

	var report agenterr.CrashReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "critical", report.Kind)
	assert.Equal(t, "panic: boom", report.Message)
}
