// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package main

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePIDFileWritesCurrentPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "serversentry.pid")
	require.NoError(t, writePIDFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(trimTrailingNewline(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestWritePIDFileRejectsSecondStartWhileAlive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serversentry.pid")
	require.NoError(t, writePIDFile(path))
	assert.Error(t, writePIDFile(path))
}

func TestWritePIDFileOverwritesStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serversentry.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	require.NoError(t, writePIDFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(trimTrailingNewline(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestTrimTrailingNewlineHandlesCRLFAndBare(t *testing.T) {
	assert.Equal(t, []byte("123"), trimTrailingNewline([]byte("123\r\n")))
	assert.Equal(t, []byte("123"), trimTrailingNewline([]byte("123\n")))
	assert.Equal(t, []byte("123"), trimTrailingNewline([]byte("123")))
}

func TestProcessAliveReportsFalseForImplausiblePID(t *testing.T) {
	assert.False(t, processAlive(999999999))
}

func TestProcessAliveReportsTrueForSelf(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
}
