// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package composite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/status"
)

func reading(pluginID string, value float64) plugin.Reading {
	return plugin.NewReading(pluginID, time.Now(), value, true, nil, status.OK, "")
}

func TestScenarioCompositeRule(t *testing.T) {
	node, err := Parse("(cpu.value > 90 OR memory.value > 95) AND disk.value > 90")
	require.NoError(t, err)

	src := Source{
		"cpu":    reading("cpu", 92),
		"memory": reading("memory", 50),
		"disk":   reading("disk", 91),
	}
	assert.Equal(t, True, Eval(node, src))
}

func TestMissingPluginIsUnknown(t *testing.T) {
	node, err := Parse("cpu.value > 90")
	require.NoError(t, err)
	assert.Equal(t, Unknown, Eval(node, Source{}))
}

func TestAndWithUnknownAndFalseIsFalse(t *testing.T) {
	node, err := Parse("cpu.value > 90 AND memory.value > 95")
	require.NoError(t, err)
	src := Source{"memory": reading("memory", 10)}
	assert.Equal(t, False, Eval(node, src))
}

func TestAndWithUnknownAndTrueIsUnknown(t *testing.T) {
	node, err := Parse("cpu.value > 90 AND memory.value > 95")
	require.NoError(t, err)
	src := Source{"memory": reading("memory", 99)}
	assert.Equal(t, Unknown, Eval(node, src))
}

func TestOrWithUnknownAndTrueIsTrue(t *testing.T) {
	node, err := Parse("cpu.value > 90 OR memory.value > 95")
	require.NoError(t, err)
	src := Source{"memory": reading("memory", 99)}
	assert.Equal(t, True, Eval(node, src))
}

func TestOrWithUnknownAndFalseIsUnknown(t *testing.T) {
	node, err := Parse("cpu.value > 90 OR memory.value > 95")
	require.NoError(t, err)
	src := Source{"memory": reading("memory", 10)}
	assert.Equal(t, Unknown, Eval(node, src))
}

func TestNotPrecedenceOverAnd(t *testing.T) {
	node, err := Parse("NOT cpu.value > 90 AND memory.value > 95")
	require.NoError(t, err)
	src := Source{
		"cpu":    reading("cpu", 10),
		"memory": reading("memory", 99),
	}
	// NOT(cpu>90) = NOT(false) = true; true AND true = true.
	assert.Equal(t, True, Eval(node, src))
}

func TestStringEquality(t *testing.T) {
	node, err := Parse(`process.name == "nginx"`)
	require.NoError(t, err)
	r := plugin.NewReading("process", time.Now(), 0, false,
		map[string]plugin.Attribute{"name": plugin.StringAttr("nginx")}, status.OK, "")
	assert.Equal(t, True, Eval(node, Source{"process": r}))
}

func TestRenderTemplateSubstitutesOrUnknown(t *testing.T) {
	src := Source{"cpu": reading("cpu", 92.5)}
	out := RenderTemplate("cpu at {cpu.value}%, disk at {disk.value}%", src)
	assert.Equal(t, "cpu at 92.5%, disk at UNKNOWN%", out)
}

func TestValidateRejectsUnknownPlugin(t *testing.T) {
	node, err := Parse("ghost.value > 1")
	require.NoError(t, err)
	err = Validate(node, map[string]map[string]bool{"cpu": {"value": true}})
	assert.Error(t, err)
}

func TestValidateRejectsUnknownAttribute(t *testing.T) {
	node, err := Parse("cpu.bogus > 1")
	require.NoError(t, err)
	err = Validate(node, map[string]map[string]bool{"cpu": {"value": true}})
	assert.Error(t, err)
}
