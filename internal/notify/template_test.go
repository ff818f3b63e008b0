// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFallsBackInOrder(t *testing.T) {
	tmpl := NewTemplates()
	assert.Equal(t, defaultTemplate, tmpl.Resolve("teams", KindAlert))

	tmpl.Set(genericChannel, KindAlert, "event-generic: {status_text}")
	assert.Equal(t, "event-generic: {status_text}", tmpl.Resolve("teams", KindAlert))

	tmpl.Set("teams", "generic", "channel-generic: {status_text}")
	assert.Equal(t, "channel-generic: {status_text}", tmpl.Resolve("teams", KindAlert))

	tmpl.Set("teams", KindAlert, "exact: {status_text}")
	assert.Equal(t, "exact: {status_text}", tmpl.Resolve("teams", KindAlert))
}

func TestRenderSubstitutesKnownPlaceholders(t *testing.T) {
	out := Render("{status_text} on {hostname}", map[string]string{"status_text": "CRITICAL", "hostname": "db01"})
	assert.Equal(t, "CRITICAL on db01", out)
}

func TestRenderLeavesUnknownPlaceholderVerbatim(t *testing.T) {
	out := Render("{status_text} {mystery}", map[string]string{"status_text": "OK"})
	assert.Equal(t, "OK {mystery}", out)
}
