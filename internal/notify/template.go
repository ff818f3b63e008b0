// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package notify

import "strings"

const genericChannel = "generic"

// defaultTemplate is the global fallback used when no more specific
// template is configured (spec.md §3 "Notification template" resolution
// order's final step).
const defaultTemplate = "[{status_text}] {plugin_name}: {status_message} (host={hostname}, {timestamp})"

// Templates holds the (channel, event-kind) -> template string table,
// keyed loosely so that a channel- or event-generic entry can serve as a
// fallback (spec.md §3).
type Templates struct {
	entries map[string]string
}

// NewTemplates returns an empty Templates set; use Set to populate it.
func NewTemplates() *Templates {
	return &Templates{entries: make(map[string]string)}
}

func templateKey(channel string, kind EventKind) string {
	return channel + "|" + string(kind)
}

// Set registers the template for (channel, kind). Pass channel ==
// genericChannel ("generic") for a channel-agnostic entry, and kind ==
// "generic" for an event-agnostic entry.
func (t *Templates) Set(channel string, kind EventKind, tmpl string) {
	t.entries[templateKey(channel, kind)] = tmpl
}

// Resolve looks up the template for (channel, kind), falling back in the
// order specified by spec.md §3: (channel, event) -> (channel, generic) ->
// (event, generic) -> global default.
func (t *Templates) Resolve(channel string, kind EventKind) string {
	if tmpl, ok := t.entries[templateKey(channel, kind)]; ok {
		return tmpl
	}
	if tmpl, ok := t.entries[templateKey(channel, "generic")]; ok {
		return tmpl
	}
	if tmpl, ok := t.entries[templateKey(genericChannel, kind)]; ok {
		return tmpl
	}
	return defaultTemplate
}

// Render substitutes every "{placeholder}" in tmpl found in placeholders;
// an unrecognised placeholder is left verbatim.
func Render(tmpl string, placeholders map[string]string) string {
	out := tmpl
	for k, v := range placeholders {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
