// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/azzuwayed/serversentry/internal/hostinfo"
	"github.com/azzuwayed/serversentry/internal/notify"
)

// Discord renders an Embed payload for a Discord incoming webhook
// (spec.md §4.7: "Embed JSON with colour from severity").
type Discord struct {
	endpoint  string
	enabled   bool
	templates *notify.Templates
	client    httpDoer
	hostFn    func() hostinfo.Snapshot
}

// NewDiscord returns a Discord channel.
func NewDiscord(templates *notify.Templates, client httpDoer) *Discord {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Discord{templates: templates, client: client, hostFn: hostinfo.Collect}
}

// Info implements notify.Channel.
func (d *Discord) Info() notify.Info { return notify.Info{Name: "discord", Enabled: d.enabled} }

// Configure implements notify.Channel; expects cfg["webhook_url"].
func (d *Discord) Configure(cfg map[string]any) error {
	endpoint, _ := cfg["webhook_url"].(string)
	if endpoint == "" {
		return fmt.Errorf("discord: missing webhook_url")
	}
	if err := validateWebhookURL(endpoint); err != nil {
		return err
	}
	d.endpoint = endpoint
	if enabled, ok := cfg["enabled"].(bool); ok {
		d.enabled = enabled
	} else {
		d.enabled = true
	}
	return nil
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Send implements notify.Channel.
func (d *Discord) Send(ctx context.Context, event notify.Event) (notify.Result, error) {
	host := d.hostFn()
	colorHex := notify.SeverityColor(event.Severity)
	ph := notify.Placeholders(event, host, colorHex)
	message := notify.Render(d.templates.Resolve("discord", event.Kind()), ph)

	colorInt, _ := strconv.ParseInt(colorHex, 16, 64)

	fields := make([]discordEmbedField, 0, len(event.Metrics))
	for k, v := range event.Metrics {
		fields = append(fields, discordEmbedField{Name: k, Value: v, Inline: true})
	}

	payload := discordPayload{
		Embeds: []discordEmbed{
			{
				Title:       fmt.Sprintf("%s: %s", event.Severity, event.SourceID),
				Description: message,
				Color:       int(colorInt),
				Fields:      fields,
				Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return notify.ResultPermanentError, err
	}
	return postJSON(ctx, d.client, d.endpoint, body)
}
