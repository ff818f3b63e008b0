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
	"time"

	"github.com/azzuwayed/serversentry/internal/hostinfo"
	"github.com/azzuwayed/serversentry/internal/notify"
)

// Slack renders a Block-Kit payload for a Slack incoming webhook
// (spec.md §4.7: "Block-Kit JSON (header, section, context) with
// attachment colour from severity").
type Slack struct {
	endpoint  string
	enabled   bool
	templates *notify.Templates
	client    httpDoer
	hostFn    func() hostinfo.Snapshot
}

// NewSlack returns a Slack channel.
func NewSlack(templates *notify.Templates, client httpDoer) *Slack {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Slack{templates: templates, client: client, hostFn: hostinfo.Collect}
}

// Info implements notify.Channel.
func (s *Slack) Info() notify.Info { return notify.Info{Name: "slack", Enabled: s.enabled} }

// Configure implements notify.Channel; expects cfg["webhook_url"].
func (s *Slack) Configure(cfg map[string]any) error {
	endpoint, _ := cfg["webhook_url"].(string)
	if endpoint == "" {
		return fmt.Errorf("slack: missing webhook_url")
	}
	if err := validateWebhookURL(endpoint); err != nil {
		return err
	}
	s.endpoint = endpoint
	if enabled, ok := cfg["enabled"].(bool); ok {
		s.enabled = enabled
	} else {
		s.enabled = true
	}
	return nil
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Blocks []slackBlock `json:"blocks"`
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

// Send implements notify.Channel.
func (s *Slack) Send(ctx context.Context, event notify.Event) (notify.Result, error) {
	host := s.hostFn()
	color := "#" + notify.SeverityColor(event.Severity)
	ph := notify.Placeholders(event, host, notify.SeverityColor(event.Severity))
	message := notify.Render(s.templates.Resolve("slack", event.Kind()), ph)

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s: %s", event.Severity, event.SourceID)}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: message}},
		{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: "host: " + host.Hostname}}},
	}

	payload := slackPayload{
		Text:        message,
		Attachments: []slackAttachment{{Color: color, Blocks: blocks}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return notify.ResultPermanentError, err
	}
	return postJSON(ctx, s.client, s.endpoint, body)
}
