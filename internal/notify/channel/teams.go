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

// Teams renders a MessageCard payload for a Microsoft Teams incoming
// webhook (spec.md §4.7: "MessageCard JSON with theme colour derived from
// severity; sections include factset of metrics").
type Teams struct {
	endpoint  string
	enabled   bool
	templates *notify.Templates
	client    httpDoer
	hostFn    func() hostinfo.Snapshot
}

// NewTeams returns a Teams channel.
func NewTeams(templates *notify.Templates, client httpDoer) *Teams {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Teams{templates: templates, client: client, hostFn: hostinfo.Collect}
}

// Info implements notify.Channel.
func (t *Teams) Info() notify.Info { return notify.Info{Name: "teams", Enabled: t.enabled} }

// Configure implements notify.Channel; expects cfg["webhook_url"].
func (t *Teams) Configure(cfg map[string]any) error {
	endpoint, _ := cfg["webhook_url"].(string)
	if endpoint == "" {
		return fmt.Errorf("teams: missing webhook_url")
	}
	if err := validateWebhookURL(endpoint); err != nil {
		return err
	}
	t.endpoint = endpoint
	if enabled, ok := cfg["enabled"].(bool); ok {
		t.enabled = enabled
	} else {
		t.enabled = true
	}
	return nil
}

type messageCardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type messageCardSection struct {
	ActivityTitle string            `json:"activityTitle"`
	Facts         []messageCardFact `json:"facts"`
}

type messageCard struct {
	Type       string               `json:"@type"`
	Context    string               `json:"@context"`
	ThemeColor string               `json:"themeColor"`
	Summary    string               `json:"summary"`
	Sections   []messageCardSection `json:"sections"`
}

// Send implements notify.Channel.
func (t *Teams) Send(ctx context.Context, event notify.Event) (notify.Result, error) {
	host := t.hostFn()
	color := notify.SeverityColor(event.Severity)
	ph := notify.Placeholders(event, host, color)
	message := notify.Render(t.templates.Resolve("teams", event.Kind()), ph)

	facts := make([]messageCardFact, 0, len(event.Metrics)+1)
	facts = append(facts, messageCardFact{Name: "host", Value: host.Hostname})
	for k, v := range event.Metrics {
		facts = append(facts, messageCardFact{Name: k, Value: v})
	}

	card := messageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: color,
		Summary:    message,
		Sections: []messageCardSection{
			{ActivityTitle: message, Facts: facts},
		},
	}
	body, err := json.Marshal(card)
	if err != nil {
		return notify.ResultPermanentError, err
	}
	return postJSON(ctx, t.client, t.endpoint, body)
}
