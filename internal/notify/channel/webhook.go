// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

// Package channel implements the built-in Notification Dispatcher
// channels (spec.md §4.7 "Channel set"): teams, slack, discord, email and
// a generic webhook.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/azzuwayed/serversentry/internal/hostinfo"
	"github.com/azzuwayed/serversentry/internal/notify"
)

// httpDoer is satisfied by *http.Client; narrowed for testability.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// classifyHTTPStatus maps an HTTP response code to a dispatch Result,
// per the glossary's transient/permanent split: 5xx and 429 are
// transient, other 4xx are permanent.
func classifyHTTPStatus(code int) notify.Result {
	switch {
	case code >= 200 && code < 300:
		return notify.ResultOK
	case code == 429 || code >= 500:
		return notify.ResultTransientError
	default:
		return notify.ResultPermanentError
	}
}

// validateWebhookURL rejects non-http(s) schemes and well-known
// metadata/loopback hosts, guarding against SSRF via operator-supplied
// webhook URLs.
func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", scheme)
	}
	host := strings.ToLower(u.Hostname())
	for _, blocked := range []string{"169.254.169.254", "metadata.google.internal", "localhost", "127.0.0.1", "::1"} {
		if host == blocked {
			return fmt.Errorf("webhook URL host %q is blocked", host)
		}
	}
	return nil
}

func postJSON(ctx context.Context, client httpDoer, endpoint string, body []byte) (notify.Result, error) {
	if err := validateWebhookURL(endpoint); err != nil {
		return notify.ResultPermanentError, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return notify.ResultPermanentError, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return notify.ResultTransientError, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if result := classifyHTTPStatus(resp.StatusCode); result != notify.ResultOK {
		return result, fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return notify.ResultOK, nil
}

// Webhook is the generic JSON-envelope channel (spec.md §4.7: "{title,
// message, hostname, timestamp, source, host metrics..., content
// (adaptive-card), attachments[]}").
type Webhook struct {
	endpoint  string
	enabled   bool
	templates *notify.Templates
	client    httpDoer
	hostFn    func() hostinfo.Snapshot
}

// NewWebhook returns a Webhook channel; client defaults to a 10s-timeout
// http.Client when nil.
func NewWebhook(templates *notify.Templates, client httpDoer) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{templates: templates, client: client, hostFn: hostinfo.Collect}
}

// Info implements notify.Channel.
func (w *Webhook) Info() notify.Info { return notify.Info{Name: "webhook", Enabled: w.enabled} }

// Configure implements notify.Channel; expects cfg["url"] and optionally
// cfg["enabled"].
func (w *Webhook) Configure(cfg map[string]any) error {
	endpoint, _ := cfg["url"].(string)
	if endpoint == "" {
		return fmt.Errorf("webhook: missing url")
	}
	if err := validateWebhookURL(endpoint); err != nil {
		return err
	}
	w.endpoint = endpoint
	if enabled, ok := cfg["enabled"].(bool); ok {
		w.enabled = enabled
	} else {
		w.enabled = true
	}
	return nil
}

// webhookSource is the §6 "source" field literal ("ServerSentry"), not the
// originating SourceKind (plugin/anomaly/composite/...).
const webhookSource = "ServerSentry"

// adaptiveCardElement is one body element of an Adaptive Card.
type adaptiveCardElement struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Wrap bool   `json:"wrap"`
}

// adaptiveCard is the §6 "content" field: an Adaptive Card object, not a
// bare string.
type adaptiveCard struct {
	Schema  string                `json:"$schema"`
	Type    string                `json:"type"`
	Version string                `json:"version"`
	Body    []adaptiveCardElement `json:"body"`
}

func newAdaptiveCard(title, message string) adaptiveCard {
	return adaptiveCard{
		Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
		Type:    "AdaptiveCard",
		Version: "1.4",
		Body: []adaptiveCardElement{
			{Type: "TextBlock", Text: title, Wrap: true},
			{Type: "TextBlock", Text: message, Wrap: true},
		},
	}
}

// webhookAttachment is one entry of the §6 "attachments" array: a
// {contentType, content} pair, Teams-style, so consumers can iterate it.
type webhookAttachment struct {
	ContentType string       `json:"contentType"`
	Content     adaptiveCard `json:"content"`
}

type webhookEnvelope struct {
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	Hostname    string              `json:"hostname"`
	IP          string              `json:"ip"`
	Timestamp   string              `json:"timestamp"`
	Source      string              `json:"source"`
	OS          string              `json:"os"`
	Kernel      string              `json:"kernel"`
	Uptime      string              `json:"uptime"`
	LoadAvg     string              `json:"loadavg"`
	CPU         string              `json:"cpu,omitempty"`
	CPUUsage    string              `json:"cpu_usage,omitempty"`
	Memory      string              `json:"memory,omitempty"`
	MemoryUsage string              `json:"memory_usage,omitempty"`
	Disk        string              `json:"disk,omitempty"`
	DiskUsage   string              `json:"disk_usage,omitempty"`
	Status      string              `json:"status"`
	Content     adaptiveCard        `json:"content"`
	Attachments []webhookAttachment `json:"attachments"`
}

// applyPluginMetrics fills the per-metric cpu/memory/disk fields from the
// firing plugin's reading; an event from a different source (composite,
// anomaly, test, ...) leaves them unset.
func applyPluginMetrics(env *webhookEnvelope, event notify.Event) {
	if event.Source != notify.SourcePlugin && event.Source != notify.SourceRecovery {
		return
	}
	value := event.Metrics["value"]
	switch event.SourceID {
	case "cpu":
		env.CPU = event.Severity.String()
		env.CPUUsage = value
	case "memory":
		env.Memory = event.Severity.String()
		env.MemoryUsage = value
	case "disk":
		env.Disk = event.Severity.String()
		env.DiskUsage = value
	}
}

// Send implements notify.Channel.
func (w *Webhook) Send(ctx context.Context, event notify.Event) (notify.Result, error) {
	host := w.hostFn()
	color := notify.SeverityColor(event.Severity)
	ph := notify.Placeholders(event, host, color)
	message := notify.Render(w.templates.Resolve("webhook", event.Kind()), ph)
	title := fmt.Sprintf("[%s] %s", event.Severity, event.SourceID)

	envelope := webhookEnvelope{
		Title:     title,
		Message:   message,
		Hostname:  host.Hostname,
		IP:        host.IP,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Source:    webhookSource,
		OS:        host.OS,
		Kernel:    host.Kernel,
		Uptime:    host.Uptime.String(),
		LoadAvg:   ph["load_avg"],
		Status:    string(event.Kind()),
		Content:   newAdaptiveCard(title, message),
		Attachments: []webhookAttachment{
			{ContentType: "application/vnd.microsoft.card.adaptive", Content: newAdaptiveCard(title, message)},
		},
	}
	applyPluginMetrics(&envelope, event)

	body, err := json.Marshal(envelope)
	if err != nil {
		return notify.ResultPermanentError, err
	}
	return postJSON(ctx, w.client, w.endpoint, body)
}
