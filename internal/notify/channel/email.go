// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package channel

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/azzuwayed/serversentry/internal/hostinfo"
	"github.com/azzuwayed/serversentry/internal/notify"
)

// Email sends a subject + plain-text body via a configured SMTP relay
// (spec.md §4.7: "Subject template + plain/HTML body; sent via configured
// SMTP relay"). There is no third-party SMTP client among the corpus's
// dependencies, so this channel uses net/smtp directly.
type Email struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	to        []string
	enabled   bool
	templates *notify.Templates
	hostFn    func() hostinfo.Snapshot
	sendFn    func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail returns an Email channel.
func NewEmail(templates *notify.Templates) *Email {
	return &Email{templates: templates, hostFn: hostinfo.Collect, sendFn: smtp.SendMail}
}

// Info implements notify.Channel.
func (e *Email) Info() notify.Info { return notify.Info{Name: "email", Enabled: e.enabled} }

// Configure implements notify.Channel; expects cfg["smtp_host"],
// cfg["smtp_port"], cfg["username"], cfg["password"], cfg["from"] and
// cfg["to"] (a []string or comma-separated string).
func (e *Email) Configure(cfg map[string]any) error {
	host, _ := cfg["smtp_host"].(string)
	if host == "" {
		return fmt.Errorf("email: missing smtp_host")
	}
	e.host = host

	switch port := cfg["smtp_port"].(type) {
	case int:
		e.port = port
	case float64:
		e.port = int(port)
	default:
		e.port = 587
	}

	e.username, _ = cfg["username"].(string)
	e.password, _ = cfg["password"].(string)
	e.from, _ = cfg["from"].(string)
	if e.from == "" {
		return fmt.Errorf("email: missing from address")
	}

	switch to := cfg["to"].(type) {
	case []string:
		e.to = to
	case string:
		e.to = strings.Split(to, ",")
	default:
		return fmt.Errorf("email: missing to address(es)")
	}

	if enabled, ok := cfg["enabled"].(bool); ok {
		e.enabled = enabled
	} else {
		e.enabled = true
	}
	return nil
}

// Send implements notify.Channel. SMTP relays are typically internal and
// slow to fail, so every transport error is treated as transient; the
// caller's retry budget bounds total delay.
func (e *Email) Send(ctx context.Context, event notify.Event) (notify.Result, error) {
	host := e.hostFn()
	color := notify.SeverityColor(event.Severity)
	ph := notify.Placeholders(event, host, color)
	body := notify.Render(e.templates.Resolve("email", event.Kind()), ph)
	subject := fmt.Sprintf("[%s] %s on %s", event.Severity, event.SourceID, host.Hostname)

	msg := fmt.Sprintf("Subject: %s\r\nFrom: %s\r\nTo: %s\r\n\r\n%s\r\n",
		subject, e.from, strings.Join(e.to, ", "), body)

	addr := net.JoinHostPort(e.host, fmt.Sprint(e.port))
	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	if err := e.sendFn(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return notify.ResultTransientError, err
	}
	return notify.ResultOK, nil
}
