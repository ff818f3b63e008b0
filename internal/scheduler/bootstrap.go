// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package scheduler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/azzuwayed/serversentry/internal/alertstate"
	"github.com/azzuwayed/serversentry/internal/anomaly"
	"github.com/azzuwayed/serversentry/internal/composite"
	"github.com/azzuwayed/serversentry/internal/config"
	"github.com/azzuwayed/serversentry/internal/history"
	"github.com/azzuwayed/serversentry/internal/notify"
	"github.com/azzuwayed/serversentry/internal/notify/channel"
	"github.com/azzuwayed/serversentry/internal/plugin"
	"github.com/azzuwayed/serversentry/internal/plugin/builtin"
)

// AvailablePlugins returns every built-in Plugin, keyed by id, regardless
// of which ones cfg.Plugins.Enabled actually activates. cmd/serversentry
// uses this as the registration source of truth.
func AvailablePlugins() map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		"cpu":     builtin.NewCPU(),
		"memory":  builtin.NewMemory(),
		"disk":    builtin.NewDisk(),
		"process": builtin.NewProcess(),
	}
}

// BuildRegistry configures and registers every plugin cfg.Plugins.Enabled
// names, in declared order, then freezes the registry (spec.md §4.1
// "Registration": "a plugin becomes active only if ... configure
// succeeds").
func BuildRegistry(cfg *config.Config) (*plugin.Registry, map[string]PluginSpec, error) {
	available := AvailablePlugins()
	reg := plugin.NewRegistry()
	specs := make(map[string]PluginSpec, len(cfg.Plugins.Enabled))

	for _, id := range cfg.Plugins.Enabled {
		p, ok := available[id]
		if !ok {
			return nil, nil, fmt.Errorf("scheduler: plugins.enabled references unknown plugin %q", id)
		}
		if err := p.Configure(cfg.Plugins.Settings[id]); err != nil {
			return nil, nil, fmt.Errorf("scheduler: configuring plugin %q: %w", id, err)
		}
		if err := reg.Register(id, p); err != nil {
			return nil, nil, err
		}
		specs[id] = PluginSpec{
			ID:        id,
			Threshold: cfg.Threshold(id),
			Anomaly:   cfg.Anomaly(id),
		}
	}
	reg.Freeze()
	return reg, specs, nil
}

// BuildDispatcher wires every notifications.channels entry to its concrete
// Channel implementation and returns a ready Dispatcher.
func BuildDispatcher(cfg *config.Config) (*notify.Dispatcher, error) {
	templates := notify.NewTemplates()
	dispatcher := notify.NewDispatcher(cfg.DispatchCooldown(), cfg.Log)
	if !cfg.Notifications.Enabled {
		return dispatcher, nil
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	for _, name := range cfg.Notifications.Channels {
		switch name {
		case "teams":
			ch := channel.NewTeams(templates, httpClient)
			if err := ch.Configure(map[string]any{"webhook_url": cfg.Notifications.Teams.WebhookURL, "enabled": true}); err != nil {
				return nil, err
			}
			dispatcher.Register("teams", ch)
		case "slack":
			ch := channel.NewSlack(templates, httpClient)
			if err := ch.Configure(map[string]any{"webhook_url": cfg.Notifications.Slack.WebhookURL, "enabled": true}); err != nil {
				return nil, err
			}
			dispatcher.Register("slack", ch)
		case "discord":
			ch := channel.NewDiscord(templates, httpClient)
			if err := ch.Configure(map[string]any{"webhook_url": cfg.Notifications.Discord.WebhookURL, "enabled": true}); err != nil {
				return nil, err
			}
			dispatcher.Register("discord", ch)
		case "webhook":
			ch := channel.NewWebhook(templates, httpClient)
			if err := ch.Configure(map[string]any{"url": cfg.Notifications.Webhook.URL, "enabled": true}); err != nil {
				return nil, err
			}
			dispatcher.Register("webhook", ch)
		case "email":
			ch := channel.NewEmail(templates)
			if err := ch.Configure(map[string]any{
				"smtp_host": cfg.Notifications.Email.SMTPServer,
				"smtp_port": cfg.Notifications.Email.SMTPPort,
				"username":  cfg.Notifications.Email.Username,
				"password":  cfg.Notifications.Email.Password,
				"from":      cfg.Notifications.Email.From,
				"to":        cfg.Notifications.Email.To,
				"enabled":   true,
			}); err != nil {
				return nil, err
			}
			dispatcher.Register("email", ch)
		default:
			return nil, fmt.Errorf("scheduler: unknown notification channel %q", name)
		}
	}
	return dispatcher, nil
}

// BuildCompositeRegistry loads composite_checks.config_directory, if
// composite checks are enabled.
func BuildCompositeRegistry(cfg *config.Config) (*composite.Registry, error) {
	reg := composite.NewRegistry(cfg.Log)
	if !cfg.CompositeChecks.Enabled {
		return reg, nil
	}
	if err := reg.LoadDirectory(cfg.CompositeChecks.ConfigDirectory); err != nil {
		return nil, err
	}
	return reg, nil
}

// Build wires every remaining collaborator (History Store, anomaly result
// log, Alert State Machine) and returns a fully assembled Scheduler.
func Build(cfg *config.Config) (*Scheduler, error) {
	registry, specs, err := BuildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher, err := BuildDispatcher(cfg)
	if err != nil {
		return nil, err
	}

	compositeRegistry, err := BuildCompositeRegistry(cfg)
	if err != nil {
		return nil, err
	}

	historyDir := filepath.Join(cfg.System.StateDir, "history")
	recorder, err := history.NewFileRecorder(historyDir)
	if err != nil {
		return nil, err
	}
	historyStore := history.NewStore(history.WithRecorder(recorder))
	for id := range specs {
		key := history.SeriesKey{Plugin: id, Metric: "value"}
		historyStore.Restore(key, filepath.Join(historyDir, key.String()+".dat"))
	}

	resultLog, err := anomaly.NewResultLog(filepath.Join(cfg.System.LogDir, "anomaly", "results"))
	if err != nil {
		return nil, err
	}

	store, err := alertstate.NewStore(filepath.Join(cfg.System.StateDir, "alert_state.json"))
	if err != nil {
		return nil, err
	}
	machine := alertstate.NewMachine(store)

	accountant := plugin.NewAccountant()
	runtime := plugin.NewRuntime(accountant, cfg.CheckTimeout())

	return New(
		cfg.Log,
		registry,
		runtime,
		specs,
		historyStore,
		resultLog,
		compositeRegistry,
		machine,
		dispatcher,
		WithInterval(cfg.CheckInterval()),
	), nil
}
