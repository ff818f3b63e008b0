// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package composite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/azzuwayed/serversentry/internal/status"
)

// RuleFile is the on-disk YAML shape of one composite rule (spec.md §3
// "Composite rule" and §6 "per-composite rule files provide name,
// description, enabled, severity, cooldown, rule expression,
// notify_on_trigger, notify_on_recovery, notification_message").
type RuleFile struct {
	Name                string `yaml:"name"`
	Description         string `yaml:"description"`
	Enabled             bool   `yaml:"enabled"`
	Severity            string `yaml:"severity"`
	CooldownSeconds     int    `yaml:"cooldown"`
	Rule                string `yaml:"rule"`
	NotifyOnTrigger     bool   `yaml:"notify_on_trigger"`
	NotifyOnRecovery    bool   `yaml:"notify_on_recovery"`
	NotificationMessage string `yaml:"notification_message"`
}

// Rule is a parsed, ready-to-evaluate composite rule.
type Rule struct {
	RuleFile
	Severity status.Level
	Expr     *Node
}

// ParseSeverity maps the YAML severity string to a status.Level, defaulting
// to WARNING for an unrecognised or empty value.
func ParseSeverity(s string) status.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return status.CRITICAL
	case "OK":
		return status.OK
	case "UNKNOWN":
		return status.UNKNOWN
	default:
		return status.WARNING
	}
}

func compile(rf RuleFile) (*Rule, error) {
	node, err := Parse(rf.Rule)
	if err != nil {
		return nil, fmt.Errorf("composite: rule %q: %w", rf.Name, err)
	}
	return &Rule{RuleFile: rf, Severity: ParseSeverity(rf.Severity), Expr: node}, nil
}

func loadRuleFile(path string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("composite: reading %s: %w", path, err)
	}
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("composite: parsing %s: %w", path, err)
	}
	if rf.Name == "" {
		rf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return compile(rf)
}

// Registry holds the set of loaded composite rules, keyed by name, and
// optionally hot-reloads them from a watched directory (spec.md §6
// "composite_checks.config_directory").
type Registry struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	dir   string

	watcher *fsnotify.Watcher
	log     zerolog.Logger
	done    chan struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{rules: make(map[string]*Rule), log: log}
}

// LoadDirectory replaces the Registry's rule set with every "*.yaml"/
// "*.yml" file found directly under dir. A rule file that fails to parse
// is logged and skipped rather than aborting the whole load.
func (reg *Registry) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("composite: reading rule directory %s: %w", dir, err)
	}

	loaded := make(map[string]*Rule)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		rule, err := loadRuleFile(path)
		if err != nil {
			reg.log.Warn().Err(err).Str("file", path).Msg("skipping invalid composite rule file")
			continue
		}
		loaded[rule.Name] = rule
	}

	reg.mu.Lock()
	reg.rules = loaded
	reg.dir = dir
	reg.mu.Unlock()
	return nil
}

// Rules returns a snapshot slice of the currently loaded, enabled rules.
func (reg *Registry) Rules() []*Rule {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Rule, 0, len(reg.rules))
	for _, r := range reg.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}

// Watch starts an fsnotify watch on the Registry's rule directory,
// reloading the whole directory on any create/write/remove/rename event.
// Call Close to stop watching.
func (reg *Registry) Watch() error {
	reg.mu.RLock()
	dir := reg.dir
	reg.mu.RUnlock()
	if dir == "" {
		return fmt.Errorf("composite: Watch called before LoadDirectory")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("composite: creating watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("composite: watching %s: %w", dir, err)
	}

	reg.watcher = w
	reg.done = make(chan struct{})
	go reg.watchLoop(dir)
	return nil
}

func (reg *Registry) watchLoop(dir string) {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-reg.done:
			return
		case ev, ok := <-reg.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				if !pending {
					pending = true
					debounce.Reset(250 * time.Millisecond)
				}
			}
		case err, ok := <-reg.watcher.Errors:
			if !ok {
				return
			}
			reg.log.Warn().Err(err).Msg("composite rule watcher error")
		case <-debounce.C:
			pending = false
			if err := reg.LoadDirectory(dir); err != nil {
				reg.log.Warn().Err(err).Msg("reloading composite rules after filesystem change")
			} else {
				reg.log.Info().Str("dir", dir).Msg("reloaded composite rules")
			}
		}
	}
}

// Close stops the directory watch, if started.
func (reg *Registry) Close() error {
	if reg.watcher == nil {
		return nil
	}
	close(reg.done)
	return reg.watcher.Close()
}
