// Package notify delivers ingestion run reports to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/config"
	"github.com/darshan-rambhia/tempdb/internal/model"
)

// Provider sends notifications through a specific channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, n model.Notification) error
}

// Dispatcher sends each notification to every configured provider.
type Dispatcher struct {
	providers []Provider
	timeout   time.Duration
}

// NewDispatcher creates a Dispatcher over the given providers.
func NewDispatcher(providers ...Provider) *Dispatcher {
	return &Dispatcher{providers: providers, timeout: 15 * time.Second}
}

// FromConfig builds a Dispatcher from notification config entries.
func FromConfig(cfgs []config.NotificationConfig) (*Dispatcher, error) {
	var providers []Provider
	for i, c := range cfgs {
		switch c.Type {
		case "ntfy":
			providers = append(providers, NewNtfy(c.URL, c.Topic))
		case "webhook":
			providers = append(providers, NewWebhook(c.URL, c.Method, c.Headers))
		default:
			return nil, fmt.Errorf("notifications[%d]: unknown type %q", i, c.Type)
		}
	}
	return NewDispatcher(providers...), nil
}

// Len returns the number of providers.
func (d *Dispatcher) Len() int { return len(d.providers) }

// Send delivers n to every provider, continuing past failures. Each failure
// is logged and the joined error is returned.
func (d *Dispatcher) Send(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, p := range d.providers {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := p.Send(sendCtx, n)
		cancel()
		if err != nil {
			slog.Error("sending notification", "provider", p.Name(), "kind", n.Kind, "error", err)
			errs = append(errs, err)
			continue
		}
		slog.Debug("notification sent", "provider", p.Name(), "kind", n.Kind)
	}
	return errors.Join(errs...)
}

// outcome classifies a run report: "stopped", "partial", "complete", or
// "no_new_files" for a clean run that stored nothing. Notifications with an
// unknown severity have no outcome.
func outcome(n model.Notification) string {
	switch n.Severity {
	case "critical":
		return "stopped"
	case "warning":
		return "partial"
	case "info":
		if n.Metadata["ingested"] == "0" {
			return "no_new_files"
		}
		return "complete"
	}
	return ""
}

// runCounts returns the numeric metadata of a run report.
func runCounts(n model.Notification) map[string]int {
	var counts map[string]int
	for k, v := range n.Metadata {
		c, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		if counts == nil {
			counts = make(map[string]int)
		}
		counts[k] = c
	}
	return counts
}
