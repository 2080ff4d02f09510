// Package notify fans operator alerts out to the configured channels
// (Telegram, Discord), filtered by event type.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Channel delivers a single alert to one destination.
type Channel interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Dispatcher routes alerts to every configured channel. Events not present in
// the allowed set are dropped; an empty set allows everything.
type Dispatcher struct {
	channels []Channel
	allowed  map[string]bool
	logger   *slog.Logger
}

// NewDispatcher builds a Dispatcher for the given channels and event filter.
func NewDispatcher(channels []Channel, events []string, logger *slog.Logger) *Dispatcher {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Dispatcher{
		channels: channels,
		allowed:  allowed,
		logger:   logger.With(slog.String("component", "notify")),
	}
}

// Notify delivers the alert to every channel if its event type passes the
// filter. Per-channel failures are logged and folded into the returned error
// without blocking the other channels.
func (d *Dispatcher) Notify(ctx context.Context, event, title, message string) error {
	if len(d.allowed) > 0 && !d.allowed[event] {
		return nil
	}
	if len(d.channels) == 0 {
		return nil
	}

	var failed []string
	for _, ch := range d.channels {
		if err := ch.Send(ctx, title, message); err != nil {
			d.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("channel", ch.Name()),
				slog.String("error", err.Error()))
			failed = append(failed, fmt.Sprintf("%s: %v", ch.Name(), err))
			continue
		}
		d.logger.DebugContext(ctx, "alert delivered",
			slog.String("channel", ch.Name()),
			slog.String("event", event))
	}

	if len(failed) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(failed, "; "))
	}
	return nil
}
