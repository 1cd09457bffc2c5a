// Package notify carries user facing notifications from services to the
// transport that displays them.
package notify

import (
	"context"
	"sync"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message shown to the user.
type Notification struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

type contextKey struct{}

// WithNotifier returns a context carrying notifier.
func WithNotifier(ctx context.Context, notifier Notifier) context.Context {
	if notifier == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, notifier)
}

// FromContext returns the notifier stored in ctx or a notifier that drops
// everything.
func FromContext(ctx context.Context) Notifier {
	if ctx != nil {
		if notifier, ok := ctx.Value(contextKey{}).(Notifier); ok && notifier != nil {
			return notifier
		}
	}
	return discard{}
}

// Success sends a success notification through the notifier in ctx.
func Success(ctx context.Context, title string) {
	FromContext(ctx).Notify(Notification{Level: LevelSuccess, Title: title})
}

// Error sends an error notification through the notifier in ctx.
func Error(ctx context.Context, title, description string) {
	FromContext(ctx).Notify(Notification{Level: LevelError, Title: title, Description: description})
}

type discard struct{}

func (discard) Notify(Notification) {}

// Collector accumulates notifications in memory.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

// Notify implements Notifier.
func (c *Collector) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

// Drain returns the collected notifications and resets the collector.
func (c *Collector) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items
	c.items = nil
	return items
}
