// Package mq fans domain events out to an external broker.
package mq

import "context"

// Publisher defines the broker operations the app uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Noop discards every message. It stands in when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (Noop) Close() error { return nil }
