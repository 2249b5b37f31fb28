package services

import "context"

/*
Interfaces are declared where they are used. The dispatcher consumes a
sink; the Redis publisher in package pubsub satisfies it without
importing this package.
*/

// EventSink delivers one event to an external consumer. It may block on I/O.
type EventSink interface {
	Publish(ctx context.Context, sessionID string, event any) error
}
