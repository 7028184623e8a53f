// Package activity reports room lifecycle events (joins, leaves, rooms
// appearing and disappearing, canvas clears) to an external feed. Drawing
// records themselves are never published.
package activity

import (
	"context"
	"time"
)

type Kind string

const (
	Joined      Kind = "joined"
	Left        Kind = "left"
	RoomCreated Kind = "room_created"
	RoomRemoved Kind = "room_removed"
	Cleared     Kind = "cleared"
)

type Event struct {
	Kind     Kind      `json:"kind"`
	Room     string    `json:"room"`
	User     string    `json:"user,omitempty"`
	ClientID string    `json:"clientId,omitempty"`
	Time     time.Time `json:"time"`
}

// Publisher must not block the caller for long; sessions call it inline.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
