// Package realtime fans task row changes out to subscribers filtered by
// owner, and applies them to an in-memory task list on the receiving side.
package realtime

import (
	"context"
	"errors"

	"github.com/yukikurage/taskmaster/internal/models"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

const TasksTable = "tasks"

// Change is a row-level change on the tasks table. Seq is assigned by the
// broker on publish and increases monotonically.
type Change struct {
	Seq       uint64       `json:"seq"`
	EventType ChangeType   `json:"eventType"`
	Table     string       `json:"table"`
	UserID    string       `json:"user_id"`
	New       *models.Task `json:"new,omitempty"`
	Old       *models.Task `json:"old,omitempty"`
}

// TaskID returns the ID of the row the change refers to.
func (c Change) TaskID() string {
	if c.New != nil {
		return c.New.ID
	}
	if c.Old != nil {
		return c.Old.ID
	}
	return ""
}

var ErrBrokerClosed = errors.New("realtime: broker closed")

// Broker publishes changes and delivers them to per-owner subscriptions.
type Broker interface {
	// Publish assigns the next sequence number to c and delivers it.
	Publish(ctx context.Context, c Change) (uint64, error)

	// Subscribe opens a subscription for changes owned by userID. The
	// subscription ends when ctx is cancelled or Close is called.
	Subscribe(ctx context.Context, userID string) (*Subscription, error)

	// Seq returns the sequence number of the most recently published change.
	Seq(ctx context.Context) (uint64, error)

	Close() error
}

// Sequencer hands out monotonically increasing change sequence numbers.
type Sequencer interface {
	Next(ctx context.Context) (uint64, error)
	Current(ctx context.Context) (uint64, error)
}
