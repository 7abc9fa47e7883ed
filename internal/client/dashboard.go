package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/dto"
	"github.com/yukikurage/taskmaster/internal/logging"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/realtime"
)

var (
	// ErrViewClosed is returned for operations whose view was closed while
	// they were in flight. Their results are discarded.
	ErrViewClosed = errors.New("dashboard closed")

	ErrTitleRequired   = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title is too long")
	ErrInvalidPriority = errors.New("priority must be one of low, medium, high")

	errResync      = errors.New("stream fell behind")
	errStreamEnded = errors.New("stream ended")
)

// Dashboard is the live task list view. It keeps a TaskList in step with the
// server's change stream; its own writes are never spliced in directly and
// show up once the stream delivers them.
type Dashboard struct {
	client   *Client
	log      logging.Logger
	onChange func([]models.Task)
	backoff  func() retry.Backoff

	list realtime.TaskList

	mu     sync.Mutex
	gen    uint64
	closed bool
	cancel context.CancelFunc
	ready  chan struct{}
}

// NewDashboard creates a dashboard. onChange, if set, receives the full list
// after every applied snapshot or change.
func NewDashboard(c *Client, log logging.Logger, onChange func([]models.Task)) *Dashboard {
	return &Dashboard{
		client:   c,
		log:      log.With("component", "dashboard"),
		onChange: onChange,
		backoff: func() retry.Backoff {
			b := retry.NewExponential(500 * time.Millisecond)
			b = retry.WithCappedDuration(10*time.Second, b)
			return retry.WithMaxRetries(10, b)
		},
		ready: make(chan struct{}),
	}
}

// Run follows the change stream until ctx is cancelled or Close is called.
// A dropped stream is reopened with backoff and starts from a new snapshot.
func (d *Dashboard) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrViewClosed
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	err := d.follow(ctx)
	if errors.Is(err, context.Canceled) && d.isClosed() {
		return nil
	}
	return err
}

// follow keeps the stream open. The backoff starts over after every
// connection that delivered a snapshot, so only consecutive failures count
// against the retry limit.
func (d *Dashboard) follow(ctx context.Context) error {
	b := d.backoff()
	for {
		healthy, err := d.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			err = errStreamEnded
		}
		if !retryable(err) {
			return err
		}

		if healthy {
			b = d.backoff()
		}
		delay, stop := b.Next()
		if stop {
			return err
		}
		d.log.Warn(ctx, "task stream interrupted, reconnecting", "error", err, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// connect runs one stream connection and reports whether it got as far as a
// snapshot.
func (d *Dashboard) connect(ctx context.Context) (bool, error) {
	healthy := false
	err := d.client.StreamTasks(ctx, func(ev Event) error {
		if err := d.handle(ev); err != nil {
			return err
		}
		if ev.Name == "snapshot" {
			healthy = true
		}
		return nil
	})
	return healthy, err
}

// Ready is closed once the first snapshot has been applied.
func (d *Dashboard) Ready() <-chan struct{} {
	return d.ready
}

func (d *Dashboard) handle(ev Event) error {
	if d.isClosed() {
		return ErrViewClosed
	}

	switch ev.Name {
	case "snapshot":
		var snap dto.TaskListResponse
		if err := json.Unmarshal(ev.Data, &snap); err != nil {
			return fmt.Errorf("bad snapshot: %w", err)
		}
		tasks := make([]models.Task, len(snap.Tasks))
		for i, t := range snap.Tasks {
			tasks[i] = dto.ToTaskModel(t)
		}
		d.list.Reset(tasks, snap.Snapshot)
		d.markReady()
		d.notify()

	case "change":
		var change realtime.Change
		if err := json.Unmarshal(ev.Data, &change); err != nil {
			return fmt.Errorf("bad change: %w", err)
		}
		if change.Table != "" && change.Table != realtime.TasksTable {
			return nil
		}
		if d.list.Apply(change) {
			d.notify()
		}

	case "resync":
		return errResync
	}
	return nil
}

func (d *Dashboard) notify() {
	if d.onChange != nil && !d.isClosed() {
		d.onChange(d.list.Tasks())
	}
}

func (d *Dashboard) markReady() {
	select {
	case <-d.ready:
	default:
		close(d.ready)
	}
}

// Tasks returns the current list, newest first.
func (d *Dashboard) Tasks() []models.Task {
	return d.list.Tasks()
}

// Pending counts incomplete tasks.
func (d *Dashboard) Pending() int {
	return d.list.Pending()
}

// AddTask validates the form and submits it. The title is trimmed and the
// priority defaults to medium.
func (d *Dashboard) AddTask(ctx context.Context, title, description string, priority models.TaskPriority) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrTitleRequired
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	if len(title) > constants.MaxTitleLength {
		return ErrTitleTooLong
	}

	return d.inFlight(ctx, func(ctx context.Context) error {
		_, err := d.client.CreateTask(ctx, TaskInput{Title: title, Description: description, Priority: priority})
		return err
	})
}

// ToggleTask flips a task's completion.
func (d *Dashboard) ToggleTask(ctx context.Context, id string) error {
	return d.inFlight(ctx, func(ctx context.Context) error {
		_, err := d.client.ToggleTask(ctx, id)
		return err
	})
}

// SetPriority changes a task's priority.
func (d *Dashboard) SetPriority(ctx context.Context, id string, priority models.TaskPriority) error {
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	return d.inFlight(ctx, func(ctx context.Context) error {
		_, err := d.client.UpdateTask(ctx, id, TaskPatch{Priority: &priority})
		return err
	})
}

// DeleteTask removes a task.
func (d *Dashboard) DeleteTask(ctx context.Context, id string) error {
	return d.inFlight(ctx, func(ctx context.Context) error {
		return d.client.DeleteTask(ctx, id)
	})
}

// inFlight runs op and reports ErrViewClosed instead of its outcome when
// the view was closed before it finished.
func (d *Dashboard) inFlight(ctx context.Context, op func(context.Context) error) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrViewClosed
	}
	gen := d.gen
	d.mu.Unlock()

	err := op(ctx)

	d.mu.Lock()
	stale := d.closed || d.gen != gen
	d.mu.Unlock()
	if stale {
		return ErrViewClosed
	}
	return err
}

// Close ends the view. Run returns, stream events stop being applied, and
// operations still in flight report ErrViewClosed.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	d.gen++
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Dashboard) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func retryable(err error) bool {
	if errors.Is(err, errResync) || errors.Is(err, errStreamEnded) {
		return true
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	// Transport failures.
	return !errors.Is(err, ErrViewClosed)
}
