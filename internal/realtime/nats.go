package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/yukikurage/taskmaster/internal/logging"
)

const natsSubjectPrefix = "taskmaster.tasks."

// NATSBroker publishes changes on per-owner NATS subjects and delivers them
// through a local Hub. Sequence numbers come from seq; pair it with a
// RedisSequencer when several instances publish.
type NATSBroker struct {
	conn *nats.Conn
	sub  *nats.Subscription
	seq  Sequencer
	hub  *Hub
	log  logging.Logger
}

func NewNATSBroker(conn *nats.Conn, seq Sequencer, log logging.Logger) (*NATSBroker, error) {
	b := &NATSBroker{
		conn: conn,
		seq:  seq,
		hub:  newHub(seq),
		log:  log.With("component", "realtime.nats"),
	}

	sub, err := conn.Subscribe(natsSubjectPrefix+"*", b.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to change subjects: %w", err)
	}
	b.sub = sub
	return b, nil
}

func (b *NATSBroker) handle(msg *nats.Msg) {
	c, err := decodeChange(msg.Data)
	if err != nil {
		b.log.Warn(context.Background(), "dropping malformed change", "subject", msg.Subject, "error", err)
		return
	}
	_ = b.hub.deliver(c)
}

func (b *NATSBroker) Publish(ctx context.Context, c Change) (uint64, error) {
	seq, err := b.seq.Next(ctx)
	if err != nil {
		return 0, err
	}
	c.Seq = seq
	if c.Table == "" {
		c.Table = TasksTable
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("failed to encode change: %w", err)
	}
	if err := b.conn.Publish(natsSubjectPrefix+c.UserID, payload); err != nil {
		return 0, fmt.Errorf("failed to publish change: %w", err)
	}
	return seq, nil
}

func (b *NATSBroker) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	return b.hub.Subscribe(ctx, userID)
}

func (b *NATSBroker) Seq(ctx context.Context) (uint64, error) {
	return b.seq.Current(ctx)
}

// Close ends every subscription and closes the NATS connection.
func (b *NATSBroker) Close() error {
	err := b.sub.Unsubscribe()
	b.hub.Close()
	b.conn.Close()
	return err
}
