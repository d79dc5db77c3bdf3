package audit

import (
	"context"
	"errors"
	"time"
)

// Store is the audit sink. Memory for tests, Kafka for production fan-out.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses the
// store for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.store.Append(ctx, base)
}

// ChannelStore decouples emitters from the real sink: Append enqueues and a
// Worker drains into the durable store. A full queue drops the event instead
// of blocking a request.
type ChannelStore struct {
	inbox chan<- Event
}

func NewChannelStore(inbox chan<- Event) *ChannelStore {
	return &ChannelStore{inbox: inbox}
}

var ErrQueueFull = errors.New("audit queue full")

func (s *ChannelStore) Append(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}
