// Package notify abstracts outbound reminder delivery. Production wires an
// email/SMS gateway; tests use the Recorder.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"taxtrail/internal/followup/models"
)

// Delivery is one outbound reminder.
type Delivery struct {
	To      string
	Phone   string
	Channel models.Channel
	Subject string
	Body    string
}

// Notifier sends a reminder and returns the provider's message ID.
type Notifier interface {
	Send(ctx context.Context, delivery Delivery) (string, error)
}

// LogNotifier writes deliveries to the log instead of sending them. Default
// for local development.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, delivery Delivery) (string, error) {
	messageID := uuid.NewString()
	n.logger.InfoContext(ctx, "reminder delivery (log only)",
		"to", delivery.To,
		"channel", delivery.Channel,
		"subject", delivery.Subject,
		"message_id", messageID,
	)
	return messageID, nil
}

// Recorder captures deliveries for assertions and can be told to fail.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	failWith   error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every subsequent Send return err. Pass nil to recover.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *Recorder) Send(_ context.Context, delivery Delivery) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return "", r.failWith
	}
	r.deliveries = append(r.deliveries, delivery)
	return fmt.Sprintf("msg-%04d", len(r.deliveries)), nil
}

func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}
