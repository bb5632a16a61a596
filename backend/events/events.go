package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Темы событий
const (
	ActivityRecorded       = "sadhana.activity.recorded"
	ActivityUpdated        = "sadhana.activity.updated"
	BhogaScheduleReplaced  = "sadhana.bhoga.schedule.replaced"
	PreachingStatusUpdated = "sadhana.preaching.status.updated"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

// Envelope - обёртка, в которой событие уходит в шину
type Envelope struct {
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

type ActivityEvent struct {
	ActivityID string `json:"activityId"`
	UserID     string `json:"userId"`
	Date       string `json:"date"`
	ActorID    string `json:"actorId"`
}

type ScheduleEvent struct {
	ActorID     string            `json:"actorId"`
	Assignments map[string]string `json:"assignments"`
}

type StatusEvent struct {
	Date    string `json:"date"`
	ActorID string `json:"actorId"`
	Count   int    `json:"count"`
}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("sadhana-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := encode(subject, data)
	if err != nil {
		return err
	}
	n.logger.DebugContext(ctx, "publishing event", "subject", subject, "bytes", len(payload))
	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	return n.conn.Drain()
}

// NoopPublisher используется, когда NATS_URL не задан
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error { return nil }

func encode(subject string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}
	payload, err := json.Marshal(Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return payload, nil
}
