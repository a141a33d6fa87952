// Package events publishes delivery lifecycle events over NATS so the
// operator dashboard can refresh without polling. Publishing is
// fire-and-forget and entirely optional: a nil Publisher is a no-op.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
)

const (
	// SubjectBatchCreated announces a new batch.
	SubjectBatchCreated = "buzz.batch.created"

	// SubjectDeliveryUpdated announces a disposition change; the batch ID
	// is appended as a subject token.
	SubjectDeliveryUpdated = "buzz.delivery.updated"
)

// Publisher publishes events to NATS.
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// Connect establishes a NATS connection for event publishing.
func Connect(url string, log *logger.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, logger: log}, nil
}

// Connected reports whether the event connection is usable. An
// unconfigured publisher is trivially healthy.
func (p *Publisher) Connected() bool {
	if p == nil || p.conn == nil {
		return true
	}
	return p.conn.IsConnected()
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// BatchCreatedEvent is published when an operator creates a batch.
type BatchCreatedEvent struct {
	BatchID         string    `json:"batch_id"`
	DispatcherPhone string    `json:"dispatcher_phone"`
	Deliveries      int       `json:"deliveries"`
	CreatedAt       time.Time `json:"created_at"`
}

// DeliveryUpdatedEvent is published after a webhook orchestration persists a
// disposition change.
type DeliveryUpdatedEvent struct {
	BatchID        string       `json:"batch_id"`
	SequenceNumber int          `json:"sequence_number"`
	Status         model.Status `json:"status"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// BatchCreated publishes a batch creation event.
func (p *Publisher) BatchCreated(ev BatchCreatedEvent) {
	p.publish(SubjectBatchCreated, ev)
}

// DeliveryUpdated publishes a disposition change event.
func (p *Publisher) DeliveryUpdated(ev DeliveryUpdatedEvent) {
	p.publish(SubjectDeliveryUpdated+"."+ev.BatchID, ev)
}

func (p *Publisher) publish(subject string, v any) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("failed to encode event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
