package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tlnguyen/price-radar/internal/database"
	"github.com/tlnguyen/price-radar/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePriceSnapshotUpdated is published after every persisted
	// refresh cycle.
	EventTypePriceSnapshotUpdated EventType = "PRICE_SNAPSHOT_UPDATED"
)

// PriceSnapshotUpdatedPayload is the wire shape consumers read from the
// price stream.
type PriceSnapshotUpdatedPayload struct {
	EventID    string               `json:"event_id"`
	EventType  string               `json:"event_type"`
	Timestamp  time.Time            `json:"timestamp"`
	ProductID  string               `json:"product_id"`
	Snapshot   models.PriceSnapshot `json:"snapshot"`
	LiveCount  int                  `json:"live_count"`
	EntryCount int                  `json:"entry_count"`
	Source     string               `json:"source"`
}

// Publisher writes price events through the transactional outbox so the
// snapshot update and its event either both land or neither does.
type Publisher struct {
	db     *database.DB
	outbox *database.OutboxRepository
	logger *slog.Logger
}

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: database.NewOutboxRepository(db),
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishSnapshotUpdated records a PRICE_SNAPSHOT_UPDATED event for relay to
// the price stream.
func (p *Publisher) PublishSnapshotUpdated(ctx context.Context, productID string, snapshot models.PriceSnapshot) error {
	payload := &PriceSnapshotUpdatedPayload{
		EventID:    uuid.New().String(),
		EventType:  string(EventTypePriceSnapshotUpdated),
		Timestamp:  time.Now(),
		ProductID:  productID,
		Snapshot:   snapshot,
		LiveCount:  snapshot.LiveCount(),
		EntryCount: len(snapshot),
		Source:     "price-radar",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "product_prices",
		AggregateID:   productID,
		EventType:     string(EventTypePriceSnapshotUpdated),
		Payload:       data,
		TargetStream:  database.DefaultPriceStream,
	}

	err = p.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"product_id", productID,
		"outbox_id", outboxEvent.ID,
	)

	return nil
}
