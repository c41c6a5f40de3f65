package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"rollcall/internal/attendance"
	"rollcall/internal/metrics"
	"rollcall/internal/queue"
)

// Saver stores reports.
type Saver interface {
	SaveReport(ctx context.Context, r attendance.Report) (bool, error)
}

// Consumer drains submission messages into the ledger.
type Consumer struct {
	store  Saver
	logger *zap.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(store Saver, logger *zap.Logger) *Consumer {
	return &Consumer{store: store, logger: logger}
}

// Run handles messages until the channel closes.
func (c *Consumer) Run(ctx context.Context, messages <-chan queue.Message) {
	for msg := range messages {
		if err := c.Handle(ctx, msg); err != nil {
			c.logger.Error("ledger message failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
}

// Handle stores one message. Messages of other types are ignored.
func (c *Consumer) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeSubmission {
		metrics.LedgerMessages.WithLabelValues("skipped").Inc()
		return nil
	}
	var rep attendance.Report
	if err := json.Unmarshal(msg.Body, &rep); err != nil {
		metrics.LedgerMessages.WithLabelValues("error").Inc()
		return fmt.Errorf("decode report: %w", err)
	}
	inserted, err := c.store.SaveReport(ctx, rep)
	if err != nil {
		metrics.LedgerMessages.WithLabelValues("error").Inc()
		return err
	}
	outcome := "stored"
	if !inserted {
		outcome = "duplicate"
	}
	metrics.LedgerMessages.WithLabelValues(outcome).Inc()
	c.logger.Info("submission recorded",
		zap.String("submission", rep.ID),
		zap.String("class", rep.Class),
		zap.String("section", rep.Section),
		zap.String("date", rep.Date.String()),
		zap.Int("writes", len(rep.Results)),
		zap.Int("failed", rep.Failed()),
		zap.String("outcome", outcome))
	return nil
}
