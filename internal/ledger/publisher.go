package ledger

import (
	"context"
	"encoding/json"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/queue"
)

const publishTimeout = 5 * time.Second

// Publisher sends submission reports to the ledger queue.
type Publisher struct {
	q       queue.Queue
	timeout time.Duration
}

// NewPublisher creates a publisher writing to q.
func NewPublisher(q queue.Queue) *Publisher {
	return &Publisher{q: q, timeout: publishTimeout}
}

// Record implements attendance.Recorder.
func (p *Publisher) Record(ctx context.Context, r attendance.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	// The submission request may be gone by now; the report still has to go out,
	// but a full queue with no reader must not hold the submission forever.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return p.q.Publish(ctx, queue.Message{Type: queue.TypeSubmission, Body: body})
}
