package notification

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one notification to its recipient. Implementations wrap a
// real transport (email, push); delivery is expected to be idempotent enough
// to tolerate at-least-once dispatch.
type Sender interface {
	Send(ctx context.Context, recipientID, template string, payload map[string]any) error
}

// LogSender writes notifications to the application log. It stands in for a
// real transport in development and tests.
type LogSender struct {
	Logger *zap.Logger
}

func (s *LogSender) Send(_ context.Context, recipientID, template string, payload map[string]any) error {
	s.Logger.Info("notification delivered",
		zap.String("recipient_id", recipientID),
		zap.String("template", template),
		zap.Any("payload", payload))
	return nil
}

// Dispatcher drains the outbox in the background. Each cycle claims a batch of
// pending rows, attempts delivery, and records the outcome. A row that keeps
// failing is retried until maxAttempts, then parked as failed.
type Dispatcher struct {
	repo        Repository
	sender      Sender
	logger      *zap.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	stopChan    chan struct{}
	doneChan    chan struct{}
}

func NewDispatcher(repo Repository, sender Sender, logger *zap.Logger, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		sender:      sender,
		logger:      logger,
		interval:    interval,
		batchSize:   50,
		maxAttempts: 5,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start launches the dispatch loop. It returns immediately.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("starting notification dispatcher",
		zap.Duration("interval", d.interval))

	go d.run(ctx)
}

// Stop signals the loop to exit and waits for the current cycle to finish.
func (d *Dispatcher) Stop() {
	close(d.stopChan)
	<-d.doneChan
	d.logger.Info("notification dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.doneChan)

	// First pass right away so restarts drain promptly.
	d.DispatchOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.DispatchOnce(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// DispatchOnce runs a single claim-deliver-record cycle and returns the number
// of successfully delivered notifications.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	batch, err := d.repo.ClaimPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("failed to claim pending notifications", zap.Error(err))
		return 0
	}

	sent := 0
	for _, n := range batch {
		var payload map[string]any
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			// Unparseable payloads will never succeed, park them immediately.
			d.logger.Error("notification payload corrupt",
				zap.String("notification_id", n.ID), zap.Error(err))
			if err := d.repo.MarkFailed(ctx, n.ID, "corrupt payload: "+err.Error(), true); err != nil {
				d.logger.Error("failed to mark notification", zap.String("notification_id", n.ID), zap.Error(err))
			}
			continue
		}

		if err := d.sender.Send(ctx, n.RecipientID, n.Template, payload); err != nil {
			terminal := n.Attempts >= d.maxAttempts
			d.logger.Warn("notification delivery failed",
				zap.String("notification_id", n.ID),
				zap.Int("attempts", n.Attempts),
				zap.Bool("terminal", terminal),
				zap.Error(err))
			if err := d.repo.MarkFailed(ctx, n.ID, err.Error(), terminal); err != nil {
				d.logger.Error("failed to mark notification", zap.String("notification_id", n.ID), zap.Error(err))
			}
			continue
		}

		if err := d.repo.MarkSent(ctx, n.ID); err != nil {
			d.logger.Error("failed to mark notification sent",
				zap.String("notification_id", n.ID), zap.Error(err))
			continue
		}
		sent++
	}

	return sent
}
