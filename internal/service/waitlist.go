package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"turnstile/internal/config"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/ingress"
	"turnstile/internal/logger"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
)

// WaitlistService fronts the waiting queue and the admission gate. Arriving
// intents pass through the ingress buffer; a drain worker applies them to the
// queue, and buyers poll their position until admitted.
type WaitlistService struct {
	queue  WaitingQueue
	gate   AdmissionGate
	buffer ingress.Buffer
	nats   EventPublisher
	cfg    config.SaleConfig
}

func NewWaitlistService(queue WaitingQueue, gate AdmissionGate, buffer ingress.Buffer, nats EventPublisher, cfg config.SaleConfig) *WaitlistService {
	return &WaitlistService{
		queue:  queue,
		gate:   gate,
		buffer: buffer,
		nats:   nats,
		cfg:    cfg,
	}
}

// Submit absorbs a purchase intent into the ingress buffer. The buffer is the
// backpressure point: when it stays full past the bounded offer wait, the
// caller gets QueueFull and is expected to back off.
func (s *WaitlistService) Submit(ctx context.Context, ticketID int64, buyerID string) (*models.EnqueueResponse, error) {
	intent := models.EnqueueIntent{
		TicketID:   ticketID,
		BuyerID:    buyerID,
		ReceivedAt: time.Now(),
	}

	if err := s.buffer.Offer(ctx, intent); err != nil {
		if errors.Is(err, apperrors.ErrQueueFull) {
			metrics.IngressRejected.Inc()
		}
		return nil, err
	}

	return &models.EnqueueResponse{Status: "queued"}, nil
}

// ApplyIntent moves one buffered intent into the waiting queue. Called by the
// drain worker, never by request handlers directly.
func (s *WaitlistService) ApplyIntent(ctx context.Context, intent models.EnqueueIntent) error {
	position, err := s.queue.Enqueue(ctx, intent.TicketID, intent.BuyerID)
	if err != nil {
		return fmt.Errorf("failed to enqueue intent: %w", err)
	}

	event := models.WaitlistJoinedEvent{
		TicketID:  intent.TicketID,
		BuyerID:   intent.BuyerID,
		Position:  position,
		Timestamp: time.Now(),
	}
	if err := s.nats.Publish(models.EventWaitlistJoined, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish waitlist joined event",
			"error", err,
			"ticket_id", intent.TicketID,
			"event_type", models.EventWaitlistJoined)
	}

	return nil
}

// DrainIntents applies up to batchSize buffered intents and returns how many
// were processed
func (s *WaitlistService) DrainIntents(ctx context.Context, batchSize int) (int, error) {
	batch, err := s.buffer.DrainBatch(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	for i, intent := range batch {
		if err := s.ApplyIntent(ctx, intent); err != nil {
			return i, err
		}
	}
	return len(batch), nil
}

// Position returns the buyer's zero-based rank and whether the admission
// threshold has reached them
func (s *WaitlistService) Position(ctx context.Context, ticketID int64, buyerID string) (*models.PositionResponse, error) {
	position, err := s.queue.Position(ctx, ticketID, buyerID)
	if err != nil {
		return nil, err
	}

	admitted, err := s.isAdmitted(ctx, ticketID, position)
	if err != nil {
		return nil, err
	}

	return &models.PositionResponse{
		Position: position,
		Admitted: admitted,
	}, nil
}

// CheckAdmitted fails with ErrInvalidWaitOrder when the buyer has no live
// entry or sits beyond the admitted threshold
func (s *WaitlistService) CheckAdmitted(ctx context.Context, ticketID int64, buyerID string) error {
	position, err := s.queue.Position(ctx, ticketID, buyerID)
	if err != nil {
		return err
	}

	admitted, err := s.isAdmitted(ctx, ticketID, position)
	if err != nil {
		return err
	}
	if !admitted {
		return apperrors.ErrInvalidWaitOrder
	}
	return nil
}

// isAdmitted: a short queue is purchasable outright; otherwise the buyer's
// zero-based position must be strictly below the admitted-through threshold.
func (s *WaitlistService) isAdmitted(ctx context.Context, ticketID, position int64) (bool, error) {
	depth, err := s.queue.Depth(ctx, ticketID)
	if err != nil {
		return false, err
	}
	if depth <= s.cfg.PurchasableQueueSize {
		return true, nil
	}

	threshold, err := s.gate.AdmittedThrough(ctx, ticketID)
	if err != nil {
		return false, err
	}
	return position < threshold, nil
}

func (s *WaitlistService) Heartbeat(ctx context.Context, ticketID int64, buyerID string) error {
	return s.queue.Heartbeat(ctx, ticketID, buyerID)
}

func (s *WaitlistService) Withdraw(ctx context.Context, ticketID int64, buyerID string) error {
	return s.queue.Remove(ctx, ticketID, buyerID)
}

// AdvanceAdmission bumps the threshold by the configured chunk, bounded by
// the live queue depth. Runs periodically from the sweeper.
func (s *WaitlistService) AdvanceAdmission(ctx context.Context, ticketID int64) (int64, error) {
	depth, err := s.queue.Depth(ctx, ticketID)
	if err != nil {
		return 0, err
	}

	threshold, err := s.gate.Advance(ctx, ticketID, s.cfg.AdmissionChunkSize, depth)
	if err != nil {
		return 0, err
	}

	label := strconv.FormatInt(ticketID, 10)
	metrics.WaitingDepth.WithLabelValues(label).Set(float64(depth))
	metrics.AdmittedThrough.WithLabelValues(label).Set(float64(threshold))

	return threshold, nil
}

// SweepExpired evicts front-of-queue entries whose heartbeat lapsed
func (s *WaitlistService) SweepExpired(ctx context.Context, ticketID int64) (int, error) {
	evicted, err := s.queue.SweepExpired(ctx, ticketID, s.cfg.WaitingSweepWindow)
	if err != nil {
		return 0, err
	}

	for _, buyerID := range evicted {
		metrics.WaitingEvicted.Inc()
		event := models.WaitlistJoinedEvent{
			TicketID:  ticketID,
			BuyerID:   buyerID,
			Timestamp: time.Now(),
		}
		if err := s.nats.Publish(models.EventWaitlistEvicted, event); err != nil {
			logger.WithContext(ctx).Error("Failed to publish waitlist evicted event",
				"error", err,
				"ticket_id", ticketID,
				"event_type", models.EventWaitlistEvicted)
		}
	}

	return len(evicted), nil
}

// BufferSaturation reports the ingress fill fraction for health checks
func (s *WaitlistService) BufferSaturation(ctx context.Context) (float64, error) {
	size, err := s.buffer.Size(ctx)
	if err != nil {
		return 0, err
	}
	saturation := ingress.Saturation(size, s.buffer.Capacity())
	metrics.IngressSaturation.Set(saturation)
	return saturation, nil
}
