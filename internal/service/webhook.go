package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/buzz-lite/delivery-coordinator/internal/dedupe"
	"github.com/buzz-lite/delivery-coordinator/internal/events"
	"github.com/buzz-lite/delivery-coordinator/internal/gateway"
	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/internal/nlu"
	"github.com/buzz-lite/delivery-coordinator/internal/phone"
	"github.com/buzz-lite/delivery-coordinator/internal/store"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
	"github.com/buzz-lite/delivery-coordinator/pkg/metrics"
)

// WebhookService orchestrates one inbound customer message: dedupe, resolve
// the delivery, extract disposition slots, advance the completion state
// machine, persist, and reply.
//
// All read-modify-write work for a phone runs under that phone's lock, so at
// most one orchestration is in flight per canonical phone while different
// phones proceed fully in parallel. The duplicate filter is consulted before
// the lock so the second of two truly simultaneous duplicates is dropped
// instead of queued.
type WebhookService struct {
	filter        *dedupe.Filter
	deliveries    *store.DeliveryStore
	conversations *store.ConversationStore
	extractor     nlu.Extractor
	sender        gateway.Sender
	publisher     *events.Publisher
	logger        *logger.Logger

	historyLimit int
	phoneLocks   *keyedMutex
	now          func() time.Time
}

// NewWebhookService creates the orchestrator. historyLimit bounds the recent
// turns shown to the extraction port.
func NewWebhookService(
	filter *dedupe.Filter,
	deliveries *store.DeliveryStore,
	conversations *store.ConversationStore,
	extractor nlu.Extractor,
	sender gateway.Sender,
	publisher *events.Publisher,
	historyLimit int,
	log *logger.Logger,
) *WebhookService {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &WebhookService{
		filter:        filter,
		deliveries:    deliveries,
		conversations: conversations,
		extractor:     extractor,
		sender:        sender,
		publisher:     publisher,
		logger:        log,
		historyLimit:  historyLimit,
		phoneLocks:    newKeyedMutex(),
		now:           time.Now,
	}
}

// HandleInbound processes one provider notification and returns the stable
// result tag. It never returns an error: every failure degrades to a tag so
// a single bad event can only skip itself.
func (s *WebhookService) HandleInbound(ctx context.Context, payload *model.WebhookPayload) model.WebhookStatus {
	status := s.handleInbound(ctx, payload)
	metrics.RecordWebhookEvent(string(status))
	return status
}

func (s *WebhookService) handleInbound(ctx context.Context, payload *model.WebhookPayload) model.WebhookStatus {
	if payload == nil || payload.MessageData.TypeMessage != model.TypeTextMessage {
		return model.WebhookIgnored
	}
	text := strings.TrimSpace(payload.MessageData.TextMessageData.TextMessage)
	if text == "" || payload.SenderData.ChatID == "" {
		return model.WebhookIgnored
	}

	canonical := phone.FromChatID(payload.SenderData.ChatID)
	log := s.logger.WithPhone(canonical)

	if s.filter.IsDuplicate(canonical, text) {
		metrics.DuplicatesSuppressed.Inc()
		log.Debug("duplicate message suppressed")
		return model.WebhookDuplicate
	}

	s.phoneLocks.Lock(canonical)
	defer s.phoneLocks.Unlock(canonical)

	delivery, err := s.deliveries.FindByPhone(canonical)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Do not reveal to callers whether a number exists.
			log.Info("message from unknown recipient")
			return model.WebhookNotFound
		}
		log.Error("delivery lookup failed", zap.Error(err))
		return model.WebhookError
	}

	if delivery.Status == model.StatusComplete {
		log.Debug("conversation already complete, not replying")
		return model.WebhookAlreadyComplete
	}

	now := s.now()
	if err := s.conversations.Append(canonical, model.Turn{
		Role:      model.RoleCustomer,
		Content:   text,
		Timestamp: now,
	}); err != nil {
		log.Error("failed to record inbound turn", zap.Error(err))
		return model.WebhookError
	}

	extraction := s.extract(ctx, log, text, delivery.Slots, canonical)

	updated, err := s.deliveries.UpdateDelivery(canonical, func(d *model.Delivery) error {
		d.LastMessage = text
		interacted := now
		d.LastInteractionAt = &interacted

		changed := MergeSlots(&d.Slots, extraction.Updates)
		complete := EvaluateCompletion(&d.Slots)
		if extraction.CompleteHint && !complete {
			log.Debug("extraction completion hint rejected by domain rules")
		}

		prev := d.Status
		d.Status = NextStatus(prev, complete, changed)
		if d.Status == model.StatusComplete && prev != model.StatusComplete {
			completed := now
			d.CompletedAt = &completed
			metrics.DeliveriesCompleted.Inc()
		}
		return nil
	})
	if err != nil {
		log.Error("failed to persist delivery update", zap.Error(err))
		return model.WebhookError
	}

	if extraction.Reply != "" {
		if err := s.conversations.Append(canonical, model.Turn{
			Role:      model.RoleAgent,
			Content:   extraction.Reply,
			Timestamp: s.now(),
		}); err != nil {
			log.Error("failed to record outbound turn", zap.Error(err))
			return model.WebhookError
		}
	}

	s.publisher.DeliveryUpdated(events.DeliveryUpdatedEvent{
		BatchID:        updated.BatchID,
		SequenceNumber: updated.SequenceNumber,
		Status:         updated.Status,
		UpdatedAt:      now,
	})

	// Persist-then-send: a dispatch failure loses only this reply, never
	// state, and the customer catches up on the next inbound message.
	if extraction.Reply != "" {
		if err := s.sender.Send(ctx, canonical, extraction.Reply); err != nil {
			outcome := "failure"
			if errors.Is(err, gateway.ErrNotAllowed) {
				outcome = "blocked"
			}
			metrics.RecordOutbound(outcome)
			log.Error("failed to dispatch reply", zap.Error(err))
		} else {
			metrics.RecordOutbound("success")
		}
	}

	log.Info("inbound message processed",
		zap.String("batch_id", updated.BatchID),
		zap.Int("sequence_number", updated.SequenceNumber),
		zap.String("disposition_status", string(updated.Status)),
	)
	return model.WebhookOK
}

// extract calls the extraction port with the known-slot snapshot and the
// bounded recent history. Any failure degrades to the deterministic
// fallback; the customer never sees a raw error.
func (s *WebhookService) extract(ctx context.Context, log *logger.Logger, text string, known model.Slots, canonical string) *nlu.Extraction {
	history := s.conversations.Recent(canonical, s.historyLimit)
	if n := len(history); n > 0 {
		// The inbound turn was just appended; it travels as the message
		// itself, not as history.
		history = history[:n-1]
	}

	start := s.now()
	extraction, err := s.extractor.Extract(ctx, &nlu.Request{
		Message: text,
		Known:   known,
		History: history,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordExtraction(s.extractor.Name(), "failure", elapsed)
		log.Warn("extraction failed, using fallback", zap.Error(err))
		return nlu.Fallback()
	}
	metrics.RecordExtraction(s.extractor.Name(), "success", elapsed)
	return extraction
}

// Reset clears the conversation history and duplicate-filter state for a
// phone and returns its delivery to pending with all slots cleared. This is
// the only way past the terminal complete state.
func (s *WebhookService) Reset(ctx context.Context, rawPhone string) error {
	canonical := phone.Canonicalize(rawPhone)

	s.phoneLocks.Lock(canonical)
	defer s.phoneLocks.Unlock(canonical)

	_, err := s.deliveries.UpdateDelivery(canonical, func(d *model.Delivery) error {
		d.Slots = model.Slots{}
		d.Status = model.StatusPending
		d.LastMessage = ""
		d.CompletedAt = nil
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.conversations.Clear(canonical); err != nil {
		return err
	}
	s.filter.Reset(canonical)

	s.logger.WithPhone(canonical).Info("conversation reset")
	return nil
}
