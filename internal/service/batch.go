package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/buzz-lite/delivery-coordinator/internal/events"
	"github.com/buzz-lite/delivery-coordinator/internal/gateway"
	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/internal/phone"
	"github.com/buzz-lite/delivery-coordinator/internal/store"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
	"github.com/buzz-lite/delivery-coordinator/pkg/metrics"
)

// ErrEmptyBatch is returned when a batch creation request has no deliveries.
var ErrEmptyBatch = errors.New("batch has no deliveries")

const openingMessageTemplate = `היי%s! 👋 כאן השליח של Buzz.
יש לי משלוח עבורך שצפוי להגיע בין השעות %s.

כדי שאוכל למסור אותו, אני צריך לדעת:
❓ האם יהיה מישהו בבית בשעות אלו? (כן / לא)`

// BatchService creates delivery batches and serves the dispatcher views.
// Batch creation registers every recipient phone on the allow-list before
// the opening messages go out, and must not interleave with an in-flight
// orchestration for the same phone, so it takes the same per-phone locks.
type BatchService struct {
	deliveries *store.DeliveryStore
	allowlist  *gateway.Allowlist
	sender     gateway.Sender
	publisher  *events.Publisher
	logger     *logger.Logger

	phoneLocks *keyedMutex
	now        func() time.Time
}

// NewBatchService creates a batch service sharing the orchestrator's
// per-phone locks.
func NewBatchService(
	deliveries *store.DeliveryStore,
	allowlist *gateway.Allowlist,
	sender gateway.Sender,
	publisher *events.Publisher,
	webhooks *WebhookService,
	log *logger.Logger,
) *BatchService {
	return &BatchService{
		deliveries: deliveries,
		allowlist:  allowlist,
		sender:     sender,
		publisher:  publisher,
		logger:     log,
		phoneLocks: webhooks.phoneLocks,
		now:        time.Now,
	}
}

// CreateBatch builds and persists a batch from the operator request,
// registers the recipients on the allow-list, and sends every recipient the
// opening message with their estimated arrival window. Send failures are
// logged and counted but do not fail the batch; the conversation starts on
// the customer's side whenever the message does land or they write first.
func (s *BatchService) CreateBatch(ctx context.Context, req *model.CreateBatchRequest) (*model.CreateBatchResponse, error) {
	if len(req.Deliveries) == 0 {
		return nil, ErrEmptyBatch
	}
	if req.DispatcherPhone == "" {
		return nil, errors.New("dispatcher phone is required")
	}

	now := s.now()
	batch := &model.Batch{
		ID:              newBatchID(now),
		DispatcherPhone: phone.Canonicalize(req.DispatcherPhone),
		CreatedAt:       now,
	}

	for i, entry := range req.Deliveries {
		if entry.RecipientPhone == "" {
			return nil, fmt.Errorf("delivery %d: recipient phone is required", i+1)
		}
		seq := entry.SequenceNumber
		if seq == 0 {
			seq = i + 1
		}
		name := entry.RecipientName
		if name == "" {
			name = "לקוח"
		}
		batch.Deliveries = append(batch.Deliveries, model.Delivery{
			SequenceNumber:     seq,
			BatchID:            batch.ID,
			RecipientName:      name,
			RecipientPhone:     phone.Canonicalize(entry.RecipientPhone),
			City:               entry.City,
			Street:             entry.Street,
			Status:             model.StatusPending,
			EstimatedTimeRange: EstimatedTimeRange(i+1, now),
		})
	}

	// Allow-list first: a recipient may answer the opening message before
	// the loop below finishes.
	for _, d := range batch.Deliveries {
		s.allowlist.Add(d.RecipientPhone)
	}

	// Take the per-phone locks in sorted order so two overlapping batch
	// creations cannot deadlock.
	phones := make([]string, 0, len(batch.Deliveries))
	seen := make(map[string]struct{}, len(batch.Deliveries))
	for _, d := range batch.Deliveries {
		if _, ok := seen[d.RecipientPhone]; ok {
			continue
		}
		seen[d.RecipientPhone] = struct{}{}
		phones = append(phones, d.RecipientPhone)
	}
	sort.Strings(phones)
	for _, p := range phones {
		s.phoneLocks.Lock(p)
	}
	err := s.deliveries.PutBatch(batch)
	for _, p := range phones {
		s.phoneLocks.Unlock(p)
	}
	if err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}

	log := s.logger.WithBatch(batch.ID)
	sent := 0
	for _, d := range batch.Deliveries {
		if err := s.sender.Send(ctx, d.RecipientPhone, openingMessage(d)); err != nil {
			metrics.RecordOutbound("failure")
			log.Error("failed to send opening message",
				zap.String("phone", d.RecipientPhone), zap.Error(err))
			continue
		}
		metrics.RecordOutbound("success")
		sent++
	}

	metrics.BatchesCreated.Inc()
	s.publisher.BatchCreated(events.BatchCreatedEvent{
		BatchID:         batch.ID,
		DispatcherPhone: batch.DispatcherPhone,
		Deliveries:      len(batch.Deliveries),
		CreatedAt:       now,
	})
	log.Info("batch created",
		zap.Int("deliveries", len(batch.Deliveries)),
		zap.Int("messages_sent", sent),
	)

	return &model.CreateBatchResponse{Batch: batch, MessagesSent: sent}, nil
}

// ListByDispatcher returns the dispatcher's deliveries, newest batch first.
func (s *BatchService) ListByDispatcher(rawPhone string) *model.ListDeliveriesResponse {
	deliveries := s.deliveries.ListByDispatcher(phone.Canonicalize(rawPhone))
	return &model.ListDeliveriesResponse{
		Deliveries: deliveries,
		Total:      len(deliveries),
	}
}

// ExportCSV writes the batch deliveries as CSV.
func (s *BatchService) ExportCSV(w io.Writer, batchID string) error {
	batch, err := s.deliveries.Batch(batchID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"sequence_number", "recipient_name", "recipient_phone",
		"someone_home", "drop_location", "apartment", "floor",
		"entrance_code", "status", "estimated_time_range", "last_message",
	}); err != nil {
		return err
	}
	for _, d := range batch.Deliveries {
		if err := cw.Write([]string{
			strconv.Itoa(d.SequenceNumber),
			d.RecipientName,
			d.RecipientPhone,
			string(d.SomeoneHome),
			d.DropLocation,
			d.Apartment,
			d.Floor,
			d.EntranceCode,
			string(d.Status),
			d.EstimatedTimeRange,
			d.LastMessage,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func newBatchID(now time.Time) string {
	return fmt.Sprintf("ROUTE-%s-%s", now.Format("20060102-150405"), uuid.New().String()[:8])
}

func openingMessage(d model.Delivery) string {
	name := ""
	if d.RecipientName != "" && d.RecipientName != "לקוח" {
		name = " " + d.RecipientName
	}
	return fmt.Sprintf(openingMessageTemplate, name, d.EstimatedTimeRange)
}
