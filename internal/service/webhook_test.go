package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzz-lite/delivery-coordinator/internal/dedupe"
	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/internal/nlu"
	"github.com/buzz-lite/delivery-coordinator/internal/store"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"
)

const testPhone = "972521234567"

// fakeExtractor answers from a script keyed by message text.
type fakeExtractor struct {
	mu        sync.Mutex
	responses map[string]*nlu.Extraction
	err       error
	calls     []*nlu.Request
}

func (f *fakeExtractor) Extract(ctx context.Context, req *nlu.Request) (*nlu.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[req.Message]; ok {
		return resp, nil
	}
	return &nlu.Extraction{Reply: "?"}, nil
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSender records dispatched messages.
type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, canonicalPhone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type webhookFixture struct {
	svc           *WebhookService
	extractor     *fakeExtractor
	sender        *fakeSender
	deliveries    *store.DeliveryStore
	conversations *store.ConversationStore
	filter        *dedupe.Filter
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	dir := t.TempDir()

	deliveries, err := store.NewDeliveryStore(filepath.Join(dir, "deliveries.json"))
	require.NoError(t, err)
	conversations, err := store.NewConversationStore(filepath.Join(dir, "conversations.json"))
	require.NoError(t, err)

	require.NoError(t, deliveries.PutBatch(&model.Batch{
		ID:              "ROUTE-TEST",
		DispatcherPhone: "972500000001",
		CreatedAt:       time.Now(),
		Deliveries: []model.Delivery{{
			SequenceNumber: 1,
			BatchID:        "ROUTE-TEST",
			RecipientName:  "דנה",
			RecipientPhone: testPhone,
			Status:         model.StatusPending,
		}},
	}))

	log, err := logger.New("error")
	require.NoError(t, err)

	extractor := &fakeExtractor{responses: map[string]*nlu.Extraction{}}
	sender := &fakeSender{}
	filter := dedupe.New(time.Minute, 2*time.Minute)

	svc := NewWebhookService(filter, deliveries, conversations, extractor, sender, nil, 10, log)
	return &webhookFixture{
		svc:           svc,
		extractor:     extractor,
		sender:        sender,
		deliveries:    deliveries,
		conversations: conversations,
		filter:        filter,
	}
}

func textPayload(text string) *model.WebhookPayload {
	return &model.WebhookPayload{
		SenderData: model.SenderData{ChatID: testPhone + "@c.us"},
		MessageData: model.MessageData{
			TypeMessage:     model.TypeTextMessage,
			TextMessageData: model.TextMessageData{TextMessage: text},
		},
	}
}

func TestHandleInboundIgnoresNonText(t *testing.T) {
	fx := newWebhookFixture(t)
	payload := textPayload("hi")
	payload.MessageData.TypeMessage = "imageMessage"

	status := fx.svc.HandleInbound(context.Background(), payload)

	assert.Equal(t, model.WebhookIgnored, status)
	assert.Zero(t, fx.extractor.callCount())
	assert.Zero(t, fx.sender.sentCount())
}

func TestHandleInboundNotFound(t *testing.T) {
	fx := newWebhookFixture(t)
	payload := textPayload("hi")
	payload.SenderData.ChatID = "972529999999@c.us"

	status := fx.svc.HandleInbound(context.Background(), payload)

	assert.Equal(t, model.WebhookNotFound, status)
	assert.Zero(t, fx.sender.sentCount())
}

func TestHandleInboundDuplicateSuppressed(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["שלום"] = &nlu.Extraction{Reply: "היי"}

	first := fx.svc.HandleInbound(context.Background(), textPayload("שלום"))
	second := fx.svc.HandleInbound(context.Background(), textPayload("שלום"))

	assert.Equal(t, model.WebhookOK, first)
	assert.Equal(t, model.WebhookDuplicate, second)
	assert.Equal(t, 1, fx.extractor.callCount())
	assert.Equal(t, 1, fx.sender.sentCount())
}

func TestHandleInboundAlreadyComplete(t *testing.T) {
	fx := newWebhookFixture(t)
	_, err := fx.deliveries.UpdateDelivery(testPhone, func(d *model.Delivery) error {
		d.Status = model.StatusComplete
		d.SomeoneHome = model.SomeoneHomeYes
		return nil
	})
	require.NoError(t, err)

	status := fx.svc.HandleInbound(context.Background(), textPayload("עוד הודעה"))

	assert.Equal(t, model.WebhookAlreadyComplete, status)
	assert.Zero(t, fx.extractor.callCount())
	assert.Zero(t, fx.sender.sentCount())

	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.Empty(t, d.LastMessage, "no mutation after complete")
}

func TestHandleInboundExtractionFailureFallsBack(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.err = errors.New("timeout")

	status := fx.svc.HandleInbound(context.Background(), textPayload("לא אהיה"))

	assert.Equal(t, model.WebhookOK, status)
	require.Equal(t, 1, fx.sender.sentCount())
	assert.Equal(t, nlu.FallbackReply, fx.sender.sent[0])

	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, d.Status, "fallback changes no slots")
	assert.Empty(t, d.SomeoneHome)
}

func TestHandleInboundDispatchFailureKeepsState(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["לא אהיה"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{SomeoneHome: strptr("no")},
		Reply:   "איפה להשאיר?",
	}
	fx.sender.err = errors.New("provider down")

	status := fx.svc.HandleInbound(context.Background(), textPayload("לא אהיה"))

	assert.Equal(t, model.WebhookOK, status)
	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.Equal(t, model.SomeoneHomeNo, d.SomeoneHome, "state persists despite dispatch failure")
	assert.Equal(t, model.StatusInProgress, d.Status)
}

func TestHandleInboundNullNeverRegressesSlot(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["דירה 5"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{Apartment: strptr("5")},
		Reply:   "ובאיזו קומה?",
	}
	fx.extractor.responses["בסדר"] = &nlu.Extraction{Reply: "מחכה לפרטים"}

	fx.svc.HandleInbound(context.Background(), textPayload("דירה 5"))
	fx.svc.HandleInbound(context.Background(), textPayload("בסדר"))

	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.Equal(t, "5", d.Apartment)
}

func TestHandleInboundConversationRecorded(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["שלום"] = &nlu.Extraction{Reply: "היי 😊"}

	fx.svc.HandleInbound(context.Background(), textPayload("שלום"))

	turns := fx.conversations.History(testPhone)
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleCustomer, turns[0].Role)
	assert.Equal(t, "שלום", turns[0].Content)
	assert.Equal(t, model.RoleAgent, turns[1].Role)
	assert.Equal(t, "היי 😊", turns[1].Content)
}

func TestHandleInboundHistoryPassedToExtractor(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["ראשונה"] = &nlu.Extraction{Reply: "תודה"}
	fx.extractor.responses["שניה"] = &nlu.Extraction{Reply: "קיבלתי"}

	fx.svc.HandleInbound(context.Background(), textPayload("ראשונה"))
	fx.svc.HandleInbound(context.Background(), textPayload("שניה"))

	require.Equal(t, 2, fx.extractor.callCount())
	second := fx.extractor.calls[1]
	require.Len(t, second.History, 2, "prior customer turn and agent reply")
	assert.Equal(t, "ראשונה", second.History[0].Content)
	assert.Equal(t, "תודה", second.History[1].Content)
	assert.Equal(t, "שניה", second.Message)
}

// Full coordination flow: absent customer hands over apartment, floor, and
// entrance code across four messages.
func TestCoordinationScenario(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["לא אהיה"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{SomeoneHome: strptr("no")},
		Reply:   "איפה נוח להשאיר את החבילה?",
	}
	fx.extractor.responses["דירה 5"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{Apartment: strptr("5")},
		Reply:   "באיזו קומה?",
	}
	fx.extractor.responses["קומה 3"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{Floor: strptr("3")},
		Reply:   "יש קוד כניסה לבניין?",
	}
	fx.extractor.responses["אין"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{EntranceCode: strptr("אין קוד")},
		Reply:   "מעולה, רשמתי הכל! 📦",
	}

	ctx := context.Background()

	require.Equal(t, model.WebhookOK, fx.svc.HandleInbound(ctx, textPayload("לא אהיה")))
	d, _ := fx.deliveries.FindByPhone(testPhone)
	assert.Equal(t, model.StatusInProgress, d.Status)
	assert.Equal(t, model.SomeoneHomeNo, d.SomeoneHome)

	require.Equal(t, model.WebhookOK, fx.svc.HandleInbound(ctx, textPayload("דירה 5")))
	d, _ = fx.deliveries.FindByPhone(testPhone)
	assert.Equal(t, "5", d.Apartment)
	assert.Equal(t, model.StatusInProgress, d.Status)

	require.Equal(t, model.WebhookOK, fx.svc.HandleInbound(ctx, textPayload("קומה 3")))
	d, _ = fx.deliveries.FindByPhone(testPhone)
	assert.Equal(t, "3", d.Floor)
	assert.Equal(t, model.StatusInProgress, d.Status, "entrance code still missing")

	require.Equal(t, model.WebhookOK, fx.svc.HandleInbound(ctx, textPayload("אין")))
	d, _ = fx.deliveries.FindByPhone(testPhone)
	assert.Equal(t, "אין קוד", d.EntranceCode)
	assert.Equal(t, model.StatusComplete, d.Status)
	require.NotNil(t, d.CompletedAt)

	assert.Equal(t, 4, fx.sender.sentCount())
	assert.Equal(t, "מעולה, רשמתי הכל! 📦", fx.sender.sent[3])

	// The conversation is over: further messages are acknowledged only.
	assert.Equal(t, model.WebhookAlreadyComplete,
		fx.svc.HandleInbound(ctx, textPayload("תודה רבה")))
	assert.Equal(t, 4, fx.sender.sentCount())
}

func TestCompletionHintNotTrusted(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["אולי"] = &nlu.Extraction{
		Reply:        "אז מתי נוח?",
		CompleteHint: true, // oracle claims done, slots say otherwise
	}

	fx.svc.HandleInbound(context.Background(), textPayload("אולי"))

	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.NotEqual(t, model.StatusComplete, d.Status)
}

func TestAttendedDropPointCompletesWithSentinels(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["תשאיר בלובי"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{
			SomeoneHome:  strptr("no"),
			DropLocation: strptr("לובי"),
		},
		Reply: "סגור, אשאיר בלובי 📦",
	}

	fx.svc.HandleInbound(context.Background(), textPayload("תשאיר בלובי"))

	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, d.Status)
	assert.Equal(t, model.NotApplicable, d.Apartment)
	assert.Equal(t, model.NotApplicable, d.Floor)
	assert.Equal(t, model.NotApplicable, d.EntranceCode)
}

func TestReset(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["בבית"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{SomeoneHome: strptr("yes")},
		Reply:   "מעולה, נתראה!",
	}

	ctx := context.Background()
	fx.svc.HandleInbound(ctx, textPayload("בבית"))
	d, _ := fx.deliveries.FindByPhone(testPhone)
	require.Equal(t, model.StatusComplete, d.Status)

	require.NoError(t, fx.svc.Reset(ctx, "0521234567"))

	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, d.Status)
	assert.Empty(t, d.SomeoneHome)
	assert.Nil(t, d.CompletedAt)
	assert.Empty(t, fx.conversations.History(testPhone))

	// The phone is live again, even for a message seen before the reset.
	assert.Equal(t, model.WebhookOK, fx.svc.HandleInbound(ctx, textPayload("בבית")))
}

func TestResetUnknownPhone(t *testing.T) {
	fx := newWebhookFixture(t)
	err := fx.svc.Reset(context.Background(), "0529999999")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentMessagesSamePhoneLoseNoUpdates(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.extractor.responses["דירה 5"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{Apartment: strptr("5")},
		Reply:   "רשמתי דירה",
	}
	fx.extractor.responses["קומה 3"] = &nlu.Extraction{
		Updates: nlu.SlotUpdate{Floor: strptr("3")},
		Reply:   "רשמתי קומה",
	}

	var wg sync.WaitGroup
	for _, msg := range []string{"דירה 5", "קומה 3"} {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			fx.svc.HandleInbound(context.Background(), textPayload(m))
		}(msg)
	}
	wg.Wait()

	d, err := fx.deliveries.FindByPhone(testPhone)
	require.NoError(t, err)
	assert.Equal(t, "5", d.Apartment, "neither update may be lost")
	assert.Equal(t, "3", d.Floor, "neither update may be lost")
}
