// Package nlu is the boundary to the external text-understanding service.
// Given a customer message, the known slot state, and a bounded window of
// recent turns, it returns slot updates and a reply. The service is an
// untrusted oracle: its output is validated here and its completion hint is
// re-checked against the domain rules by the caller.
package nlu

import (
	"context"
	"time"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
)

// Request is the snapshot handed to the extraction service. It never
// includes the full delivery record.
type Request struct {
	Message string
	Known   model.Slots
	History []model.Turn
}

// SlotUpdate carries extracted slot values. A nil field means the service
// learned nothing about that slot; it must never erase a known value.
type SlotUpdate struct {
	SomeoneHome  *string `json:"someone_home"`
	DropLocation *string `json:"drop_location"`
	Apartment    *string `json:"apartment"`
	Floor        *string `json:"floor"`
	EntranceCode *string `json:"entrance_code"`
}

// Extraction is the validated result of an extraction call.
type Extraction struct {
	Updates      SlotUpdate
	Reply        string
	CompleteHint bool
}

// Extractor is the interface for extraction providers.
type Extractor interface {
	// Extract analyzes one customer message. Implementations apply a
	// bounded timeout and return an error on expiry or malformed output.
	Extract(ctx context.Context, req *Request) (*Extraction, error)

	// Name returns the provider name.
	Name() string
}

// FallbackReply is sent when the extraction service fails; the raw failure
// never reaches the customer.
const FallbackReply = "סליחה, לא הבנתי. תוכל לחזור על זה?"

// Fallback is the deterministic result used when extraction fails: no slot
// changes, a generic ask-again reply, no completion hint.
func Fallback() *Extraction {
	return &Extraction{Reply: FallbackReply}
}

// Provider is the type of extraction provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// NewExtractor creates an extraction client for the given provider.
func NewExtractor(provider Provider, apiKey string, timeout time.Duration) (Extractor, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicExtractor(apiKey, timeout)
	default:
		return NewOpenAIExtractor(apiKey, timeout)
	}
}
