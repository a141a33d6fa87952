package nlu

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse reports extraction output that could not be decoded
// or failed validation.
var ErrMalformedResponse = errors.New("malformed extraction response")

type wireResponse struct {
	ExtractedData wireSlots `json:"extracted_data"`
	ReplyMessage  string    `json:"reply_message"`
	IsComplete    bool      `json:"is_complete"`
}

type wireSlots struct {
	SomeoneHome  *string `json:"someone_home"`
	DropLocation *string `json:"drop_location"`
	Apartment    *string `json:"apartment"`
	Floor        *string `json:"floor"`
	EntranceCode *string `json:"entrance_code"`
}

// parseExtraction decodes and validates raw service output. The slot record
// is closed: someone_home is restricted to yes/no and anything else is
// dropped to null rather than trusted; whitespace-only strings count as
// absent.
func parseExtraction(raw string) (*Extraction, error) {
	raw = trimToJSONObject(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := &Extraction{
		Reply:        strings.TrimSpace(wire.ReplyMessage),
		CompleteHint: wire.IsComplete,
	}
	out.Updates = SlotUpdate{
		SomeoneHome:  validateSomeoneHome(wire.ExtractedData.SomeoneHome),
		DropLocation: cleanString(wire.ExtractedData.DropLocation),
		Apartment:    cleanString(wire.ExtractedData.Apartment),
		Floor:        cleanString(wire.ExtractedData.Floor),
		EntranceCode: cleanString(wire.ExtractedData.EntranceCode),
	}
	return out, nil
}

func validateSomeoneHome(v *string) *string {
	s := cleanString(v)
	if s == nil {
		return nil
	}
	lower := strings.ToLower(*s)
	if lower == "yes" || lower == "no" {
		return &lower
	}
	return nil
}

func cleanString(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// trimToJSONObject cuts any prose surrounding the first top-level JSON
// object. Providers without a JSON response mode occasionally wrap their
// output in explanation text.
func trimToJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
