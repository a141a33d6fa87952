// Package service implements the business logic of the coordination server:
// the webhook orchestration, the completion rules, and batch creation.
package service

import (
	"strings"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/internal/nlu"
)

// attendedDropPoints are drop locations where a staffed or unattended drop
// point makes apartment/floor/entrance-code details moot.
var attendedDropPoints = []string{
	"שומר", "לובי", "קבלה",
	"lobby", "concierge", "reception", "front desk", "doorman", "guard",
}

// IsAttendedDropPoint reports whether the drop location names a staffed or
// otherwise self-sufficient drop point.
func IsAttendedDropPoint(location string) bool {
	loc := strings.ToLower(location)
	for _, kw := range attendedDropPoints {
		if strings.Contains(loc, kw) {
			return true
		}
	}
	return false
}

// MergeSlots applies extracted updates to the known slots and reports
// whether anything changed. Nil updates never touch a slot, so a known
// value can never regress to unknown.
func MergeSlots(known *model.Slots, upd nlu.SlotUpdate) bool {
	changed := false
	if upd.SomeoneHome != nil && model.SomeoneHome(*upd.SomeoneHome) != known.SomeoneHome {
		known.SomeoneHome = model.SomeoneHome(*upd.SomeoneHome)
		changed = true
	}
	if upd.DropLocation != nil && *upd.DropLocation != known.DropLocation {
		known.DropLocation = *upd.DropLocation
		changed = true
	}
	if upd.Apartment != nil && *upd.Apartment != known.Apartment {
		known.Apartment = *upd.Apartment
		changed = true
	}
	if upd.Floor != nil && *upd.Floor != known.Floor {
		known.Floor = *upd.Floor
		changed = true
	}
	if upd.EntranceCode != nil && *upd.EntranceCode != known.EntranceCode {
		known.EntranceCode = *upd.EntranceCode
		changed = true
	}
	return changed
}

// EvaluateCompletion decides from the slots alone whether the disposition is
// complete. It is the authority over whatever the extraction service hints.
// A delivery is complete when:
//   - someone will be home; or
//   - the drop location is an attended drop point, in which case unset
//     apartment/floor/entrance-code slots are defaulted to the
//     not-applicable sentinel; or
//   - apartment, floor, and entrance code are all known.
func EvaluateCompletion(s *model.Slots) bool {
	if s.SomeoneHome == model.SomeoneHomeYes {
		return true
	}
	if s.DropLocation != "" && IsAttendedDropPoint(s.DropLocation) {
		if s.Apartment == "" {
			s.Apartment = model.NotApplicable
		}
		if s.Floor == "" {
			s.Floor = model.NotApplicable
		}
		if s.EntranceCode == "" {
			s.EntranceCode = model.NotApplicable
		}
		return true
	}
	if s.Apartment != "" && s.Floor != "" && s.EntranceCode != "" {
		return true
	}
	return false
}

// NextStatus advances the disposition status. Complete is terminal; a slot
// change moves pending to in_progress.
func NextStatus(current model.Status, complete, changed bool) model.Status {
	if current == model.StatusComplete {
		return current
	}
	if complete {
		return model.StatusComplete
	}
	if changed {
		return model.StatusInProgress
	}
	return current
}
