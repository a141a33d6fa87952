package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
	"github.com/buzz-lite/delivery-coordinator/internal/nlu"
)

func strptr(s string) *string { return &s }

func TestEvaluateCompletionSomeoneHome(t *testing.T) {
	slots := model.Slots{SomeoneHome: model.SomeoneHomeYes}
	assert.True(t, EvaluateCompletion(&slots))
}

func TestEvaluateCompletionAttendedDropPoint(t *testing.T) {
	slots := model.Slots{DropLocation: "lobby"}
	assert.True(t, EvaluateCompletion(&slots))
	assert.Equal(t, model.NotApplicable, slots.Apartment)
	assert.Equal(t, model.NotApplicable, slots.Floor)
	assert.Equal(t, model.NotApplicable, slots.EntranceCode)
}

func TestEvaluateCompletionAttendedDropPointHebrew(t *testing.T) {
	for _, loc := range []string{"אצל השומר", "בלובי", "דלפק הקבלה"} {
		slots := model.Slots{DropLocation: loc}
		assert.True(t, EvaluateCompletion(&slots), "location %q", loc)
	}
}

func TestEvaluateCompletionDropPointKeepsKnownDetails(t *testing.T) {
	slots := model.Slots{DropLocation: "reception", Apartment: "5"}
	assert.True(t, EvaluateCompletion(&slots))
	assert.Equal(t, "5", slots.Apartment)
	assert.Equal(t, model.NotApplicable, slots.Floor)
}

func TestEvaluateCompletionFullAccessDetails(t *testing.T) {
	slots := model.Slots{Apartment: "5", Floor: "3", EntranceCode: "1234"}
	assert.True(t, EvaluateCompletion(&slots))
}

func TestEvaluateCompletionIncomplete(t *testing.T) {
	tests := []struct {
		name  string
		slots model.Slots
	}{
		{"empty", model.Slots{}},
		{"floor only", model.Slots{Floor: "3"}},
		{"someone home no", model.Slots{SomeoneHome: model.SomeoneHomeNo}},
		{"unattended drop location", model.Slots{DropLocation: "ליד הדלת"}},
		{"missing entrance code", model.Slots{Apartment: "5", Floor: "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := tt.slots
			assert.False(t, EvaluateCompletion(&slots))
		})
	}
}

func TestMergeSlots(t *testing.T) {
	slots := model.Slots{}
	changed := MergeSlots(&slots, nlu.SlotUpdate{
		SomeoneHome: strptr("no"),
		Apartment:   strptr("5"),
	})

	assert.True(t, changed)
	assert.Equal(t, model.SomeoneHomeNo, slots.SomeoneHome)
	assert.Equal(t, "5", slots.Apartment)
	assert.Empty(t, slots.Floor)
}

func TestMergeSlotsNilNeverRegresses(t *testing.T) {
	slots := model.Slots{Apartment: "5", SomeoneHome: model.SomeoneHomeNo}
	changed := MergeSlots(&slots, nlu.SlotUpdate{Floor: strptr("3")})

	assert.True(t, changed)
	assert.Equal(t, "5", slots.Apartment)
	assert.Equal(t, model.SomeoneHomeNo, slots.SomeoneHome)
	assert.Equal(t, "3", slots.Floor)
}

func TestMergeSlotsNoChange(t *testing.T) {
	slots := model.Slots{Apartment: "5"}
	changed := MergeSlots(&slots, nlu.SlotUpdate{Apartment: strptr("5")})
	assert.False(t, changed)
}

func TestMergeSlotsOverwriteAllowed(t *testing.T) {
	slots := model.Slots{Apartment: "5"}
	changed := MergeSlots(&slots, nlu.SlotUpdate{Apartment: strptr("7")})
	assert.True(t, changed)
	assert.Equal(t, "7", slots.Apartment)
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  model.Status
		complete bool
		changed  bool
		want     model.Status
	}{
		{"pending no change", model.StatusPending, false, false, model.StatusPending},
		{"pending with change", model.StatusPending, false, true, model.StatusInProgress},
		{"pending straight to complete", model.StatusPending, true, true, model.StatusComplete},
		{"in progress stays", model.StatusInProgress, false, false, model.StatusInProgress},
		{"in progress completes", model.StatusInProgress, true, true, model.StatusComplete},
		{"complete is terminal", model.StatusComplete, false, true, model.StatusComplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatus(tt.current, tt.complete, tt.changed))
		})
	}
}
