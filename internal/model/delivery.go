// Package model defines data structures for the delivery coordination server.
package model

import (
	"time"
)

// SomeoneHome is the customer's answer to "will someone be home?".
type SomeoneHome string

const (
	SomeoneHomeUnknown SomeoneHome = ""
	SomeoneHomeYes     SomeoneHome = "yes"
	SomeoneHomeNo      SomeoneHome = "no"
)

// Status is the disposition status of a delivery.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// NotApplicable marks a slot that is irrelevant for the chosen drop
// arrangement, as opposed to still unknown.
const NotApplicable = "-"

// Slots are the delivery-instruction fields collected via conversation.
// An empty string means unknown.
type Slots struct {
	SomeoneHome  SomeoneHome `json:"someone_home,omitempty"`
	DropLocation string      `json:"drop_location,omitempty"`
	Apartment    string      `json:"apartment,omitempty"`
	Floor        string      `json:"floor,omitempty"`
	EntranceCode string      `json:"entrance_code,omitempty"`
}

// Delivery is a single drop-off within a batch.
type Delivery struct {
	SequenceNumber int    `json:"sequence_number"`
	BatchID        string `json:"batch_id"`

	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"` // canonical form
	City           string `json:"city,omitempty"`
	Street         string `json:"street,omitempty"`

	Slots

	Status             Status     `json:"status"`
	LastMessage        string     `json:"last_message,omitempty"`
	EstimatedTimeRange string     `json:"estimated_time_range,omitempty"`
	LastInteractionAt  *time.Time `json:"last_interaction_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Batch is a delivery route created by a dispatcher.
type Batch struct {
	ID              string     `json:"id"`
	DispatcherPhone string     `json:"dispatcher_phone"` // canonical form
	CreatedAt       time.Time  `json:"created_at"`
	Deliveries      []Delivery `json:"deliveries"`
}

// CreateBatchRequest is the operator request to create a delivery batch.
type CreateBatchRequest struct {
	DispatcherPhone string             `json:"dispatcher_phone"`
	Deliveries      []CreateBatchEntry `json:"deliveries"`
}

// CreateBatchEntry is one delivery row in a batch creation request.
type CreateBatchEntry struct {
	SequenceNumber int    `json:"sequence_number"`
	RecipientName  string `json:"recipient_name,omitempty"`
	RecipientPhone string `json:"recipient_phone"`
	City           string `json:"city,omitempty"`
	Street         string `json:"street,omitempty"`
}

// CreateBatchResponse reports the created batch and how many opening
// messages went out.
type CreateBatchResponse struct {
	Batch        *Batch `json:"batch"`
	MessagesSent int    `json:"messages_sent"`
}

// ListDeliveriesResponse is the dispatcher route view.
type ListDeliveriesResponse struct {
	Deliveries []Delivery `json:"deliveries"`
	Total      int        `json:"total"`
}
