package model

import (
	"time"
)

// TurnRole identifies who produced a conversation turn.
type TurnRole string

const (
	RoleCustomer TurnRole = "customer"
	RoleAgent    TurnRole = "agent"
)

// Turn is a single message in a conversation, ordered by arrival.
type Turn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
