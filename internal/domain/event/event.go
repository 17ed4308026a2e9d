package event

import (
	"fmt"
	"strings"
	"time"
)

// Event is one webhook delivery received from the gateway, journaled before
// it is reconciled.
type Event struct {
	ID               int64
	Type             string
	Reference        string
	Channel          string
	RawJSON          []byte
	ReceivedAt       time.Time
	ProcessedAt      *time.Time
	ProcessingStatus ProcessingStatus
	Error            string
}

// TypeChargeSuccess is the gateway event that signals a successful charge.
const TypeChargeSuccess = "charge.success"

// ProcessingStatus represents the event processing status
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
	ProcessingIgnored   ProcessingStatus = "ignored"
)

// NewEvent creates a new event with validation
func NewEvent(eventType, reference, channel string, rawJSON []byte) (*Event, error) {
	if strings.TrimSpace(eventType) == "" {
		return nil, fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}

	return &Event{
		Type:             eventType,
		Reference:        reference,
		Channel:          channel,
		RawJSON:          rawJSON,
		ReceivedAt:       time.Now().UTC(),
		ProcessingStatus: ProcessingPending,
	}, nil
}
