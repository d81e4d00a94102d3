package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DeliveryResult is the outcome of sending one event to one platform
type DeliveryResult struct {
	Success bool
	Error   string
	Raw     any
	SentAt  time.Time
}

// SuccessResult builds a successful result carrying the parsed response body
func SuccessResult(raw any) DeliveryResult {
	return DeliveryResult{Success: true, Raw: raw, SentAt: time.Now().UTC()}
}

// FailureResult builds a failed result
func FailureResult(message string, raw any) DeliveryResult {
	return DeliveryResult{Success: false, Error: message, Raw: raw, SentAt: time.Now().UTC()}
}

// DeliveryTask carries everything a worker needs to deliver one event to one platform
type DeliveryTask struct {
	Platform    Platform          `json:"platform"`
	AppID       string            `json:"app_id"`
	EventID     string            `json:"event_id"`
	Event       json.RawMessage   `json:"event"`
	Credentials map[string]string `json:"credentials"`
}

// NewDeliveryTask serializes the event and a single platform's credentials
func NewDeliveryTask(event *Event, creds PlatformCredentials, appID string) (*DeliveryTask, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &DeliveryTask{
		Platform:    creds.Platform(),
		AppID:       appID,
		EventID:     event.ID,
		Event:       payload,
		Credentials: creds.Fields(),
	}, nil
}

// DecodeEvent reconstructs the canonical event
func (t *DeliveryTask) DecodeEvent() (*Event, error) {
	var event Event
	if err := json.Unmarshal(t.Event, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &event, nil
}

// DecodeCredentials reconstructs the platform credentials
func (t *DeliveryTask) DecodeCredentials() (PlatformCredentials, error) {
	creds, err := ParseCredentials(t.Platform, t.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

// DeliveryFailure is the audit record written when a task exhausts its queue retries
type DeliveryFailure struct {
	Platform  Platform
	AppID     string
	EventID   string
	EventType EventType
	Error     string
	Attempts  int
	FailedAt  time.Time
}
