package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the canonical, platform-agnostic representation of a tracked interaction.
// It is built once by the normalizer and never mutated afterwards.
type Event struct {
	ID               string
	Type             EventType
	Customer         Customer
	Items            []map[string]any
	Value            *Money
	PageURL          URL
	CustomProperties map[string]any
	TransactionID    string
	OrderID          string
	Shipping         *float64
	SearchTerm       string
	CreatedAt        time.Time
}

// NewEventID generates a time-ordered unique event identifier
func NewEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// HasItems reports whether the event carries line items
func (e *Event) HasItems() bool {
	return len(e.Items) > 0
}

// CustomProperty returns a custom property and whether it was set
func (e *Event) CustomProperty(key string) (any, bool) {
	v, ok := e.CustomProperties[key]
	return v, ok
}

// eventWire is the serialized form used for queueing and audit logging
type eventWire struct {
	ID               string           `json:"event_id"`
	Type             EventType        `json:"event_type"`
	Value            *float64         `json:"value,omitempty"`
	Currency         Currency         `json:"currency,omitempty"`
	TransactionID    string           `json:"transaction_id,omitempty"`
	OrderID          string           `json:"order_id,omitempty"`
	Shipping         *float64         `json:"shipping,omitempty"`
	SearchTerm       string           `json:"search_term,omitempty"`
	PageURL          URL              `json:"page_url,omitempty"`
	Customer         Customer         `json:"customer"`
	Items            []map[string]any `json:"items,omitempty"`
	CustomProperties map[string]any   `json:"custom_properties,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	w := eventWire{
		ID:               e.ID,
		Type:             e.Type,
		TransactionID:    e.TransactionID,
		OrderID:          e.OrderID,
		Shipping:         e.Shipping,
		SearchTerm:       e.SearchTerm,
		PageURL:          e.PageURL,
		Customer:         e.Customer,
		Items:            e.Items,
		CustomProperties: e.CustomProperties,
		CreatedAt:        e.CreatedAt,
	}
	if e.Value != nil {
		amount := e.Value.Amount
		w.Value = &amount
		w.Currency = e.Value.Currency
	}
	return json.Marshal(w)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	eventType, err := ParseEventType(string(w.Type))
	if err != nil {
		return err
	}
	if w.ID == "" {
		return fmt.Errorf("event_id is required")
	}

	var value *Money
	if w.Value != nil {
		m, err := NewMoney(*w.Value, string(w.Currency))
		if err != nil {
			return fmt.Errorf("failed to decode value: %w", err)
		}
		value = &m
	}

	*e = Event{
		ID:               w.ID,
		Type:             eventType,
		Customer:         w.Customer,
		Items:            w.Items,
		Value:            value,
		PageURL:          w.PageURL,
		CustomProperties: w.CustomProperties,
		TransactionID:    w.TransactionID,
		OrderID:          w.OrderID,
		Shipping:         w.Shipping,
		SearchTerm:       w.SearchTerm,
		CreatedAt:        w.CreatedAt,
	}
	return nil
}
