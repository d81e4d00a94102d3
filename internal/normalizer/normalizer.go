package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const maxEventIDLength = 100

// Normalizer turns loosely typed input records into canonical events
type Normalizer struct {
	now   func() time.Time
	newID func() string
}

// Option customizes a Normalizer
type Option func(*Normalizer)

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// WithIDGenerator overrides the event id generator
func WithIDGenerator(newID func() string) Option {
	return func(n *Normalizer) {
		n.newID = newID
	}
}

// New creates a new Normalizer
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		now:   time.Now,
		newID: domain.NewEventID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds a canonical event from a raw record. Only a missing or unknown
// event type is fatal; malformed optional fields are dropped.
func (n *Normalizer) Normalize(raw map[string]any) (*domain.Event, error) {
	typeValue := stringField(raw, "event_type")
	if typeValue == "" {
		typeValue = stringField(raw, "event")
	}
	eventType, err := domain.ParseEventType(typeValue)
	if err != nil {
		return nil, err
	}

	event := &domain.Event{
		ID:            n.eventID(raw),
		Type:          eventType,
		TransactionID: stringField(raw, "transaction_id"),
		OrderID:       stringField(raw, "order_id"),
		SearchTerm:    stringField(raw, "search_term"),
		CreatedAt:     n.now().UTC(),
	}

	if amount, ok := floatField(raw, "value"); ok {
		if currency := stringField(raw, "currency"); currency != "" {
			if money, err := domain.NewMoney(amount, currency); err == nil {
				event.Value = &money
			}
		}
	}

	if shipping, ok := floatField(raw, "shipping"); ok {
		event.Shipping = &shipping
	}

	pageURL := stringField(raw, "page_url")
	if pageURL == "" {
		pageURL = stringField(raw, "event_source_url")
	}
	if pageURL != "" {
		if u, err := domain.ParseURL(pageURL); err == nil {
			event.PageURL = u
		}
	}

	if customer, ok := raw["customer"].(map[string]any); ok {
		event.Customer = domain.NewCustomer(customerInput(customer))
	}

	items := itemsField(raw, "items")
	if items == nil {
		items = itemsField(raw, "contents")
	}
	event.Items = items

	if props, ok := raw["custom_properties"].(map[string]any); ok && len(props) > 0 {
		event.CustomProperties = props
	}

	return event, nil
}

func (n *Normalizer) eventID(raw map[string]any) string {
	if id := stringField(raw, "event_id"); id != "" && len(id) <= maxEventIDLength {
		return id
	}
	return n.newID()
}

func customerInput(m map[string]any) domain.CustomerInput {
	in := domain.CustomerInput{
		Email:       stringField(m, "email"),
		Phone:       stringField(m, "phone"),
		PhoneCode:   stringField(m, "phone_code"),
		IPAddress:   stringField(m, "ip_address"),
		UserAgent:   stringField(m, "user_agent"),
		ExternalID:  stringField(m, "external_id"),
		FirstName:   stringField(m, "first_name"),
		LastName:    stringField(m, "last_name"),
		Gender:      stringField(m, "gender"),
		DateOfBirth: stringField(m, "date_of_birth"),
		City:        stringField(m, "city"),
		State:       stringField(m, "state"),
		CountryCode: stringField(m, "country_code"),
		ZipCode:     stringField(m, "zip_code"),
		FBC:         stringField(m, "fbc"),
		FBP:         stringField(m, "fbp"),
	}
	if in.IPAddress == "" {
		in.IPAddress = stringField(m, "client_ip_address")
	}
	if in.UserAgent == "" {
		in.UserAgent = stringField(m, "client_user_agent")
	}
	if custom, ok := m["custom"].(map[string]any); ok {
		in.Custom = custom
	}
	return in
}

// stringField reads a scalar as a trimmed string; numbers are formatted without exponent
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func floatField(m map[string]any, key string) (float64, bool) {
	var f float64
	switch v := m[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// itemsField keeps only object entries of a list; an empty result is nil
func itemsField(m map[string]any, key string) []map[string]any {
	list, ok := m[key].([]any)
	if !ok {
		if typed, ok := m[key].([]map[string]any); ok && len(typed) > 0 {
			return typed
		}
		return nil
	}
	var items []map[string]any
	for _, entry := range list {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}
	return items
}
