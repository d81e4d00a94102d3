package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return New(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "generated-id" }),
	)
}

func decodeRecord(t *testing.T, body string) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestNormalizer_Normalize_Purchase(t *testing.T) {
	n := newTestNormalizer()

	event, err := n.Normalize(decodeRecord(t, `{
		"event_type": "purchase",
		"value": 99.99,
		"currency": "usd",
		"transaction_id": "T-1",
		"shipping": "4.50",
		"page_url": "https://shop.example.com/thanks",
		"customer": {"email": "A@B.com", "phone": "555 123 4567", "phone_code": "1", "client_ip_address": "203.0.113.7"},
		"contents": [{"item_id": "SKU-1", "quantity": 2}, "junk"],
		"custom_properties": {"opt_out": true}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "generated-id", event.ID)
	assert.Equal(t, domain.EventTypePurchase, event.Type)
	require.NotNil(t, event.Value)
	assert.Equal(t, 99.99, event.Value.Amount)
	assert.Equal(t, domain.Currency("USD"), event.Value.Currency)
	assert.Equal(t, "T-1", event.TransactionID)
	require.NotNil(t, event.Shipping)
	assert.Equal(t, 4.5, *event.Shipping)
	assert.Equal(t, domain.URL("https://shop.example.com/thanks"), event.PageURL)
	assert.Equal(t, domain.Email("a@b.com"), event.Customer.Email)
	require.NotNil(t, event.Customer.Phone)
	assert.Equal(t, "+15551234567", event.Customer.Phone.FullNumber())
	assert.Equal(t, domain.IPAddress("203.0.113.7"), event.Customer.IPAddress)
	assert.Len(t, event.Items, 1)
	assert.Equal(t, true, event.CustomProperties["opt_out"])
	assert.Equal(t, fixedNow, event.CreatedAt)
}

func TestNormalizer_Normalize_InvalidEmailDropped(t *testing.T) {
	n := newTestNormalizer()

	event, err := n.Normalize(map[string]any{
		"event_type": "purchase",
		"customer":   map[string]any{"email": "not-an-email", "first_name": "Jane"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Email(""), event.Customer.Email)
	assert.Equal(t, "Jane", event.Customer.FirstName)
}

func TestNormalizer_Normalize_UnknownTypeIsFatal(t *testing.T) {
	n := newTestNormalizer()

	event, err := n.Normalize(map[string]any{"event_type": "foo"})
	assert.Nil(t, event)
	assert.ErrorIs(t, err, domain.ErrInvalidEventType)

	_, err = n.Normalize(map[string]any{"value": 10})
	assert.ErrorIs(t, err, domain.ErrInvalidEventType)
}

func TestNormalizer_Normalize_EventAlias(t *testing.T) {
	n := newTestNormalizer()

	event, err := n.Normalize(map[string]any{"event": "page_view", "event_source_url": "http://example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.EventTypePageView, event.Type)
	assert.Equal(t, domain.URL("http://example.com"), event.PageURL)
}

func TestNormalizer_Normalize_ValueCurrencyPair(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name   string
		record map[string]any
	}{
		{name: "invalid currency drops value", record: map[string]any{"event_type": "purchase", "value": 10.0, "currency": "XXX"}},
		{name: "value without currency", record: map[string]any{"event_type": "purchase", "value": 10.0}},
		{name: "negative amount", record: map[string]any{"event_type": "purchase", "value": -5.0, "currency": "EUR"}},
		{name: "unparseable amount", record: map[string]any{"event_type": "purchase", "value": "ten", "currency": "EUR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := n.Normalize(tt.record)
			require.NoError(t, err)
			assert.Nil(t, event.Value)
		})
	}
}

func TestNormalizer_Normalize_InvalidURLDropped(t *testing.T) {
	n := newTestNormalizer()

	event, err := n.Normalize(map[string]any{"event_type": "view_item", "page_url": "javascript:alert(1)"})
	require.NoError(t, err)
	assert.Equal(t, domain.URL(""), event.PageURL)
}

func TestNormalizer_Normalize_ClientEventID(t *testing.T) {
	n := newTestNormalizer()

	event, err := n.Normalize(map[string]any{"event_type": "search", "event_id": " evt-42 ", "search_term": "boots"})
	require.NoError(t, err)
	assert.Equal(t, "evt-42", event.ID)
	assert.Equal(t, "boots", event.SearchTerm)
}

func TestNormalizer_Normalize_RoundTripsThroughJSON(t *testing.T) {
	n := New()

	event, err := n.Normalize(decodeRecord(t, `{
		"event_type": "add_to_cart",
		"value": 12.5,
		"currency": "EUR",
		"customer": {"email": "x@y.org", "date_of_birth": "1985-02-03", "custom": {"vip": true}},
		"items": [{"item_id": "A", "price": 12.5}]
	}`))
	require.NoError(t, err)

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, *event, decoded)
}
