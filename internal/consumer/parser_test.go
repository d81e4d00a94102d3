package consumer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

func TestJSONTaskParser_Parse(t *testing.T) {
	event := &domain.Event{ID: "evt-1", Type: domain.EventTypePurchase}
	task, err := domain.NewDeliveryTask(event, domain.BrevoCredentials{APIKey: "k"}, "40")
	require.NoError(t, err)
	body, err := json.Marshal(task)
	require.NoError(t, err)

	parsed, err := NewJSONTaskParser().Parse(body)

	require.NoError(t, err)
	assert.Equal(t, domain.PlatformBrevo, parsed.Platform)
	assert.Equal(t, "40", parsed.AppID)
	assert.Equal(t, "evt-1", parsed.EventID)
	assert.Equal(t, map[string]string{domain.FieldBrevoAPIKey: "k"}, parsed.Credentials)
}

func TestJSONTaskParser_Parse_Invalid(t *testing.T) {
	parser := NewJSONTaskParser()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{invalid`},
		{"unknown platform", `{"platform":"myspace","event_id":"1","event":{}}`},
		{"missing event", `{"platform":"meta","event_id":"1"}`},
		{"missing event id", `{"platform":"meta","event":{"event_id":"1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.body))
			assert.Error(t, err)
		})
	}

	_, err := parser.Parse([]byte(`{"platform":"myspace","event_id":"1","event":{}}`))
	assert.True(t, errors.Is(err, domain.ErrUnknownPlatform))
}
