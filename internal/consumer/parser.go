package consumer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// JSONTaskParser implements MessageParser for JSON-encoded delivery tasks
type JSONTaskParser struct{}

// NewJSONTaskParser creates a new JSON task parser
func NewJSONTaskParser() *JSONTaskParser {
	return &JSONTaskParser{}
}

// Parse decodes a message body and checks the task envelope; the event itself is decoded by the handler
func (p *JSONTaskParser) Parse(body []byte) (*domain.DeliveryTask, error) {
	var task domain.DeliveryTask
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	if _, err := domain.ParsePlatform(string(task.Platform)); err != nil {
		return nil, err
	}
	if len(task.Event) == 0 {
		return nil, errors.New("task has no event")
	}
	if task.EventID == "" {
		return nil, errors.New("task has no event_id")
	}
	return &task, nil
}
