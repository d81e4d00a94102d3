package adapter

import (
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const brevoEventsURL = "https://api.brevo.com/v3/events"

// brevoPlatform targets the Brevo events API, which takes event type names unchanged
type brevoPlatform struct{}

// NewBrevo creates the Brevo events adapter
func NewBrevo(client HTTPDoer, log *zap.Logger) *HTTPAdapter {
	return newHTTPAdapter(brevoPlatform{}, client, log)
}

func (brevoPlatform) Platform() domain.Platform { return domain.PlatformBrevo }

func (brevoPlatform) Supports(domain.EventType) bool { return true }

func (brevoPlatform) MapEventName(t domain.EventType) (string, bool) {
	return string(t), true
}

func (brevoPlatform) build(event *domain.Event, eventName string, creds domain.PlatformCredentials) (*outboundRequest, error) {
	c, err := credentialsAs[domain.BrevoCredentials](creds)
	if err != nil {
		return nil, err
	}

	customer := event.Customer
	identifiers := map[string]any{}
	if customer.Email != "" {
		identifiers["email_id"] = customer.Email.String()
	}
	if customer.ExternalID != "" {
		identifiers["ext_id"] = customer.ExternalID
	}

	contact := map[string]any{}
	if customer.FirstName != "" {
		contact["FIRSTNAME"] = customer.FirstName
	}
	if customer.LastName != "" {
		contact["LASTNAME"] = customer.LastName
	}
	if customer.Phone != nil {
		contact["SMS"] = customer.Phone.FullNumber()
	}
	if customer.City != "" {
		contact["CITY"] = customer.City
	}
	if customer.State != "" {
		contact["STATE"] = customer.State
	}
	if customer.CountryCode != "" {
		contact["COUNTRY"] = customer.CountryCode
	}
	if customer.ZipCode != "" {
		contact["ZIP_CODE"] = customer.ZipCode
	}

	properties := map[string]any{}
	if event.Value != nil {
		properties["value"] = event.Value.Amount
		properties["currency"] = string(event.Value.Currency)
	}
	if event.OrderID != "" {
		properties["order_id"] = event.OrderID
	}
	if event.HasItems() {
		items := make([]map[string]any, 0, len(event.Items))
		for _, item := range event.Items {
			items = append(items, map[string]any{
				"product_id": itemString(item, "item_id"),
				"title":      itemString(item, "item_name"),
				"price":      itemValue(item, "price", 0),
				"quantity":   itemValue(item, "quantity", 1),
				"category":   itemString(item, "category"),
				"brand":      itemString(item, "brand"),
			})
		}
		properties["items"] = items
	}
	if event.PageURL != "" {
		properties["page_url"] = event.PageURL.String()
	}

	return &outboundRequest{
		URL: brevoEventsURL,
		Headers: map[string]string{
			"api-key":      c.APIKey,
			"Content-Type": "application/json",
		},
		Body: map[string]any{
			"event":              eventName,
			"identifiers":        identifiers,
			"contact_properties": contact,
			"event_properties":   properties,
		},
	}, nil
}
