package adapter

import (
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const tiktokTrackURL = "https://business-api.tiktok.com/open_api/v1.3/event/track/"

var tiktokEventNames = map[domain.EventType]string{
	domain.EventTypePurchase:              "CompletePayment",
	domain.EventTypeAddToCart:             "AddToCart",
	domain.EventTypeViewItem:              "ViewContent",
	domain.EventTypeBeginCheckout:         "InitiateCheckout",
	domain.EventTypeAddToWishlist:         "AddToWishlist",
	domain.EventTypeAddPaymentInfo:        "AddPaymentInfo",
	domain.EventTypeCompletedRegistration: "CompleteRegistration",
	domain.EventTypePageView:              "PageView",
	domain.EventTypeSearch:                "Search",
	domain.EventTypeSubscription:          "Subscribe",
}

// tiktokPlatform targets the TikTok Events API
type tiktokPlatform struct{}

// NewTikTok creates the TikTok Events API adapter
func NewTikTok(client HTTPDoer, log *zap.Logger) *HTTPAdapter {
	return newHTTPAdapter(tiktokPlatform{}, client, log)
}

func (tiktokPlatform) Platform() domain.Platform { return domain.PlatformTikTok }

func (tiktokPlatform) Supports(t domain.EventType) bool {
	return t != domain.EventTypeCustomizeProduct
}

func (tiktokPlatform) MapEventName(t domain.EventType) (string, bool) {
	name, ok := tiktokEventNames[t]
	return name, ok
}

func (tiktokPlatform) build(event *domain.Event, eventName string, creds domain.PlatformCredentials) (*outboundRequest, error) {
	c, err := credentialsAs[domain.TikTokCredentials](creds)
	if err != nil {
		return nil, err
	}

	customer := event.Customer
	user := map[string]any{}
	if customer.Email != "" {
		user["email"] = customer.Email.Hash()
	}
	if customer.Phone != nil {
		user["phone_number"] = customer.Phone.Hash()
	}
	if customer.IPAddress != "" {
		user["ip"] = customer.IPAddress.String()
	}
	if customer.UserAgent != "" {
		user["user_agent"] = customer.UserAgent
	}
	if customer.ExternalID != "" {
		user["external_id"] = customer.ExternalID
	}

	properties := map[string]any{
		"pixel_code": c.PixelCode,
	}
	if event.Value != nil {
		properties["value"] = event.Value.Amount
		properties["currency"] = string(event.Value.Currency)
	}
	if event.HasItems() {
		contents := make([]map[string]any, 0, len(event.Items))
		for _, item := range event.Items {
			contents = append(contents, map[string]any{
				"content_id":       itemString(item, "item_id"),
				"content_name":     itemString(item, "item_name"),
				"price":            itemValue(item, "price", 0),
				"quantity":         itemValue(item, "quantity", 1),
				"content_category": itemString(item, "category"),
				"brand":            itemString(item, "brand"),
			})
		}
		properties["contents"] = contents
		properties["content_type"] = "product"
	}
	if event.SearchTerm != "" {
		properties["query"] = event.SearchTerm
	}

	return &outboundRequest{
		URL: tiktokTrackURL,
		Headers: map[string]string{
			"Access-Token": c.AccessToken,
			"Content-Type": "application/json",
		},
		Body: map[string]any{
			"pixel_code": c.PixelCode,
			"event":      eventName,
			"event_id":   event.ID,
			"timestamp":  event.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			"context": map[string]any{
				"user": user,
				"page": map[string]any{"url": event.PageURL.String()},
			},
			"properties": properties,
		},
	}, nil
}
