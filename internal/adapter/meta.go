package adapter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const metaGraphURL = "https://graph.facebook.com/v18.0"

var metaEventNames = map[domain.EventType]string{
	domain.EventTypeAddToCart:             "AddToCart",
	domain.EventTypeViewItem:              "ViewContent",
	domain.EventTypePurchase:              "Purchase",
	domain.EventTypeCompletedRegistration: "CompleteRegistration",
	domain.EventTypePageView:              "PageView",
	domain.EventTypeSearch:                "Search",
	domain.EventTypeSubscription:          "Subscribe",
	domain.EventTypeBeginCheckout:         "InitiateCheckout",
	domain.EventTypeViewCart:              "ViewCart",
	domain.EventTypeAddPaymentInfo:        "AddPaymentInfo",
	domain.EventTypeAddToWishlist:         "AddToWishlist",
	domain.EventTypeCustomizeProduct:      "CustomizeProduct",
}

// metaPlatform targets the Meta Conversions API
type metaPlatform struct{}

// NewMeta creates the Meta Conversions API adapter
func NewMeta(client HTTPDoer, log *zap.Logger) *HTTPAdapter {
	return newHTTPAdapter(metaPlatform{}, client, log)
}

func (metaPlatform) Platform() domain.Platform { return domain.PlatformMeta }

func (metaPlatform) Supports(domain.EventType) bool { return true }

func (metaPlatform) MapEventName(t domain.EventType) (string, bool) {
	name, ok := metaEventNames[t]
	return name, ok
}

func (metaPlatform) build(event *domain.Event, eventName string, creds domain.PlatformCredentials) (*outboundRequest, error) {
	c, err := credentialsAs[domain.MetaCredentials](creds)
	if err != nil {
		return nil, err
	}

	customer := event.Customer
	userData := map[string]any{}
	if customer.Email != "" {
		userData["em"] = customer.Email.Hash()
	}
	if customer.Phone != nil {
		userData["ph"] = customer.Phone.Hash()
	}
	if customer.IPAddress != "" {
		userData["client_ip_address"] = customer.IPAddress.String()
	}
	if customer.UserAgent != "" {
		userData["client_user_agent"] = customer.UserAgent
	}
	if customer.DateOfBirth != nil {
		userData["db"] = customer.DateOfBirth.Format("20060102")
	}
	if customer.Gender != "" {
		userData["ge"] = strings.ToLower(string([]rune(customer.Gender)[:1]))
	}
	if customer.FirstName != "" {
		userData["fn"] = strings.ToLower(customer.FirstName)
	}
	if customer.LastName != "" {
		userData["ln"] = strings.ToLower(customer.LastName)
	}
	if customer.City != "" {
		userData["ct"] = strings.ToLower(customer.City)
	}
	if customer.State != "" {
		userData["st"] = strings.ToLower(customer.State)
	}
	if customer.CountryCode != "" {
		userData["country"] = strings.ToLower(customer.CountryCode)
	}
	if customer.ZipCode != "" {
		userData["zp"] = customer.ZipCode
	}
	if customer.ExternalID != "" {
		userData["external_id"] = customer.ExternalID
	}
	if customer.FBC != "" {
		userData["fbc"] = customer.FBC
	}
	if customer.FBP != "" {
		userData["fbp"] = customer.FBP
	}

	customData := map[string]any{}
	if event.Value != nil {
		customData["value"] = event.Value.Amount
		customData["currency"] = string(event.Value.Currency)
	}
	if event.HasItems() {
		contents := make([]map[string]any, 0, len(event.Items))
		for _, item := range event.Items {
			contents = append(contents, map[string]any{
				"id":         itemString(item, "item_id"),
				"quantity":   itemValue(item, "quantity", 1),
				"item_price": itemValue(item, "price", 0),
			})
		}
		customData["contents"] = contents
		customData["num_items"] = len(event.Items)
	}
	if event.TransactionID != "" {
		customData["order_id"] = event.TransactionID
	}
	if event.SearchTerm != "" {
		customData["search_string"] = event.SearchTerm
	}

	fbEvent := map[string]any{
		"event_name":    eventName,
		"event_id":      event.ID,
		"event_time":    event.CreatedAt.Unix(),
		"action_source": "website",
		"user_data":     userData,
		"custom_data":   customData,
	}
	if event.PageURL != "" {
		fbEvent["event_source_url"] = event.PageURL.String()
	}

	return &outboundRequest{
		URL:     fmt.Sprintf("%s/%s/events", metaGraphURL, c.PixelID),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: map[string]any{
			"data":         []map[string]any{fbEvent},
			"access_token": c.AccessToken,
		},
	}, nil
}
