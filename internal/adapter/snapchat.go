package adapter

import (
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const snapchatEventsURL = "https://tr.snapchat.com/v3"

var snapchatEventNames = map[domain.EventType]string{
	domain.EventTypePurchase:              "PURCHASE",
	domain.EventTypeAddToCart:             "ADD_CART",
	domain.EventTypeViewItem:              "VIEW_CONTENT",
	domain.EventTypeBeginCheckout:         "START_CHECKOUT",
	domain.EventTypeAddToWishlist:         "ADD_TO_WISHLIST",
	domain.EventTypeCompletedRegistration: "SIGN_UP",
	domain.EventTypePageView:              "PAGE_VIEW",
	domain.EventTypeSearch:                "SEARCH",
	domain.EventTypeSubscription:          "SUBSCRIBE",
}

// snapchatPlatform targets the Snapchat Conversions API
type snapchatPlatform struct{}

// NewSnapchat creates the Snapchat Conversions API adapter
func NewSnapchat(client HTTPDoer, log *zap.Logger) *HTTPAdapter {
	return newHTTPAdapter(snapchatPlatform{}, client, log)
}

func (snapchatPlatform) Platform() domain.Platform { return domain.PlatformSnapchat }

func (snapchatPlatform) Supports(t domain.EventType) bool {
	return t != domain.EventTypeCustomizeProduct
}

func (snapchatPlatform) MapEventName(t domain.EventType) (string, bool) {
	name, ok := snapchatEventNames[t]
	return name, ok
}

func (snapchatPlatform) build(event *domain.Event, eventName string, creds domain.PlatformCredentials) (*outboundRequest, error) {
	c, err := credentialsAs[domain.SnapchatCredentials](creds)
	if err != nil {
		return nil, err
	}

	userData := hashedUserData(event.Customer)

	customData := map[string]any{}
	if event.Value != nil {
		customData["price"] = strconv.FormatFloat(event.Value.Amount, 'f', -1, 64)
		customData["currency"] = string(event.Value.Currency)
	}
	if event.HasItems() {
		customData["item_ids"] = itemIDs(event.Items)
		customData["number_items"] = strconv.Itoa(len(event.Items))
	}
	if event.OrderID != "" {
		customData["transaction_id"] = event.OrderID
	}
	if event.SearchTerm != "" {
		customData["search_string"] = event.SearchTerm
	}

	eventData := map[string]any{
		"event_name":            eventName,
		"event_conversion_type": "WEB",
		"event_tag":             "event",
		"timestamp":             event.CreatedAt.UnixMilli(),
		"hashed_email":          userData["em"],
		"hashed_phone_number":   userData["ph"],
		"user_agent":            userData["client_user_agent"],
		"ip_address":            userData["client_ip_address"],
	}
	if event.PageURL != "" {
		eventData["page_url"] = event.PageURL.String()
	}
	if len(customData) > 0 {
		eventData["custom_data"] = customData
	}

	return &outboundRequest{
		URL:     fmt.Sprintf("%s/%s/events?access_token=%s", snapchatEventsURL, c.PixelID, url.QueryEscape(c.AccessToken)),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: map[string]any{
			"data": []map[string]any{eventData},
		},
	}, nil
}
