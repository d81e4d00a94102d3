package adapter

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

var pinterestEventNames = map[domain.EventType]string{
	domain.EventTypePurchase:              "checkout",
	domain.EventTypeAddToCart:             "add_to_cart",
	domain.EventTypeViewItem:              "page_visit",
	domain.EventTypePageView:              "page_visit",
	domain.EventTypeSearch:                "search",
	domain.EventTypeCompletedRegistration: "signup",
}

// pinterestPlatform targets the Pinterest Conversions API
type pinterestPlatform struct{}

// NewPinterest creates the Pinterest Conversions API adapter
func NewPinterest(client HTTPDoer, log *zap.Logger) *HTTPAdapter {
	return newHTTPAdapter(pinterestPlatform{}, client, log)
}

func (pinterestPlatform) Platform() domain.Platform { return domain.PlatformPinterest }

func (pinterestPlatform) Supports(t domain.EventType) bool {
	return t != domain.EventTypeCustomizeProduct
}

func (pinterestPlatform) MapEventName(t domain.EventType) (string, bool) {
	name, ok := pinterestEventNames[t]
	return name, ok
}

func (pinterestPlatform) build(event *domain.Event, eventName string, creds domain.PlatformCredentials) (*outboundRequest, error) {
	c, err := credentialsAs[domain.PinterestCredentials](creds)
	if err != nil {
		return nil, err
	}

	customer := event.Customer
	userData := hashedUserData(customer)
	if customer.DateOfBirth != nil {
		userData["db"] = []string{domain.HashSHA256(customer.DateOfBirth.Format("20060102"))}
	}

	customData := map[string]any{}
	if event.Value != nil {
		customData["value"] = strconv.FormatFloat(event.Value.Amount, 'f', -1, 64)
		customData["currency"] = string(event.Value.Currency)
	}
	if event.HasItems() {
		customData["content_ids"] = itemIDs(event.Items)
		customData["num_items"] = len(event.Items)
	}
	if event.OrderID != "" {
		customData["order_id"] = event.OrderID
	}
	if event.SearchTerm != "" {
		customData["search_string"] = event.SearchTerm
	}

	eventData := map[string]any{
		"event_name":    eventName,
		"event_id":      event.ID,
		"event_time":    event.CreatedAt.Unix(),
		"action_source": "web",
		"user_data":     userData,
		"custom_data":   customData,
	}
	if event.PageURL != "" {
		eventData["event_source_url"] = event.PageURL.String()
	}
	if v, ok := event.CustomProperty("opt_out"); ok {
		eventData["opt_out"] = truthy(v)
	}

	env := c.Environment
	if env == "" {
		env = domain.PinterestProduction
	}
	endpoint := fmt.Sprintf("%s/v5/ad_accounts/%s/events", env.BaseURL(), c.AccountID)
	if env == domain.PinterestSandbox {
		endpoint += "?test=true"
	}

	return &outboundRequest{
		URL: endpoint,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.AccessToken,
			"Content-Type":  "application/json",
		},
		Body: map[string]any{
			"data": []map[string]any{eventData},
		},
	}, nil
}

// hashedUserData builds the hashed identifier lists shared by Pinterest and Snapchat
func hashedUserData(customer domain.Customer) map[string]any {
	userData := map[string]any{}
	if customer.Email != "" {
		userData["em"] = []string{customer.Email.Hash()}
	}
	if customer.Phone != nil {
		userData["ph"] = []string{customer.Phone.Hash()}
	}
	if customer.Gender != "" {
		userData["ge"] = []string{hashLower(customer.Gender)}
	}
	if customer.FirstName != "" {
		userData["fn"] = []string{hashLower(customer.FirstName)}
	}
	if customer.LastName != "" {
		userData["ln"] = []string{hashLower(customer.LastName)}
	}
	if customer.City != "" {
		userData["ct"] = []string{hashLower(customer.City)}
	}
	if customer.State != "" {
		userData["st"] = []string{hashLower(customer.State)}
	}
	if customer.CountryCode != "" {
		userData["country"] = []string{hashLower(customer.CountryCode)}
	}
	if customer.ZipCode != "" {
		userData["zp"] = []string{domain.HashSHA256(customer.ZipCode)}
	}
	if customer.ExternalID != "" {
		userData["external_id"] = []string{domain.HashSHA256(customer.ExternalID)}
	}
	if customer.IPAddress != "" {
		userData["client_ip_address"] = customer.IPAddress.String()
	}
	if customer.UserAgent != "" {
		userData["client_user_agent"] = customer.UserAgent
	}
	return userData
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return v != nil
	}
}
