package domain

import "strings"

// EventType is the kind of commerce interaction being tracked
type EventType string

const (
	EventTypeSearch                EventType = "search"
	EventTypeSubscription          EventType = "subscription"
	EventTypeAddToCart             EventType = "add_to_cart"
	EventTypePurchase              EventType = "purchase"
	EventTypeViewItem              EventType = "view_item"
	EventTypeCompletedRegistration EventType = "completed_registration"
	EventTypeBeginCheckout         EventType = "begin_checkout"
	EventTypeViewCart              EventType = "view_cart"
	EventTypeAddPaymentInfo        EventType = "add_payment_info"
	EventTypeAddToWishlist         EventType = "add_to_wishlist"
	EventTypePageView              EventType = "page_view"
	EventTypeCustomizeProduct      EventType = "customize_product"
)

var eventTypes = []EventType{
	EventTypeSearch,
	EventTypeSubscription,
	EventTypeAddToCart,
	EventTypePurchase,
	EventTypeViewItem,
	EventTypeCompletedRegistration,
	EventTypeBeginCheckout,
	EventTypeViewCart,
	EventTypeAddPaymentInfo,
	EventTypeAddToWishlist,
	EventTypePageView,
	EventTypeCustomizeProduct,
}

// AllEventTypes returns every recognized event type in declaration order
func AllEventTypes() []EventType {
	out := make([]EventType, len(eventTypes))
	copy(out, eventTypes)
	return out
}

// ParseEventType resolves a raw event type string, returning *InvalidEventTypeError when unrecognized
func ParseEventType(raw string) (EventType, error) {
	value := strings.TrimSpace(raw)
	for _, t := range eventTypes {
		if string(t) == value {
			return t, nil
		}
	}
	return "", &InvalidEventTypeError{Value: value}
}

func (t EventType) String() string {
	return string(t)
}
