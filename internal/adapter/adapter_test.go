package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// recordingDoer answers every request with a canned response and keeps what it was sent
type recordingDoer struct {
	status int
	body   string
	err    error

	requests []*http.Request
	payloads []map[string]any
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		var payload map[string]any
		_ = json.Unmarshal(raw, &payload)
		d.payloads = append(d.payloads, payload)
	}
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     make(http.Header),
	}, nil
}

func purchaseEvent(t *testing.T) *domain.Event {
	t.Helper()
	value, err := domain.NewMoney(99.99, "USD")
	require.NoError(t, err)
	email, err := domain.ParseEmail("A@B.com")
	require.NoError(t, err)
	phone, err := domain.NewPhone("555 123 4567", "1")
	require.NoError(t, err)
	page, err := domain.ParseURL("https://shop.example.com/checkout")
	require.NoError(t, err)
	dob := time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)

	return &domain.Event{
		ID:   "evt-1",
		Type: domain.EventTypePurchase,
		Customer: domain.Customer{
			Email:       email,
			Phone:       &phone,
			IPAddress:   "203.0.113.7",
			UserAgent:   "Mozilla/5.0",
			ExternalID:  "user-42",
			FirstName:   "Ada",
			Gender:      "Female",
			DateOfBirth: &dob,
			CountryCode: "TR",
		},
		Items: []map[string]any{
			{"item_id": "sku-1", "item_name": "Shoe", "price": 49.99, "quantity": float64(2), "category": "shoes"},
			{"item_id": "sku-2"},
		},
		Value:         &value,
		PageURL:       page,
		TransactionID: "tx-1",
		OrderID:       "order-1",
		SearchTerm:    "",
		CreatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func firstEntry(t *testing.T, payload map[string]any, key string) map[string]any {
	t.Helper()
	list, ok := payload[key].([]any)
	require.True(t, ok, "%s is not a list", key)
	require.Len(t, list, 1)
	return list[0].(map[string]any)
}

func TestMeta_Send(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `{"events_received":1}`}
	a := NewMeta(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.MetaCredentials{PixelID: "123", AccessToken: "tok"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, map[string]any{"events_received": float64(1)}, result.Raw)

	require.Len(t, doer.requests, 1)
	req := doer.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://graph.facebook.com/v18.0/123/events", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	payload := doer.payloads[0]
	assert.Equal(t, "tok", payload["access_token"])

	ev := firstEntry(t, payload, "data")
	assert.Equal(t, "Purchase", ev["event_name"])
	assert.Equal(t, "evt-1", ev["event_id"])
	assert.Equal(t, "website", ev["action_source"])
	assert.Equal(t, float64(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Unix()), ev["event_time"])
	assert.Equal(t, "https://shop.example.com/checkout", ev["event_source_url"])

	user := ev["user_data"].(map[string]any)
	assert.Equal(t, domain.HashSHA256("a@b.com"), user["em"])
	assert.Equal(t, "19900402", user["db"])
	assert.Equal(t, "f", user["ge"])
	assert.Equal(t, "ada", user["fn"])
	assert.Equal(t, "tr", user["country"])
	assert.Equal(t, "203.0.113.7", user["client_ip_address"])

	custom := ev["custom_data"].(map[string]any)
	assert.Equal(t, 99.99, custom["value"])
	assert.Equal(t, "USD", custom["currency"])
	assert.Equal(t, "tx-1", custom["order_id"])
	assert.Equal(t, float64(2), custom["num_items"])
	contents := custom["contents"].([]any)
	assert.Equal(t, map[string]any{"id": "sku-2", "quantity": float64(1), "item_price": float64(0)}, contents[1])
}

func TestGoogle_Send(t *testing.T) {
	doer := &recordingDoer{status: http.StatusNoContent}
	a := NewGoogle(doer, zap.NewNop())

	event := purchaseEvent(t)
	event.Type = domain.EventTypeCompletedRegistration
	shipping := 4.5
	event.Shipping = &shipping

	result := a.Send(context.Background(), event, domain.GoogleCredentials{MeasurementID: "G-1", APISecret: "s&1"})

	require.True(t, result.Success, result.Error)
	assert.Nil(t, result.Raw)

	u := doer.requests[0].URL
	assert.Equal(t, "www.google-analytics.com", u.Host)
	assert.Equal(t, "/mp/collect", u.Path)
	assert.Equal(t, "G-1", u.Query().Get("measurement_id"))
	assert.Equal(t, "s&1", u.Query().Get("api_secret"))

	payload := doer.payloads[0]
	assert.Equal(t, "user-42", payload["client_id"])
	assert.Equal(t, "user-42", payload["user_id"])

	ev := firstEntry(t, payload, "events")
	assert.Equal(t, "sign_up", ev["name"])
	params := ev["params"].(map[string]any)
	assert.Equal(t, 4.5, params["shipping"])
	assert.Equal(t, "tx-1", params["transaction_id"])
	items := params["items"].([]any)
	assert.Equal(t, "shoes", items[0].(map[string]any)["item_category"])
	assert.Nil(t, items[1].(map[string]any)["item_brand"])
}

func TestGoogle_AnonymousClient(t *testing.T) {
	doer := &recordingDoer{status: http.StatusNoContent}
	a := NewGoogle(doer, zap.NewNop())

	event := &domain.Event{ID: "e", Type: domain.EventTypePageView, CreatedAt: time.Now()}
	result := a.Send(context.Background(), event, domain.GoogleCredentials{MeasurementID: "G-1", APISecret: "s"})

	require.True(t, result.Success)
	assert.Equal(t, "anonymous", doer.payloads[0]["client_id"])
	assert.NotContains(t, doer.payloads[0], "user_id")
}

func TestTikTok_Send(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `{"code":0}`}
	a := NewTikTok(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.TikTokCredentials{PixelCode: "PX", AccessToken: "tt"})

	require.True(t, result.Success, result.Error)
	req := doer.requests[0]
	assert.Equal(t, tiktokTrackURL, req.URL.String())
	assert.Equal(t, "tt", req.Header.Get("Access-Token"))

	payload := doer.payloads[0]
	assert.Equal(t, "CompletePayment", payload["event"])
	assert.Equal(t, "2025-01-02T03:04:05Z", payload["timestamp"])
	props := payload["properties"].(map[string]any)
	assert.Equal(t, "product", props["content_type"])
	assert.Equal(t, "PX", props["pixel_code"])
	user := payload["context"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, domain.HashSHA256("a@b.com"), user["email"])
}

func TestTikTok_UnmappedEventFails(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK}
	a := NewTikTok(doer, zap.NewNop())

	assert.True(t, a.Supports(domain.EventTypeViewCart))
	assert.False(t, a.Supports(domain.EventTypeCustomizeProduct))

	result := a.Send(context.Background(), &domain.Event{ID: "e", Type: domain.EventTypeViewCart}, domain.TikTokCredentials{PixelCode: "PX", AccessToken: "tt"})
	assert.False(t, result.Success)
	assert.Empty(t, doer.requests)
}

func TestPinterest_Endpoint(t *testing.T) {
	tests := []struct {
		name string
		env  domain.PinterestEnvironment
		want string
	}{
		{"default is production", "", "https://api.pinterest.com/v5/ad_accounts/549/events"},
		{"production", domain.PinterestProduction, "https://api.pinterest.com/v5/ad_accounts/549/events"},
		{"sandbox", domain.PinterestSandbox, "https://api-sandbox.pinterest.com/v5/ad_accounts/549/events?test=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &recordingDoer{status: http.StatusOK, body: `{}`}
			a := NewPinterest(doer, zap.NewNop())

			result := a.Send(context.Background(), purchaseEvent(t), domain.PinterestCredentials{AccountID: "549", AccessToken: "pin", Environment: tt.env})

			require.True(t, result.Success, result.Error)
			assert.Equal(t, tt.want, doer.requests[0].URL.String())
			assert.Equal(t, "Bearer pin", doer.requests[0].Header.Get("Authorization"))
		})
	}
}

func TestPinterest_Payload(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK}
	a := NewPinterest(doer, zap.NewNop())

	event := purchaseEvent(t)
	event.CustomProperties = map[string]any{"opt_out": "true"}

	require.True(t, a.Send(context.Background(), event, domain.PinterestCredentials{AccountID: "1", AccessToken: "p"}).Success)

	ev := firstEntry(t, doer.payloads[0], "data")
	assert.Equal(t, "checkout", ev["event_name"])
	assert.Equal(t, "web", ev["action_source"])
	assert.Equal(t, true, ev["opt_out"])

	user := ev["user_data"].(map[string]any)
	assert.Equal(t, []any{domain.HashSHA256("ada")}, user["fn"])
	assert.Equal(t, []any{domain.HashSHA256("19900402")}, user["db"])
	assert.Equal(t, []any{domain.HashSHA256("user-42")}, user["external_id"])

	custom := ev["custom_data"].(map[string]any)
	assert.Equal(t, "99.99", custom["value"])
	assert.Equal(t, []any{"sku-1", "sku-2"}, custom["content_ids"])
	assert.Equal(t, "order-1", custom["order_id"])
}

func TestSnapchat_Send(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK, body: `{"status":"SUCCESS"}`}
	a := NewSnapchat(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.SnapchatCredentials{PixelID: "snap", AccessToken: "a b"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "https://tr.snapchat.com/v3/snap/events?access_token=a+b", doer.requests[0].URL.String())

	ev := firstEntry(t, doer.payloads[0], "data")
	assert.Equal(t, "PURCHASE", ev["event_name"])
	assert.Equal(t, "WEB", ev["event_conversion_type"])
	assert.Equal(t, float64(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli()), ev["timestamp"])
	assert.Equal(t, []any{domain.HashSHA256("a@b.com")}, ev["hashed_email"])

	custom := ev["custom_data"].(map[string]any)
	assert.Equal(t, "99.99", custom["price"])
	assert.Equal(t, "2", custom["number_items"])
	assert.Equal(t, "order-1", custom["transaction_id"])
}

func TestBrevo_Send(t *testing.T) {
	doer := &recordingDoer{status: http.StatusNoContent}
	a := NewBrevo(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.BrevoCredentials{APIKey: "xkeysib"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, brevoEventsURL, doer.requests[0].URL.String())
	assert.Equal(t, "xkeysib", doer.requests[0].Header.Get("api-key"))

	payload := doer.payloads[0]
	assert.Equal(t, "purchase", payload["event"])
	assert.Equal(t, map[string]any{"email_id": "a@b.com", "ext_id": "user-42"}, payload["identifiers"])
	contact := payload["contact_properties"].(map[string]any)
	assert.Equal(t, "+15551234567", contact["SMS"])
	assert.Equal(t, "TR", contact["COUNTRY"])
}

func TestHTTPAdapter_NonSuccessStatus(t *testing.T) {
	doer := &recordingDoer{status: http.StatusBadRequest, body: `{"error":{"message":"Invalid OAuth access token"}}`}
	a := NewMeta(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.MetaCredentials{PixelID: "1", AccessToken: "bad"})

	assert.False(t, result.Success)
	assert.Equal(t, `HTTP 400: {"error":{"message":"Invalid OAuth access token"}}`, result.Error)
	assert.NotNil(t, result.Raw)
	assert.False(t, result.SentAt.IsZero())
}

func TestHTTPAdapter_NonJSONErrorBody(t *testing.T) {
	doer := &recordingDoer{status: http.StatusBadGateway, body: "upstream down"}
	a := NewBrevo(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.BrevoCredentials{APIKey: "k"})

	assert.False(t, result.Success)
	assert.Equal(t, "HTTP 502: upstream down", result.Error)
	assert.Nil(t, result.Raw)
}

func TestHTTPAdapter_TransportError(t *testing.T) {
	doer := &recordingDoer{err: errors.New("connection refused")}
	a := NewMeta(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.MetaCredentials{PixelID: "1", AccessToken: "t"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "connection refused")
}

func TestHTTPAdapter_CredentialsMismatch(t *testing.T) {
	doer := &recordingDoer{status: http.StatusOK}
	a := NewMeta(doer, zap.NewNop())

	result := a.Send(context.Background(), purchaseEvent(t), domain.BrevoCredentials{APIKey: "k"})

	assert.False(t, result.Success)
	assert.Empty(t, doer.requests)
}

// rewriteTransport sends every request to a test server, keeping path and query
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func TestHTTPAdapter_OverRealHTTP(t *testing.T) {
	var gotPath, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get("Access-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"message":"OK"}`))
	}))
	defer server.Close()

	target, err := url.Parse(server.URL)
	require.NoError(t, err)
	client := NewHTTPClient()
	client.Transport = rewriteTransport{target: target}

	a := NewTikTok(client, zap.NewNop())
	result := a.Send(context.Background(), purchaseEvent(t), domain.TikTokCredentials{PixelCode: "PX", AccessToken: "tt"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "/open_api/v1.3/event/track/", gotPath)
	assert.Equal(t, "tt", gotHeader)
	assert.Equal(t, RequestTimeout, client.Timeout)
}

func TestNew(t *testing.T) {
	for _, p := range domain.AllPlatforms() {
		a, err := New(p, &recordingDoer{}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, p, a.Platform())
	}

	_, err := New("myspace", nil, zap.NewNop())
	assert.True(t, errors.Is(err, domain.ErrUnknownPlatform))
}
