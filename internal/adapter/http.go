package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const (
	RequestTimeout = 10 * time.Second
	ConnectTimeout = 5 * time.Second

	maxResponseBytes = 1 << 20
)

// NewHTTPClient returns the client shared by every platform adapter
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: ConnectTimeout}
	return &http.Client{
		Timeout: RequestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: ConnectTimeout,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// outboundRequest is a platform request ready to be encoded and posted
type outboundRequest struct {
	URL     string
	Headers map[string]string
	Body    any
}

// platform holds the destination specific parts of an adapter. Implementations are pure.
type platform interface {
	Platform() domain.Platform
	Supports(eventType domain.EventType) bool
	MapEventName(eventType domain.EventType) (string, bool)
	build(event *domain.Event, eventName string, creds domain.PlatformCredentials) (*outboundRequest, error)
}

// HTTPAdapter posts one JSON request per Send and classifies the response
type HTTPAdapter struct {
	platform
	client HTTPDoer
	log    *zap.Logger
}

func newHTTPAdapter(p platform, client HTTPDoer, log *zap.Logger) *HTTPAdapter {
	if client == nil {
		client = NewHTTPClient()
	}
	return &HTTPAdapter{
		platform: p,
		client:   client,
		log:      log,
	}
}

// New creates the base adapter for a platform
func New(p domain.Platform, client HTTPDoer, log *zap.Logger) (*HTTPAdapter, error) {
	switch p {
	case domain.PlatformMeta:
		return NewMeta(client, log), nil
	case domain.PlatformGoogle:
		return NewGoogle(client, log), nil
	case domain.PlatformTikTok:
		return NewTikTok(client, log), nil
	case domain.PlatformPinterest:
		return NewPinterest(client, log), nil
	case domain.PlatformSnapchat:
		return NewSnapchat(client, log), nil
	case domain.PlatformBrevo:
		return NewBrevo(client, log), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, p)
	}
}

// Send builds the platform payload and performs exactly one POST
func (a *HTTPAdapter) Send(ctx context.Context, event *domain.Event, creds domain.PlatformCredentials) domain.DeliveryResult {
	if event == nil {
		return domain.FailureResult("event is nil", nil)
	}
	if creds == nil || creds.Platform() != a.Platform() {
		return domain.FailureResult(fmt.Sprintf("credentials do not belong to %s", a.Platform()), nil)
	}

	eventName, ok := a.MapEventName(event.Type)
	if !ok {
		return domain.FailureResult(fmt.Sprintf("event type %s has no %s event name", event.Type, a.Platform()), nil)
	}

	out, err := a.build(event, eventName, creds)
	if err != nil {
		return a.failure(event, fmt.Errorf("failed to build payload: %w", err))
	}

	body, err := json.Marshal(out.Body)
	if err != nil {
		return a.failure(event, fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, out.URL, bytes.NewReader(body))
	if err != nil {
		return a.failure(event, fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range out.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return a.failure(event, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return a.failure(event, fmt.Errorf("failed to read response: %w", err))
	}
	parsed := parseBody(respBody)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return domain.SuccessResult(parsed)
	}

	a.log.Warn("Platform API error",
		zap.String("platform", a.Platform().String()),
		zap.String("event_id", event.ID),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", respBody))

	return domain.FailureResult(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, respBody), parsed)
}

func (a *HTTPAdapter) failure(event *domain.Event, err error) domain.DeliveryResult {
	a.log.Error("Platform adapter error",
		zap.String("platform", a.Platform().String()),
		zap.String("event_id", event.ID),
		zap.Error(err))
	return domain.FailureResult(err.Error(), nil)
}

// parseBody decodes a JSON response body, returning nil when the body is empty or not JSON
func parseBody(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}
	return parsed
}

// credentialsAs asserts the concrete credentials type of a platform
func credentialsAs[T domain.PlatformCredentials](creds domain.PlatformCredentials) (T, error) {
	c, ok := creds.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected credentials type %T", creds)
	}
	return c, nil
}

func itemString(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case float64, int, int64, json.Number:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// itemValue returns item[key], or fallback when the key is absent or null
func itemValue(item map[string]any, key string, fallback any) any {
	if v, ok := item[key]; ok && v != nil {
		return v
	}
	return fallback
}

func itemIDs(items []map[string]any) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, itemString(item, "item_id"))
	}
	return ids
}

func hashLower(value string) string {
	return domain.HashSHA256(strings.ToLower(value))
}
