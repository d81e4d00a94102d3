package dto

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// TrackEventResponse reports where an event was queued
type TrackEventResponse struct {
	EventID      string   `json:"event_id,omitempty"`
	Status       string   `json:"status"`
	Destinations []string `json:"destinations"`
}

// BulkItemError describes a rejected item of a bulk request
type BulkItemError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BulkTrackResponse summarizes a bulk tracking request
type BulkTrackResponse struct {
	Accepted int                  `json:"accepted"`
	Rejected int                  `json:"rejected"`
	Results  []TrackEventResponse `json:"results,omitempty"`
	Errors   []BulkItemError      `json:"errors,omitempty"`
}

// CountEntry is a count keyed by platform or event type
type CountEntry struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
}

// RevenueEntry is the revenue for one currency
type RevenueEntry struct {
	Currency string  `json:"currency"`
	Total    float64 `json:"total"`
	Count    uint64  `json:"count"`
}

// StatsResponse represents the audit log statistics for a time range
type StatsResponse struct {
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	TotalEvents uint64         `json:"total_events"`
	ByPlatform  []CountEntry   `json:"by_platform"`
	ByEventType []CountEntry   `json:"by_event_type"`
	Revenue     []RevenueEntry `json:"revenue"`
}

// PlatformCredentialsView is one platform's credentials with secrets masked
type PlatformCredentialsView struct {
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields"`
}

// CredentialsResponse lists the configured platforms of an application
type CredentialsResponse struct {
	AppID     string                             `json:"app_id"`
	Category  string                             `json:"category"`
	Platforms map[string]PlatformCredentialsView `json:"platforms"`
}
