package dto

import "time"

// BulkTrackRequest represents a batch of raw tracking payloads
type BulkTrackRequest struct {
	Events []map[string]any `json:"events" binding:"required,min=1"`
}

// StatsRequest bounds a statistics query; dates are inclusive days in UTC
type StatsRequest struct {
	From time.Time `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To   time.Time `form:"to" time_format:"2006-01-02" time_utc:"1"`
}

// SavePlatformCredentialsRequest carries one platform's credential fields keyed by storage name
type SavePlatformCredentialsRequest struct {
	Credentials map[string]string `json:"credentials" binding:"required"`
}
