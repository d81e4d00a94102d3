package domain

import (
	"strings"
	"time"
)

// Customer holds optional, individually validated customer attributes.
// Invalid values are dropped rather than rejecting the event.
type Customer struct {
	Email       Email          `json:"email,omitempty"`
	Phone       *Phone         `json:"phone,omitempty"`
	IPAddress   IPAddress      `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	ExternalID  string         `json:"external_id,omitempty"`
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	Gender      string         `json:"gender,omitempty"`
	DateOfBirth *time.Time     `json:"date_of_birth,omitempty"`
	City        string         `json:"city,omitempty"`
	State       string         `json:"state,omitempty"`
	CountryCode string         `json:"country_code,omitempty"`
	ZipCode     string         `json:"zip_code,omitempty"`
	FBC         string         `json:"fbc,omitempty"`
	FBP         string         `json:"fbp,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
}

// CustomerInput is the unvalidated form of a customer record
type CustomerInput struct {
	Email       string
	Phone       string
	PhoneCode   string
	IPAddress   string
	UserAgent   string
	ExternalID  string
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth string
	City        string
	State       string
	CountryCode string
	ZipCode     string
	FBC         string
	FBP         string
	Custom      map[string]any
}

var dateOfBirthLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"20060102",
}

// NewCustomer validates every field independently and drops the invalid ones
func NewCustomer(in CustomerInput) Customer {
	c := Customer{
		UserAgent:   strings.TrimSpace(in.UserAgent),
		ExternalID:  strings.TrimSpace(in.ExternalID),
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Gender:      strings.TrimSpace(in.Gender),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		CountryCode: strings.ToUpper(strings.TrimSpace(in.CountryCode)),
		ZipCode:     strings.TrimSpace(in.ZipCode),
		FBC:         strings.TrimSpace(in.FBC),
		FBP:         strings.TrimSpace(in.FBP),
	}

	if strings.TrimSpace(in.Email) != "" {
		if email, err := ParseEmail(in.Email); err == nil {
			c.Email = email
		}
	}

	if strings.TrimSpace(in.Phone) != "" {
		if phone, err := NewPhone(in.Phone, in.PhoneCode); err == nil {
			c.Phone = &phone
		}
	}

	if strings.TrimSpace(in.IPAddress) != "" {
		if ip, err := ParseIPAddress(in.IPAddress); err == nil {
			c.IPAddress = ip
		}
	}

	if dob, ok := parseDateOfBirth(in.DateOfBirth); ok {
		c.DateOfBirth = &dob
	}

	if len(in.Custom) > 0 {
		c.Custom = in.Custom
	}

	return c
}

func parseDateOfBirth(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateOfBirthLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsEmpty reports whether no customer attribute survived validation
func (c Customer) IsEmpty() bool {
	return c.Email == "" && c.Phone == nil && c.IPAddress == "" && c.UserAgent == "" &&
		c.ExternalID == "" && c.FirstName == "" && c.LastName == "" && c.Gender == "" &&
		c.DateOfBirth == nil && c.City == "" && c.State == "" && c.CountryCode == "" &&
		c.ZipCode == "" && c.FBC == "" && c.FBP == "" && len(c.Custom) == 0
}
