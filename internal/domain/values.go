package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// HashSHA256 returns the lowercase hex SHA-256 digest used for hashed identifiers
func HashSHA256(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Currency is an ISO 4217 code
type Currency string

var supportedCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "TRY": {}, "JPY": {}, "CNY": {}, "CAD": {}, "AUD": {},
	"CHF": {}, "SEK": {}, "NOK": {}, "DKK": {}, "INR": {}, "BRL": {}, "RUB": {}, "MXN": {},
	"KRW": {}, "SGD": {}, "HKD": {}, "NZD": {}, "ZAR": {}, "AED": {}, "SAR": {}, "PLN": {},
	"THB": {}, "MYR": {}, "IDR": {}, "PHP": {}, "CZK": {}, "HUF": {}, "ILS": {},
}

// ParseCurrency normalizes and validates a currency code
func ParseCurrency(raw string) (Currency, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := supportedCurrencies[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, raw)
	}
	return Currency(code), nil
}

// Money is a non-negative amount in a known currency
type Money struct {
	Amount   float64
	Currency Currency
}

// NewMoney validates the amount and currency as a pair
func NewMoney(amount float64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, fmt.Errorf("%w: amount cannot be negative: %v", ErrInvalidMoney, amount)
	}
	c, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: c}, nil
}

// Email is a trimmed, lower-cased, syntactically valid address
type Email string

// ParseEmail normalizes and validates an email address
func ParseEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" || validate.Var(normalized, "email") != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return Email(normalized), nil
}

func (e Email) String() string {
	return string(e)
}

// Hash returns the SHA-256 digest of the normalized address
func (e Email) Hash() string {
	return HashSHA256(string(e))
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Phone is a digit-only number with an optional "+"-prefixed country code
type Phone struct {
	Number      string `json:"number"`
	CountryCode string `json:"country_code,omitempty"`
}

// NewPhone cleans the number and country code; numbers must have 6-15 digits
func NewPhone(number, countryCode string) (Phone, error) {
	clean := nonDigits.ReplaceAllString(number, "")
	if clean == "" {
		return Phone{}, fmt.Errorf("%w: no digits found", ErrInvalidPhone)
	}
	if len(clean) < 6 || len(clean) > 15 {
		return Phone{}, fmt.Errorf("%w: phone number must be between 6-15 digits", ErrInvalidPhone)
	}

	code := strings.TrimSpace(countryCode)
	if code != "" {
		code = "+" + strings.TrimLeft(code, "+")
	}

	return Phone{Number: clean, CountryCode: code}, nil
}

// FullNumber returns the country code followed by the number
func (p Phone) FullNumber() string {
	return p.CountryCode + p.Number
}

// Hash returns the SHA-256 digest of the full number
func (p Phone) Hash() string {
	return HashSHA256(p.FullNumber())
}

// IPAddress is a valid IPv4 or IPv6 address
type IPAddress string

// ParseIPAddress validates an IP address
func ParseIPAddress(raw string) (IPAddress, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" || validate.Var(clean, "ip") != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIPAddress, raw)
	}
	return IPAddress(clean), nil
}

func (ip IPAddress) String() string {
	return string(ip)
}

// URL is an absolute http or https URL
type URL string

// ParseURL validates an absolute http(s) URL
func ParseURL(raw string) (URL, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" || validate.Var(clean, "url") != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	parsed, err := url.Parse(clean)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return URL(clean), nil
}

func (u URL) String() string {
	return string(u)
}
