package domain

import (
	"fmt"
	"strings"
)

// Storage field names, shared by every credentials backend and the delivery task wire format
const (
	FieldMetaPixelID          = "meta_pixel_id"
	FieldMetaAccessToken      = "meta_access_token"
	FieldGoogleMeasurementID  = "google_measurement_id"
	FieldGoogleAPISecret      = "google_api_secret"
	FieldTikTokPixelCode      = "tiktok_pixel_code"
	FieldTikTokAccessToken    = "tiktok_access_token"
	FieldPinterestAccountID   = "pinterest_account_id"
	FieldPinterestAccessToken = "pinterest_access_token"
	FieldPinterestEnvironment = "pinterest_environment"
	FieldSnapchatPixelID      = "snapchat_pixel_id"
	FieldSnapchatAccessToken  = "snapchat_access_token"
	FieldBrevoAPIKey          = "brevo_api_key"
)

// SecretFields lists the credential fields that are encrypted at rest
var SecretFields = []string{
	FieldMetaAccessToken,
	FieldGoogleAPISecret,
	FieldTikTokAccessToken,
	FieldPinterestAccessToken,
	FieldSnapchatAccessToken,
	FieldBrevoAPIKey,
}

var platformFields = map[Platform][]string{
	PlatformMeta:      {FieldMetaPixelID, FieldMetaAccessToken},
	PlatformGoogle:    {FieldGoogleMeasurementID, FieldGoogleAPISecret},
	PlatformTikTok:    {FieldTikTokPixelCode, FieldTikTokAccessToken},
	PlatformPinterest: {FieldPinterestAccountID, FieldPinterestAccessToken, FieldPinterestEnvironment},
	PlatformSnapchat:  {FieldSnapchatPixelID, FieldSnapchatAccessToken},
	PlatformBrevo:     {FieldBrevoAPIKey},
}

// PlatformFields returns every storage field owned by a platform, required and optional
func PlatformFields(p Platform) []string {
	return append([]string(nil), platformFields[p]...)
}

// PlatformCredentials is one destination's credential set
type PlatformCredentials interface {
	Platform() Platform
	// Valid reports whether all required fields are non-empty
	Valid() bool
	// Fields flattens the credentials into their storage field names
	Fields() map[string]string
}

type MetaCredentials struct {
	PixelID     string
	AccessToken string
}

func (c MetaCredentials) Platform() Platform { return PlatformMeta }

func (c MetaCredentials) Valid() bool { return c.PixelID != "" && c.AccessToken != "" }

func (c MetaCredentials) Fields() map[string]string {
	return map[string]string{FieldMetaPixelID: c.PixelID, FieldMetaAccessToken: c.AccessToken}
}

type GoogleCredentials struct {
	MeasurementID string
	APISecret     string
}

func (c GoogleCredentials) Platform() Platform { return PlatformGoogle }

func (c GoogleCredentials) Valid() bool { return c.MeasurementID != "" && c.APISecret != "" }

func (c GoogleCredentials) Fields() map[string]string {
	return map[string]string{FieldGoogleMeasurementID: c.MeasurementID, FieldGoogleAPISecret: c.APISecret}
}

type TikTokCredentials struct {
	PixelCode   string
	AccessToken string
}

func (c TikTokCredentials) Platform() Platform { return PlatformTikTok }

func (c TikTokCredentials) Valid() bool { return c.PixelCode != "" && c.AccessToken != "" }

func (c TikTokCredentials) Fields() map[string]string {
	return map[string]string{FieldTikTokPixelCode: c.PixelCode, FieldTikTokAccessToken: c.AccessToken}
}

// PinterestEnvironment selects the Pinterest API host
type PinterestEnvironment string

const (
	PinterestProduction PinterestEnvironment = "production"
	PinterestSandbox    PinterestEnvironment = "sandbox"
)

// BaseURL returns the API host for the environment
func (e PinterestEnvironment) BaseURL() string {
	if e == PinterestSandbox {
		return "https://api-sandbox.pinterest.com"
	}
	return "https://api.pinterest.com"
}

func parsePinterestEnvironment(raw string) (PinterestEnvironment, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(PinterestProduction):
		return PinterestProduction, nil
	case string(PinterestSandbox):
		return PinterestSandbox, nil
	default:
		return "", &FieldError{Field: FieldPinterestEnvironment, Reason: fmt.Sprintf("unsupported environment %q", raw)}
	}
}

type PinterestCredentials struct {
	AccountID   string
	AccessToken string
	Environment PinterestEnvironment
}

func (c PinterestCredentials) Platform() Platform { return PlatformPinterest }

func (c PinterestCredentials) Valid() bool { return c.AccountID != "" && c.AccessToken != "" }

func (c PinterestCredentials) Fields() map[string]string {
	env := c.Environment
	if env == "" {
		env = PinterestProduction
	}
	return map[string]string{
		FieldPinterestAccountID:   c.AccountID,
		FieldPinterestAccessToken: c.AccessToken,
		FieldPinterestEnvironment: string(env),
	}
}

type SnapchatCredentials struct {
	PixelID     string
	AccessToken string
}

func (c SnapchatCredentials) Platform() Platform { return PlatformSnapchat }

func (c SnapchatCredentials) Valid() bool { return c.PixelID != "" && c.AccessToken != "" }

func (c SnapchatCredentials) Fields() map[string]string {
	return map[string]string{FieldSnapchatPixelID: c.PixelID, FieldSnapchatAccessToken: c.AccessToken}
}

type BrevoCredentials struct {
	APIKey string
}

func (c BrevoCredentials) Platform() Platform { return PlatformBrevo }

func (c BrevoCredentials) Valid() bool { return c.APIKey != "" }

func (c BrevoCredentials) Fields() map[string]string {
	return map[string]string{FieldBrevoAPIKey: c.APIKey}
}

// ParseCredentials builds a platform's credentials from storage fields.
// Missing required fields produce an invalid, not an erroneous, credential set.
func ParseCredentials(p Platform, fields map[string]string) (PlatformCredentials, error) {
	get := func(key string) string {
		return strings.TrimSpace(fields[key])
	}

	switch p {
	case PlatformMeta:
		return MetaCredentials{PixelID: get(FieldMetaPixelID), AccessToken: get(FieldMetaAccessToken)}, nil
	case PlatformGoogle:
		return GoogleCredentials{MeasurementID: get(FieldGoogleMeasurementID), APISecret: get(FieldGoogleAPISecret)}, nil
	case PlatformTikTok:
		return TikTokCredentials{PixelCode: get(FieldTikTokPixelCode), AccessToken: get(FieldTikTokAccessToken)}, nil
	case PlatformPinterest:
		env, err := parsePinterestEnvironment(get(FieldPinterestEnvironment))
		if err != nil {
			return nil, err
		}
		return PinterestCredentials{
			AccountID:   get(FieldPinterestAccountID),
			AccessToken: get(FieldPinterestAccessToken),
			Environment: env,
		}, nil
	case PlatformSnapchat:
		return SnapchatCredentials{PixelID: get(FieldSnapchatPixelID), AccessToken: get(FieldSnapchatAccessToken)}, nil
	case PlatformBrevo:
		return BrevoCredentials{APIKey: get(FieldBrevoAPIKey)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
}
