package domain

// DefaultCredentialsCategory is the record category used by persistent credential stores
const DefaultCredentialsCategory = "customer_event"

// ApplicationCredentials aggregates at most one credential set per platform for an application
type ApplicationCredentials struct {
	AppID       string
	Category    string
	credentials map[Platform]PlatformCredentials
}

// NewApplicationCredentials creates an empty aggregate
func NewApplicationCredentials(appID string) *ApplicationCredentials {
	return &ApplicationCredentials{
		AppID:       appID,
		Category:    DefaultCredentialsCategory,
		credentials: make(map[Platform]PlatformCredentials),
	}
}

// NewApplicationCredentialsFromData rebuilds the aggregate from a flat storage record.
// A platform is present when any of its fields is non-empty; platforms whose fields
// cannot be parsed are left out.
func NewApplicationCredentialsFromData(appID string, data map[string]string) *ApplicationCredentials {
	ac := NewApplicationCredentials(appID)
	for _, p := range platforms {
		if !hasAnyRequiredField(p, data) {
			continue
		}
		creds, err := ParseCredentials(p, data)
		if err != nil {
			continue
		}
		ac.credentials[p] = creds
	}
	return ac
}

func hasAnyRequiredField(p Platform, data map[string]string) bool {
	for _, field := range platformFields[p] {
		if field == FieldPinterestEnvironment {
			continue
		}
		if data[field] != "" {
			return true
		}
	}
	return false
}

// CredentialsFor returns the credential set stored for a platform
func (a *ApplicationCredentials) CredentialsFor(p Platform) (PlatformCredentials, bool) {
	creds, ok := a.credentials[p]
	return creds, ok
}

// HasValidCredentialsFor reports whether a platform has every required field set
func (a *ApplicationCredentials) HasValidCredentialsFor(p Platform) bool {
	creds, ok := a.credentials[p]
	return ok && creds.Valid()
}

// ConfiguredPlatforms returns platforms with valid credentials in canonical order
func (a *ApplicationCredentials) ConfiguredPlatforms() []Platform {
	var out []Platform
	for _, p := range platforms {
		if a.HasValidCredentialsFor(p) {
			out = append(out, p)
		}
	}
	return out
}

// Set replaces the whole credential set for the credentials' platform
func (a *ApplicationCredentials) Set(creds PlatformCredentials) {
	if a.credentials == nil {
		a.credentials = make(map[Platform]PlatformCredentials)
	}
	a.credentials[creds.Platform()] = creds
}

// Remove drops a platform's credentials
func (a *ApplicationCredentials) Remove(p Platform) {
	delete(a.credentials, p)
}

// IsEmpty reports whether no platform has stored credentials
func (a *ApplicationCredentials) IsEmpty() bool {
	return len(a.credentials) == 0
}

// Data flattens all credential sets into a single storage record
func (a *ApplicationCredentials) Data() map[string]string {
	data := make(map[string]string)
	for _, p := range platforms {
		creds, ok := a.credentials[p]
		if !ok {
			continue
		}
		for k, v := range creds.Fields() {
			data[k] = v
		}
	}
	return data
}
