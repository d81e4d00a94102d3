package domain

import (
	"fmt"
	"strings"
)

// Platform identifies one external destination
type Platform string

const (
	PlatformMeta      Platform = "meta"
	PlatformGoogle    Platform = "google"
	PlatformTikTok    Platform = "tiktok"
	PlatformPinterest Platform = "pinterest"
	PlatformSnapchat  Platform = "snapchat"
	PlatformBrevo     Platform = "brevo"
)

var platforms = []Platform{
	PlatformMeta,
	PlatformGoogle,
	PlatformTikTok,
	PlatformPinterest,
	PlatformSnapchat,
	PlatformBrevo,
}

// AllPlatforms returns the supported destinations in canonical order
func AllPlatforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

// ParsePlatform resolves a platform identifier
func ParsePlatform(raw string) (Platform, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range platforms {
		if string(p) == value {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, raw)
}

func (p Platform) String() string {
	return string(p)
}
