package security

import "strings"

var defaultBotPatterns = []string{
	"bot", "crawl", "spider", "slurp", "mediapartners",
	"facebookexternalhit", "whatsapp", "telegram", "linkedinbot", "twitterbot",
	"pinterest", "slackbot", "discordbot", "googlebot", "bingbot",
	"yandexbot", "baiduspider", "duckduckbot", "applebot",
}

// BotDetector flags crawler and link-preview user agents
type BotDetector struct {
	patterns []string
}

// NewBotDetector creates a detector; with no patterns the built-in list is used
func NewBotDetector(patterns ...string) *BotDetector {
	if len(patterns) == 0 {
		patterns = defaultBotPatterns
	}
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &BotDetector{patterns: lowered}
}

// IsBot reports whether the user agent matches a known bot pattern. An empty user agent is not a bot.
func (d *BotDetector) IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return false
	}
	for _, p := range d.patterns {
		if strings.Contains(ua, p) {
			return true
		}
	}
	return false
}
