package selector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// Mappings lists the eligible destinations of each event type, in delivery order
type Mappings map[domain.EventType][]domain.Platform

// DefaultMappings returns the built-in event type to destination table
func DefaultMappings() Mappings {
	all := []domain.Platform{
		domain.PlatformMeta,
		domain.PlatformGoogle,
		domain.PlatformTikTok,
		domain.PlatformBrevo,
		domain.PlatformPinterest,
		domain.PlatformSnapchat,
	}

	m := make(Mappings)
	for _, t := range domain.AllEventTypes() {
		if t == domain.EventTypeCustomizeProduct {
			m[t] = []domain.Platform{domain.PlatformMeta}
			continue
		}
		m[t] = append([]domain.Platform(nil), all...)
	}
	return m
}

type mappingsFile struct {
	Events map[string][]string `yaml:"events"`
}

// LoadMappings reads a YAML mapping file of the form
//
//	events:
//	  purchase: [meta, google]
func LoadMappings(path string) (Mappings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}
	return ParseMappings(raw)
}

// ParseMappings decodes a YAML mapping document; unknown event types or platforms are errors
func ParseMappings(raw []byte) (Mappings, error) {
	var file mappingsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse mappings: %w", err)
	}

	m := make(Mappings, len(file.Events))
	for name, platforms := range file.Events {
		eventType, err := domain.ParseEventType(name)
		if err != nil {
			return nil, err
		}
		list := make([]domain.Platform, 0, len(platforms))
		for _, p := range platforms {
			platform, err := domain.ParsePlatform(p)
			if err != nil {
				return nil, fmt.Errorf("event %s: %w", name, err)
			}
			list = append(list, platform)
		}
		m[eventType] = list
	}
	return m, nil
}

// Selector picks the destinations of an event
type Selector struct {
	mappings Mappings
}

// New creates a selector; nil mappings use the defaults
func New(mappings Mappings) *Selector {
	if mappings == nil {
		mappings = DefaultMappings()
	}
	return &Selector{mappings: mappings}
}

// Select returns the mapped destinations of the event type that have valid credentials.
// The result follows mapping order and holds each platform at most once.
func (s *Selector) Select(event *domain.Event, creds *domain.ApplicationCredentials) []domain.Platform {
	if event == nil || creds == nil {
		return nil
	}

	var selected []domain.Platform
	seen := make(map[domain.Platform]struct{})
	for _, p := range s.mappings[event.Type] {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if creds.HasValidCredentialsFor(p) {
			selected = append(selected, p)
		}
	}
	return selected
}
