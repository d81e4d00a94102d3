package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/dto"
	"github.com/salehmehdi/pixel-manager/internal/repository"
)

// CredentialsService administers per-application platform credentials
type CredentialsService struct {
	repository repository.CredentialsRepository
	log        *zap.Logger
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(repo repository.CredentialsRepository, log *zap.Logger) *CredentialsService {
	return &CredentialsService{
		repository: repo,
		log:        log,
	}
}

// Get returns the configured platforms of an application with secret fields masked
func (s *CredentialsService) Get(ctx context.Context, appID string) (*dto.CredentialsResponse, error) {
	creds, err := s.repository.FindByApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		return nil, ErrNotFound
	}

	response := &dto.CredentialsResponse{
		AppID:     creds.AppID,
		Category:  creds.Category,
		Platforms: make(map[string]dto.PlatformCredentialsView),
	}
	for _, p := range creds.ConfiguredPlatforms() {
		platformCreds, _ := creds.CredentialsFor(p)
		fields := platformCreds.Fields()
		for _, name := range domain.SecretFields {
			if value, ok := fields[name]; ok {
				fields[name] = Mask(value)
			}
		}
		response.Platforms[p.String()] = dto.PlatformCredentialsView{
			Valid:  platformCreds.Valid(),
			Fields: fields,
		}
	}
	return response, nil
}

// SavePlatform validates and stores one platform's credentials, keeping the other platforms
func (s *CredentialsService) SavePlatform(ctx context.Context, appID string, platform domain.Platform, fields map[string]string) error {
	platformCreds, err := domain.ParseCredentials(platform, fields)
	if err != nil {
		return err
	}
	if !platformCreds.Valid() {
		return missingField(platform, platformCreds)
	}

	creds, err := s.repository.FindByApplication(ctx, appID)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		creds = domain.NewApplicationCredentials(appID)
	}

	creds.Set(platformCreds)
	if err := s.repository.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	s.log.Info("Platform credentials saved",
		zap.String("app_id", appID),
		zap.String("platform", platform.String()))
	return nil
}

// RemovePlatform drops one platform from an application's record
func (s *CredentialsService) RemovePlatform(ctx context.Context, appID string, platform domain.Platform) error {
	creds, err := s.repository.FindByApplication(ctx, appID)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil {
		return ErrNotFound
	}

	creds.Remove(platform)
	if err := s.repository.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	s.log.Info("Platform credentials removed",
		zap.String("app_id", appID),
		zap.String("platform", platform.String()))
	return nil
}

// Delete removes the whole record of an application
func (s *CredentialsService) Delete(ctx context.Context, appID string) error {
	if err := s.repository.Delete(ctx, appID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	s.log.Info("Application credentials deleted", zap.String("app_id", appID))
	return nil
}

// Mask hides all but the last four characters of a secret
func Mask(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}

func missingField(platform domain.Platform, creds domain.PlatformCredentials) error {
	set := creds.Fields()
	for _, field := range domain.PlatformFields(platform) {
		if field == domain.FieldPinterestEnvironment {
			continue
		}
		if set[field] == "" {
			return &domain.FieldError{Field: field, Reason: "required"}
		}
	}
	return &domain.FieldError{Field: platform.String(), Reason: "incomplete credentials"}
}
