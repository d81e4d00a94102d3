package env

import (
	"context"
	"os"
	"strings"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const variablePrefix = "PIXEL_"

// LookupFunc resolves an environment variable
type LookupFunc func(key string) (string, bool)

// CredentialsRepository serves one credentials record from PIXEL_* environment
// variables to every application. It is read-only.
type CredentialsRepository struct {
	lookup LookupFunc
}

// NewCredentialsRepository creates an env backed store; a nil lookup reads the process environment
func NewCredentialsRepository(lookup LookupFunc) *CredentialsRepository {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &CredentialsRepository{lookup: lookup}
}

// VariableName returns the environment variable holding a credentials field
func VariableName(field string) string {
	return variablePrefix + strings.ToUpper(field)
}

func (r *CredentialsRepository) FindByApplication(_ context.Context, appID string) (*domain.ApplicationCredentials, error) {
	data := make(map[string]string)
	for _, p := range domain.AllPlatforms() {
		for _, field := range domain.PlatformFields(p) {
			if value, ok := r.lookup(VariableName(field)); ok && strings.TrimSpace(value) != "" {
				data[field] = value
			}
		}
	}

	creds := domain.NewApplicationCredentialsFromData(appID, data)
	if creds.IsEmpty() {
		return nil, nil
	}
	return creds, nil
}

func (r *CredentialsRepository) Save(context.Context, *domain.ApplicationCredentials) error {
	return domain.ErrCredentialsReadOnly
}

func (r *CredentialsRepository) Delete(context.Context, string) error {
	return domain.ErrCredentialsReadOnly
}
