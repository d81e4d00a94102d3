package azuretables

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

// memoryTable keeps entities keyed by partition and row key
type memoryTable struct {
	entities  map[string][]byte
	upserts   []*aztables.UpsertEntityOptions
	deleteErr error
}

func newMemoryTable() *memoryTable {
	return &memoryTable{entities: make(map[string][]byte)}
}

func notFound() error {
	return &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}
}

func (m *memoryTable) GetEntity(_ context.Context, pk, rk string, _ *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	value, ok := m.entities[pk+"/"+rk]
	if !ok {
		return aztables.GetEntityResponse{}, notFound()
	}
	return aztables.GetEntityResponse{Value: value}, nil
}

func (m *memoryTable) UpsertEntity(_ context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error) {
	var keys credentialsEntity
	if err := json.Unmarshal(entity, &keys); err != nil {
		return aztables.UpsertEntityResponse{}, err
	}
	m.entities[keys.PartitionKey+"/"+keys.RowKey] = entity
	m.upserts = append(m.upserts, options)
	return aztables.UpsertEntityResponse{}, nil
}

func (m *memoryTable) DeleteEntity(_ context.Context, pk, rk string, _ *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	if m.deleteErr != nil {
		return aztables.DeleteEntityResponse{}, m.deleteErr
	}
	if _, ok := m.entities[pk+"/"+rk]; !ok {
		return aztables.DeleteEntityResponse{}, notFound()
	}
	delete(m.entities, pk+"/"+rk)
	return aztables.DeleteEntityResponse{}, nil
}

func TestCredentialsRepository_SaveFindDelete(t *testing.T) {
	table := newMemoryTable()
	repo := NewCredentialsRepository(table, nil, zap.NewNop())
	ctx := context.Background()

	creds := domain.NewApplicationCredentials("40")
	creds.Set(domain.PinterestCredentials{AccountID: "549", AccessToken: "pin", Environment: domain.PinterestSandbox})
	creds.Set(domain.BrevoCredentials{APIKey: "xkeysib"})

	require.NoError(t, repo.Save(ctx, creds))
	require.Len(t, table.upserts, 1)
	assert.Equal(t, aztables.UpdateModeReplace, table.upserts[0].UpdateMode)
	assert.Contains(t, table.entities, domain.DefaultCredentialsCategory+"/40")

	found, err := repo.FindByApplication(ctx, "40")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, []domain.Platform{domain.PlatformPinterest, domain.PlatformBrevo}, found.ConfiguredPlatforms())

	pin, _ := found.CredentialsFor(domain.PlatformPinterest)
	assert.Equal(t, domain.PinterestSandbox, pin.(domain.PinterestCredentials).Environment)

	require.NoError(t, repo.Delete(ctx, "40"))
	found, err = repo.FindByApplication(ctx, "40")
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestCredentialsRepository_DeleteMissingIsNotAnError(t *testing.T) {
	repo := NewCredentialsRepository(newMemoryTable(), nil, zap.NewNop())
	assert.NoError(t, repo.Delete(context.Background(), "unknown"))
}

func TestCredentialsRepository_DeleteFailure(t *testing.T) {
	table := newMemoryTable()
	table.deleteErr = errors.New("throttled")
	repo := NewCredentialsRepository(table, nil, zap.NewNop())

	assert.Error(t, repo.Delete(context.Background(), "40"))
}
