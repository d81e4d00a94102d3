package azuretables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/security"
)

// tableClient is the subset of *aztables.Client used by the repository
type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

type credentialsEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Data         string `json:"Data"`
	UpdatedAt    string `json:"UpdatedAt"`
}

// CredentialsRepository stores one entity per application; the partition key is the record category
type CredentialsRepository struct {
	table     tableClient
	category  string
	encryptor security.Encryptor
	log       *zap.Logger
}

// NewTableClient opens the credentials table, creating it when missing
func NewTableClient(ctx context.Context, connStr, table string) (*aztables.Client, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    30 * time.Second,
				RetryDelay:    time.Second,
				MaxRetryDelay: 10 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}

	client := svc.NewClient(table)
	if _, err := client.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return nil, fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return client, nil
}

// NewCredentialsRepository creates an Azure Tables backed credentials store
func NewCredentialsRepository(table tableClient, encryptor security.Encryptor, log *zap.Logger) *CredentialsRepository {
	if encryptor == nil {
		encryptor = security.NoopEncryptor{}
	}
	return &CredentialsRepository{
		table:     table,
		category:  domain.DefaultCredentialsCategory,
		encryptor: encryptor,
		log:       log,
	}
}

func (r *CredentialsRepository) FindByApplication(ctx context.Context, appID string) (*domain.ApplicationCredentials, error) {
	resp, err := r.table.GetEntity(ctx, r.category, appID, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credentials entity: %w", err)
	}

	var ent credentialsEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, fmt.Errorf("failed to decode credentials entity: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal([]byte(ent.Data), &data); err != nil {
		return nil, fmt.Errorf("failed to decode credentials record: %w", err)
	}

	creds := domain.NewApplicationCredentialsFromData(appID, r.encryptor.DecryptFields(data))
	creds.Category = r.category
	return creds, nil
}

// Save replaces the whole entity
func (r *CredentialsRepository) Save(ctx context.Context, creds *domain.ApplicationCredentials) error {
	sealed, err := r.encryptor.EncryptFields(creds.Data())
	if err != nil {
		return err
	}
	data, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials record: %w", err)
	}

	payload, err := json.Marshal(credentialsEntity{
		PartitionKey: r.category,
		RowKey:       creds.AppID,
		Data:         string(data),
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials entity: %w", err)
	}

	if _, err := r.table.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return fmt.Errorf("failed to upsert credentials entity: %w", err)
	}

	r.log.Info("Credentials saved", zap.String("app_id", creds.AppID))
	return nil
}

func (r *CredentialsRepository) Delete(ctx context.Context, appID string) error {
	if _, err := r.table.DeleteEntity(ctx, r.category, appID, nil); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete credentials entity: %w", err)
	}
	r.log.Info("Credentials deleted", zap.String("app_id", appID))
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
