package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/security"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pixel_manager_credentials (
	app_id     TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// querier is the subset of *pgxpool.Pool used by the repository
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CredentialsRepository stores one JSONB credentials record per application
type CredentialsRepository struct {
	db        querier
	encryptor security.Encryptor
	log       *zap.Logger
}

// NewCredentialsRepository creates a Postgres backed credentials store
func NewCredentialsRepository(db querier, encryptor security.Encryptor, log *zap.Logger) *CredentialsRepository {
	if encryptor == nil {
		encryptor = security.NoopEncryptor{}
	}
	return &CredentialsRepository{
		db:        db,
		encryptor: encryptor,
		log:       log,
	}
}

// InitSchema creates the credentials table
func (r *CredentialsRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create credentials table: %w", err)
	}
	return nil
}

func (r *CredentialsRepository) FindByApplication(ctx context.Context, appID string) (*domain.ApplicationCredentials, error) {
	var (
		category string
		raw      []byte
	)
	err := r.db.QueryRow(ctx,
		"SELECT category, data FROM pixel_manager_credentials WHERE app_id = $1",
		appID).Scan(&category, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode credentials record: %w", err)
	}

	creds := domain.NewApplicationCredentialsFromData(appID, r.encryptor.DecryptFields(data))
	if category != "" {
		creds.Category = category
	}
	return creds, nil
}

// Save upserts the whole record, replacing every stored field
func (r *CredentialsRepository) Save(ctx context.Context, creds *domain.ApplicationCredentials) error {
	sealed, err := r.encryptor.EncryptFields(creds.Data())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials record: %w", err)
	}

	category := creds.Category
	if category == "" {
		category = domain.DefaultCredentialsCategory
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO pixel_manager_credentials (app_id, category, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (app_id) DO UPDATE
		SET category = EXCLUDED.category, data = EXCLUDED.data, updated_at = now()`,
		creds.AppID, category, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	r.log.Info("Credentials saved",
		zap.String("app_id", creds.AppID),
		zap.Int("platforms", len(creds.ConfiguredPlatforms())))
	return nil
}

func (r *CredentialsRepository) Delete(ctx context.Context, appID string) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM pixel_manager_credentials WHERE app_id = $1", appID); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	r.log.Info("Credentials deleted", zap.String("app_id", appID))
	return nil
}
