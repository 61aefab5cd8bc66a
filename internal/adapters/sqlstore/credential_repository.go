package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/userkeys/internal/adapters/sqlstore/gormdb"
	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/internal/core/ports"
)

type credentialModel struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID      uint64    `gorm:"column:user_id;not null"`
	ServiceName string    `gorm:"column:service_name;not null"`
	APIKey      string    `gorm:"column:api_key;not null"`
	BaseURL     *string   `gorm:"column:base_url"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (credentialModel) TableName() string {
	return "api_keys"
}

func (m credentialModel) toDomain() domain.Credential {
	return domain.Credential{
		ID:          m.ID,
		UserID:      m.UserID,
		ServiceName: m.ServiceName,
		Secret:      m.APIKey,
		BaseURL:     m.BaseURL,
		Active:      m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
}

var _ ports.CredentialRepository = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *gormdb.DB
}

func NewCredentialRepository(db *gormdb.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) ListActive(ctx context.Context, userID uint64) ([]domain.Credential, error) {
	var models []credentialModel
	err := r.db.ReadTX(ctx, func(tx *gormdb.Tx) error {
		return tx.Where("user_id = ? AND is_active = ?", userID, true).
			Order("id ASC").
			Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	creds := make([]domain.Credential, 0, len(models))
	for _, m := range models {
		creds = append(creds, m.toDomain())
	}
	return creds, nil
}

func (r *CredentialRepository) FindActive(ctx context.Context, userID uint64, service string) (domain.Credential, error) {
	var model credentialModel
	err := r.db.ReadTX(ctx, func(tx *gormdb.Tx) error {
		return tx.Where("user_id = ? AND service_name = ? AND is_active = ?", userID, service, true).
			Order("id ASC").
			First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Credential{}, domain.ErrNotFound
		}
		return domain.Credential{}, fmt.Errorf("find api key: %w", err)
	}
	return model.toDomain(), nil
}

func (r *CredentialRepository) Put(ctx context.Context, userID uint64, in domain.CredentialInput) (domain.Credential, bool, error) {
	var (
		model   credentialModel
		created bool
	)
	err := r.db.WriteTX(ctx, func(tx *gormdb.Tx) error {
		err := tx.Where("user_id = ? AND service_name = ?", userID, in.ServiceName).
			Order("id ASC").
			First(&model).Error
		switch {
		case err == nil:
			model.APIKey = in.Secret
			model.BaseURL = in.BaseURL
			model.IsActive = true
			return tx.Model(&credentialModel{ID: model.ID}).Updates(map[string]any{
				"api_key":   in.Secret,
				"base_url":  in.BaseURL,
				"is_active": true,
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			model = credentialModel{
				UserID:      userID,
				ServiceName: in.ServiceName,
				APIKey:      in.Secret,
				BaseURL:     in.BaseURL,
				IsActive:    true,
				CreatedAt:   time.Now().UTC(),
			}
			return tx.Create(&model).Error
		default:
			return err
		}
	})
	if err != nil {
		return domain.Credential{}, false, fmt.Errorf("put api key: %w", err)
	}
	return model.toDomain(), created, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, userID uint64, service string) error {
	err := r.db.WriteTX(ctx, func(tx *gormdb.Tx) error {
		var model credentialModel
		if err := tx.Where("user_id = ? AND service_name = ?", userID, service).
			Order("id ASC").
			First(&model).Error; err != nil {
			return err
		}
		return tx.Delete(&credentialModel{}, model.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}
