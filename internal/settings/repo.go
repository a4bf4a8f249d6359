package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agromarket/agromarket-backend/pkg/db/models"
)

const (
	KeyPaystackPublic = "paystack_public_key"
	KeyPaystackSecret = "paystack_secret_key"
)

type keyValue struct {
	Key string `json:"key"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetString returns the `key` field of a setting's value, or "" when the setting is absent.
func (r *Repository) GetString(ctx context.Context, key string) (string, error) {
	var row models.Setting
	err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var v keyValue
	if err := json.Unmarshal(row.Value, &v); err != nil {
		return "", err
	}
	return v.Key, nil
}

// PutString upserts a setting with value {"key": value}.
func (r *Repository) PutString(ctx context.Context, key, value string, updatedBy uuid.UUID) error {
	raw, err := json.Marshal(keyValue{Key: value})
	if err != nil {
		return err
	}
	row := models.Setting{Key: key, Value: raw, UpdatedBy: &updatedBy}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&row).Error
}
