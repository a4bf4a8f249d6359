package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Setting is an admin-managed key/value row.
type Setting struct {
	Key       string          `gorm:"column:key;primaryKey"`
	Value     json.RawMessage `gorm:"column:value;type:jsonb;not null"`
	UpdatedBy *uuid.UUID      `gorm:"column:updated_by;type:uuid"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
