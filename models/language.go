package models

import (
	"context"
	"time"

	"bitbucket.org/lawdesk/crm_backend/utils"
)

type Language struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:50;not null" json:"name" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Language) TableName() string {
	return "misc_language"
}

func GetLanguages(ctx context.Context) ([]*Language, error) {
	return utils.FetchAllModels[Language](ctx, "name")
}
