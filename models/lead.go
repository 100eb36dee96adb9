package models

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lead is the new-schema intake table. Keys are uuids, role columns hold
// employee id strings (older rows may still hold display names; see
// ResolveEmployeeName).
type Lead struct {
	ID               string          `gorm:"primary_key;size:36" json:"id"`
	LeadNumber       int             `gorm:"index" json:"lead_number"`
	Name             string          `gorm:"size:200;not null" json:"name"`
	Email            string          `gorm:"size:200" json:"email"`
	Phone            string          `gorm:"size:50" json:"phone"`
	Language         string          `gorm:"size:50" json:"language"`
	Stage            int             `gorm:"index" json:"stage"`
	CategoryText     string          `gorm:"column:category;size:200" json:"category"`
	CategoryId       *int            `gorm:"index" json:"category_id"`
	CurrencyId       *int            `gorm:"index" json:"currency_id"`
	Balance          decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"balance"`
	ProposalTotal    decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"proposal_total"`
	SubcontractorFee decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"subcontractor_fee"`
	Scheduler        string          `gorm:"size:150" json:"scheduler"`
	Manager          string          `gorm:"size:150" json:"manager"`
	Closer           string          `gorm:"size:150" json:"closer"`
	Expert           string          `gorm:"size:150" json:"expert"`
	Handler          string          `gorm:"size:150" json:"handler"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	CategoryRef *Category `gorm:"foreignKey:CategoryId" json:"category_ref,omitempty"`
}

func (Lead) TableName() string {
	return "leads"
}

// FetchLeadsByIds loads new-schema rows with their category join, chunking
// the IN list.
func FetchLeadsByIds(ctx context.Context, ids []string) ([]*Lead, error) {

	db := config.GetDB()
	var results []*Lead

	for _, chunk := range utils.ChunkSlice(ids, config.LeadIdChunkSize) {
		var rows []*Lead
		err := db.WithContext(ctx).
			Preload("CategoryRef").
			Preload("CategoryRef.Parent").
			Where("id IN ?", chunk).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		results = append(results, rows...)
	}
	return results, nil
}

type NewLeadInput struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email"`
	Phone       string `json:"phone" binding:"required"`
	Language    string `json:"language"`
	CategoryId  *int   `json:"category_id"`
	CurrencyId  *int   `json:"currency_id"`
	SchedulerId *int   `json:"scheduler_id"`
}

func (input *NewLeadInput) validate(ctx context.Context) error {
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
		return err
	}
	if input.CategoryId != nil {
		if err := utils.ValidateResourceId[Category](ctx, *input.CategoryId); err != nil {
			return errors.New("CategoryId not found")
		}
	}
	if input.SchedulerId != nil {
		if err := utils.ValidateResourceId[Employee](ctx, *input.SchedulerId); err != nil {
			return errors.New("SchedulerId not found")
		}
	}
	return nil
}

// CreateLead files a new-schema lead and logs its initial scheduler-assigned
// stage transition in the same transaction.
func CreateLead(ctx context.Context, input *NewLeadInput) (*Lead, error) {

	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	lead := Lead{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.TrimSpace(input.Email),
		Phone:    strings.TrimSpace(input.Phone),
		Language: input.Language,
		Stage:    StageSchedulerAssigned,
	}
	if input.CategoryId != nil {
		lead.CategoryId = input.CategoryId
	}
	if input.CurrencyId != nil {
		lead.CurrencyId = input.CurrencyId
	}
	if input.SchedulerId != nil {
		lead.Scheduler = strconv.Itoa(*input.SchedulerId)
	}

	var creatorId *int
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId > 0 {
		creatorId = &userId
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lead).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		transition := StageTransition{
			NewleadId: &lead.ID,
			Stage:     StageSchedulerAssigned,
			Date:      &now,
			CreatorId: creatorId,
		}
		return tx.Create(&transition).Error
	})
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func GetLead(ctx context.Context, id string) (*Lead, error) {
	return utils.FetchSingleModel[Lead](ctx, id, "CategoryRef", "CategoryRef.Parent")
}
