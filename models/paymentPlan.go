package models

import (
	"context"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/shopspring/decimal"
)

// PaymentPlan is the legacy installment table. A lead has an active plan iff
// it owns at least one row whose cancel_date is NULL.
type PaymentPlan struct {
	ID         int             `gorm:"primary_key" json:"id"`
	LeadId     int             `gorm:"index;not null" json:"lead_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount"`
	DueDate    *time.Time      `json:"due_date"`
	CancelDate *time.Time      `gorm:"index" json:"cancel_date"`
	Cdate      time.Time       `gorm:"autoCreateTime" json:"cdate"`
}

func (PaymentPlan) TableName() string {
	return "finances_paymentplanrow"
}

// PaymentPlanRow is the new-schema installment table, keyed by lead uuid.
type PaymentPlanRow struct {
	ID         int             `gorm:"primary_key" json:"id"`
	LeadId     string          `gorm:"index;size:36;not null" json:"lead_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"amount"`
	DueDate    *time.Time      `json:"due_date"`
	CancelDate *time.Time      `gorm:"index" json:"cancel_date"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (PaymentPlanRow) TableName() string {
	return "payment_plans"
}

// ActivePlanFlags marks which leads currently carry an uncancelled
// installment plan, split by schema.
type ActivePlanFlags struct {
	Legacy map[int]bool
	New    map[string]bool
}

// FetchActivePlanFlags checks both plan tables for uncancelled rows among
// the given leads. Callers treat a failure here as a degraded result, not a
// fatal one — the report renders without the flag.
func FetchActivePlanFlags(ctx context.Context, legacyIds []int, newIds []string) (*ActivePlanFlags, error) {

	db := config.GetDB()
	flags := &ActivePlanFlags{
		Legacy: make(map[int]bool),
		New:    make(map[string]bool),
	}

	for _, chunk := range utils.ChunkSlice(legacyIds, config.LeadIdChunkSize) {
		var ids []int
		err := db.WithContext(ctx).
			Model(&PaymentPlan{}).
			Distinct("lead_id").
			Where("lead_id IN ? AND cancel_date IS NULL", chunk).
			Pluck("lead_id", &ids).Error
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			flags.Legacy[id] = true
		}
	}

	for _, chunk := range utils.ChunkSlice(newIds, config.LeadIdChunkSize) {
		var ids []string
		err := db.WithContext(ctx).
			Model(&PaymentPlanRow{}).
			Distinct("lead_id").
			Where("lead_id IN ? AND cancel_date IS NULL", chunk).
			Pluck("lead_id", &ids).Error
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			flags.New[id] = true
		}
	}

	return flags, nil
}
