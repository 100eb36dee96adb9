package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/shopspring/decimal"
)

// LegacyLead mirrors the original intake table. Still the larger of the two
// lead tables; new files land in the `leads` table instead (see lead.go).
// Currency is stored as text in currency_id — numeric id strings, symbols
// and ISO codes all occur in the wild there.
type LegacyLead struct {
	ID               int             `gorm:"primary_key" json:"id"`
	MasterId         *int            `gorm:"index" json:"master_id"`
	LeadNumber       int             `gorm:"index" json:"lead_number"`
	ManualId         string          `gorm:"size:50" json:"manual_id"`
	Name             string          `gorm:"size:200" json:"name"`
	Email            string          `gorm:"size:200" json:"email"`
	Phone            string          `gorm:"size:50" json:"phone"`
	LanguageId       *int            `gorm:"index" json:"language_id"`
	Stage            int             `gorm:"index" json:"stage"`
	CategoryText     string          `gorm:"column:category;size:200" json:"category"`
	CategoryId       *int            `gorm:"index" json:"category_id"`
	CurrencyRaw      string          `gorm:"column:currency_id;size:10" json:"currency_id"`
	Total            decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"total"`
	TotalBase        decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"total_base"`
	SubcontractorFee decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"subcontractor_fee"`
	MeetingScheduler *int            `gorm:"column:meeting_scheduler_id;index" json:"meeting_scheduler_id"`
	MeetingManager   *int            `gorm:"column:meeting_manager_id;index" json:"meeting_manager_id"`
	CloserId         *int            `gorm:"index" json:"closer_id"`
	ExpertId         *int            `gorm:"index" json:"expert_id"`
	CaseHandlerId    *int            `gorm:"column:case_handler_id;index" json:"case_handler_id"`
	Status           string          `gorm:"size:50" json:"status"`
	Cdate            time.Time       `gorm:"autoCreateTime" json:"cdate"`

	CategoryRef *Category `gorm:"foreignKey:CategoryId" json:"category_ref,omitempty"`
}

func (LegacyLead) TableName() string {
	return "leads_lead"
}

// displayNumber is the number shown to users; older rows predate the
// lead_number column and fall back to the primary key.
func (lead *LegacyLead) displayNumber() int {
	if lead.LeadNumber > 0 {
		return lead.LeadNumber
	}
	return lead.ID
}

func GetLegacyLead(ctx context.Context, id int) (*LegacyLead, error) {
	return utils.FetchSingleModel[LegacyLead](ctx, id, "CategoryRef", "CategoryRef.Parent")
}

// FetchLegacyLeadsByIds loads legacy rows with their category join, chunking
// the IN list.
func FetchLegacyLeadsByIds(ctx context.Context, ids []int) ([]*LegacyLead, error) {

	db := config.GetDB()
	var results []*LegacyLead

	for _, chunk := range utils.ChunkSlice(ids, config.LeadIdChunkSize) {
		var rows []*LegacyLead
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

// FetchSubLeadSiblings loads, for the given master ids, every lead filed
// under one of them. The scan runs over the whole table (master groups are
// not bounded by the report's date range).
func FetchSubLeadSiblings(ctx context.Context, masterIds []int) ([]*LegacyLead, error) {

	db := config.GetDB()
	var results []*LegacyLead

	for _, chunk := range utils.ChunkSlice(utils.UniqueSlice(masterIds), config.LeadIdChunkSize) {
		var rows []*LegacyLead
		err := db.WithContext(ctx).
			Select("id", "master_id", "lead_number").
			Where("master_id IN ?", chunk).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		results = append(results, rows...)
	}
	return results, nil
}

// ComputeSubLeadNumbers derives the "N/suffix" display numbers for master
// leads and their sub-leads. Per master: the master itself takes suffix 1,
// its sub-leads take 2.. in ascending id order. A master with no sub-leads
// gets no entry — its plain number stands. Keys are lead ids; values are
// ready-to-display strings like "7431/2".
func ComputeSubLeadNumbers(masterIds []int, siblings []*LegacyLead) map[int]string {
	groups := make(map[int][]*LegacyLead)
	for _, sibling := range siblings {
		if sibling == nil || sibling.MasterId == nil {
			continue
		}
		groups[*sibling.MasterId] = append(groups[*sibling.MasterId], sibling)
	}

	numbers := make(map[int]string)
	for _, masterId := range masterIds {
		group, ok := groups[masterId]
		if !ok || len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		numbers[masterId] = fmt.Sprintf("%d/1", masterId)
		for position, sub := range group {
			numbers[sub.ID] = fmt.Sprintf("%d/%d", sub.displayNumber(), position+2)
		}
	}
	return numbers
}
