package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"gorm.io/gorm"
)

// StageTransition is one row of the shared stage-change log. Legacy leads are
// referenced through LeadId, new-schema leads through NewleadId; exactly one
// of the two is set per row. The log is append-only.
type StageTransition struct {
	ID        int        `gorm:"primary_key" json:"id"`
	LeadId    *int       `gorm:"index" json:"lead_id"`
	NewleadId *string    `gorm:"column:newlead_id;index;size:36" json:"newlead_id"`
	Stage     int        `gorm:"index;not null" json:"stage"`
	Date      *time.Time `gorm:"index" json:"date"`
	Cdate     time.Time  `gorm:"autoCreateTime" json:"cdate"`
	CreatorId *int       `gorm:"index" json:"creator_id"`
}

func (StageTransition) TableName() string {
	return "leads_leadstage"
}

// StageDateIndex holds the resolved per-lead date for one stage code, split
// by schema because the two lead tables use different key types.
type StageDateIndex struct {
	Legacy map[int]time.Time
	New    map[string]time.Time
}

// effectiveDate is the transition's Date when present, its creation time
// otherwise. Older rows were logged without an explicit date.
func (t *StageTransition) effectiveDate() time.Time {
	if t.Date != nil && !t.Date.IsZero() {
		return *t.Date
	}
	return t.Cdate
}

// ResolveStageDates reduces a transition log to one date per lead. When a
// lead was moved into the same stage more than once, the latest date wins;
// equal dates are broken by the larger row id so repeated imports of the
// same day converge on the last write.
func ResolveStageDates(transitions []*StageTransition) StageDateIndex {
	index := StageDateIndex{
		Legacy: make(map[int]time.Time),
		New:    make(map[string]time.Time),
	}
	winners := make(map[string]*StageTransition, len(transitions))

	for _, transition := range transitions {
		if transition == nil {
			continue
		}
		var key string
		switch {
		case transition.NewleadId != nil && *transition.NewleadId != "":
			key = "n:" + *transition.NewleadId
		case transition.LeadId != nil && *transition.LeadId > 0:
			key = "l:" + strconv.Itoa(*transition.LeadId)
		default:
			continue
		}

		current, exists := winners[key]
		if !exists {
			winners[key] = transition
			continue
		}
		candidateDate := transition.effectiveDate()
		currentDate := current.effectiveDate()
		if candidateDate.After(currentDate) ||
			(candidateDate.Equal(currentDate) && transition.ID > current.ID) {
			winners[key] = transition
		}
	}

	for _, winner := range winners {
		if winner.NewleadId != nil && *winner.NewleadId != "" {
			index.New[*winner.NewleadId] = winner.effectiveDate()
		} else if winner.LeadId != nil {
			index.Legacy[*winner.LeadId] = winner.effectiveDate()
		}
	}
	return index
}

// FetchStageTransitions loads every log row for one stage code across the
// given lead keys of both schemas. IN lists are chunked so large candidate
// sets stay under the driver's placeholder limit.
func FetchStageTransitions(ctx context.Context, stage int, legacyIds []int, newIds []string) ([]*StageTransition, error) {

	db := config.GetDB()
	var results []*StageTransition

	for _, chunk := range utils.ChunkSlice(legacyIds, config.LeadIdChunkSize) {
		var rows []*StageTransition
		err := db.WithContext(ctx).
			Where("stage = ? AND lead_id IN ?", stage, chunk).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		results = append(results, rows...)
	}

	for _, chunk := range utils.ChunkSlice(newIds, config.LeadIdChunkSize) {
		var rows []*StageTransition
		err := db.WithContext(ctx).
			Where("stage = ? AND newlead_id IN ?", stage, chunk).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		results = append(results, rows...)
	}

	return results, nil
}

// FetchSignedLeadKeys returns the lead keys of both schemas that have at
// least one signed-agreement transition inside [from, to). This drives the
// report's candidate set; the per-lead date is then resolved over the full
// log for those leads.
func FetchSignedLeadKeys(ctx context.Context, from, to time.Time) (legacyIds []int, newIds []string, err error) {

	db := config.GetDB()

	sql := `
SELECT DISTINCT lead_id, newlead_id
FROM leads_leadstage
WHERE stage = @stage
  AND COALESCE(date, cdate) >= @from
  AND COALESCE(date, cdate) < @to
`

	type keyRow struct {
		LeadId    *int
		NewleadId *string
	}
	var rows []keyRow
	err = db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"stage": StageSignedAgreement,
		"from":  from,
		"to":    to,
	}).Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	for _, row := range rows {
		if row.NewleadId != nil && *row.NewleadId != "" {
			newIds = append(newIds, *row.NewleadId)
		} else if row.LeadId != nil && *row.LeadId > 0 {
			legacyIds = append(legacyIds, *row.LeadId)
		}
	}
	return utils.UniqueSlice(legacyIds), utils.UniqueSlice(newIds), nil
}

// RecordStageTransition appends a log row; it is the only write path into
// leads_leadstage. The caller supplies exactly one of the two lead keys.
func RecordStageTransition(ctx context.Context, leadId *int, newleadId *string, stage int, date *time.Time) (*StageTransition, error) {

	db := config.GetDB()

	var creatorId *int
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId > 0 {
		creatorId = &userId
	}

	transition := StageTransition{
		LeadId:    leadId,
		NewleadId: newleadId,
		Stage:     stage,
		Date:      date,
		CreatorId: creatorId,
	}
	if err := db.WithContext(ctx).Create(&transition).Error; err != nil {
		return nil, err
	}
	return &transition, nil
}

// ChangeLeadStage moves a lead of either schema to a new stage: the
// denormalized stage column on the lead row and the appended log row commit
// together. The log, not the column, is what reporting trusts.
func ChangeLeadStage(ctx context.Context, schema LeadSchema, leadId string, stage int, date *time.Time) (*StageTransition, error) {

	db := config.GetDB()

	if date == nil {
		now := time.Now().UTC()
		date = &now
	}
	var creatorId *int
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId > 0 {
		creatorId = &userId
	}

	transition := StageTransition{
		Stage:     stage,
		Date:      date,
		CreatorId: creatorId,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch schema {
		case LeadSchemaLegacy:
			id, err := strconv.Atoi(leadId)
			if err != nil {
				return errors.New("legacy lead id must be numeric")
			}
			result := tx.Model(&LegacyLead{}).Where("id = ?", id).Update("stage", stage)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return utils.ErrorRecordNotFound
			}
			transition.LeadId = &id
		case LeadSchemaNew:
			result := tx.Model(&Lead{}).Where("id = ?", leadId).Update("stage", stage)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return utils.ErrorRecordNotFound
			}
			transition.NewleadId = &leadId
		default:
			return fmt.Errorf("invalid lead schema %q", schema)
		}
		return tx.Create(&transition).Error
	})
	if err != nil {
		return nil, err
	}
	return &transition, nil
}
