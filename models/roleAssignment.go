package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/lawdesk/crm_backend/config"
	"bitbucket.org/lawdesk/crm_backend/utils"
	"github.com/bsm/redislock"
)

// RoleAssignment is the reflected state of one role column after an edit.
type RoleAssignment struct {
	Schema       LeadSchema `json:"schema"`
	LeadId       string     `json:"lead_id"`
	Role         RoleField  `json:"role"`
	EmployeeId   *int       `json:"employee_id"`
	EmployeeName string     `json:"employee_name"`
}

// SaveRoleEdit re-assigns one of the five role columns on a lead, routing
// the write by the row's schema. The write is serialized per row with a
// redis lock; the returned assignment is re-read from the row after the
// update so the caller reflects what the store accepted, not what it sent.
// Passing a nil employee id clears the role.
func SaveRoleEdit(ctx context.Context, schema LeadSchema, leadId string, role RoleField, newEmployeeId *int) (*RoleAssignment, error) {

	logger := config.GetLogger()

	if newEmployeeId != nil {
		if err := utils.ValidateResourceId[Employee](ctx, *newEmployeeId); err != nil {
			return nil, errors.New("EmployeeId not found")
		}
	}

	locker := config.GetRedisLock()
	if locker != nil {
		lockKey := fmt.Sprintf("role-edit:%s:%s", schema, leadId)
		lock, err := locker.Obtain(ctx, lockKey, 10*time.Second, nil)
		if err == redislock.ErrNotObtained {
			return nil, errors.New("another edit for this lead is in progress")
		} else if err != nil {
			config.LogError(logger, "roleAssignment.go", "SaveRoleEdit", "Obtain lock", lockKey, err)
			return nil, err
		}
		defer func() {
			_ = lock.Release(ctx)
		}()
	}

	switch schema {
	case LeadSchemaLegacy:
		return saveLegacyRoleEdit(ctx, leadId, role, newEmployeeId)
	case LeadSchemaNew:
		return saveNewRoleEdit(ctx, leadId, role, newEmployeeId)
	}
	return nil, fmt.Errorf("invalid lead schema %q", schema)
}

func saveLegacyRoleEdit(ctx context.Context, leadId string, role RoleField, newEmployeeId *int) (*RoleAssignment, error) {

	db := config.GetDB()

	id, err := strconv.Atoi(leadId)
	if err != nil {
		return nil, errors.New("legacy lead id must be numeric")
	}
	column, ok := legacyRoleColumns[role]
	if !ok {
		return nil, fmt.Errorf("invalid role field %q", role)
	}

	result := db.WithContext(ctx).
		Model(&LegacyLead{}).
		Where("id = ?", id).
		Update(column, newEmployeeId)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	var lead LegacyLead
	if err := db.WithContext(ctx).First(&lead, id).Error; err != nil {
		return nil, err
	}

	assignment := &RoleAssignment{
		Schema: LeadSchemaLegacy,
		LeadId: leadId,
		Role:   role,
	}
	switch role {
	case RoleScheduler:
		assignment.EmployeeId = lead.MeetingScheduler
	case RoleManager:
		assignment.EmployeeId = lead.MeetingManager
	case RoleCloser:
		assignment.EmployeeId = lead.CloserId
	case RoleExpert:
		assignment.EmployeeId = lead.ExpertId
	case RoleHandler:
		assignment.EmployeeId = lead.CaseHandlerId
	}
	if assignment.EmployeeId != nil {
		if employee, err := utils.FetchSingleModel[Employee](ctx, *assignment.EmployeeId); err == nil {
			assignment.EmployeeName = employee.DisplayName
		}
	}
	return assignment, nil
}

func saveNewRoleEdit(ctx context.Context, leadId string, role RoleField, newEmployeeId *int) (*RoleAssignment, error) {

	db := config.GetDB()

	column, ok := newRoleColumns[role]
	if !ok {
		return nil, fmt.Errorf("invalid role field %q", role)
	}

	// id strings only on write; name-holding rows are legacy data the read
	// path still tolerates. LEGACY_ROLE_NAMES_ON_WRITE restores the old
	// name-storing behavior for installs that still scrape the column.
	value := ""
	if newEmployeeId != nil {
		value = strconv.Itoa(*newEmployeeId)
		if config.LegacyRoleNamesOnWrite() {
			if employee, err := utils.FetchSingleModel[Employee](ctx, *newEmployeeId); err == nil {
				value = employee.DisplayName
			}
		}
	}

	result := db.WithContext(ctx).
		Model(&Lead{}).
		Where("id = ?", leadId).
		Update(column, value)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	var lead Lead
	if err := db.WithContext(ctx).Where("id = ?", leadId).First(&lead).Error; err != nil {
		return nil, err
	}

	raw := ""
	switch role {
	case RoleScheduler:
		raw = lead.Scheduler
	case RoleManager:
		raw = lead.Manager
	case RoleCloser:
		raw = lead.Closer
	case RoleExpert:
		raw = lead.Expert
	case RoleHandler:
		raw = lead.Handler
	}

	assignment := &RoleAssignment{
		Schema: LeadSchemaNew,
		LeadId: leadId,
		Role:   role,
	}
	if raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			assignment.EmployeeId = &id
			if employee, fetchErr := utils.FetchSingleModel[Employee](ctx, id); fetchErr == nil {
				assignment.EmployeeName = employee.DisplayName
			}
		} else {
			assignment.EmployeeName = raw
		}
	}
	return assignment, nil
}
