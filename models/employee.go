package models

import (
	"context"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/lawdesk/crm_backend/utils"
)

type Employee struct {
	ID           int       `gorm:"primary_key" json:"id"`
	DisplayName  string    `gorm:"index;size:150;not null" json:"display_name" binding:"required"`
	OfficialName string    `gorm:"size:150" json:"official_name"`
	Role         string    `gorm:"size:50" json:"role"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Employee) TableName() string {
	return "tenants_employee"
}

func GetEmployees(ctx context.Context) ([]*Employee, error) {
	return utils.FetchAllModels[Employee](ctx, "display_name")
}

// BuildEmployeeIdMap indexes display names by the employee id rendered as a
// string, which is how the new lead table stores role references.
func BuildEmployeeIdMap(employees []*Employee) map[string]string {
	byId := make(map[string]string, len(employees))
	for _, employee := range employees {
		if employee == nil {
			continue
		}
		byId[strconv.Itoa(employee.ID)] = employee.DisplayName
	}
	return byId
}

// ResolveEmployeeName turns a raw role column value into a display name.
// The new lead table's role columns hold either an employee id string or an
// already-denormalized display name; the id lookup is tried first and the
// raw value is kept as the name otherwise. This dual read is a compatibility
// shim for pre-migration rows — writes only ever store id strings now.
func ResolveEmployeeName(raw string, byId map[string]string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if name, ok := byId[trimmed]; ok {
		return name
	}
	return trimmed
}

// ResolveEmployeeNameById resolves a nullable numeric FK from the legacy
// lead table.
func ResolveEmployeeNameById(id *int, byId map[string]string) string {
	if id == nil || *id <= 0 {
		return ""
	}
	return byId[strconv.Itoa(*id)]
}
