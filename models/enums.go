package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Pipeline stage codes. These are owned by the backend schema and shared by
// both lead tables; they are not derivable from data.
const (
	StageSchedulerAssigned = 10
	StageSignedAgreement   = 60
	StageDropped           = 91
)

// LeadSchema tags which lead table a unified report row came from.
type LeadSchema string

const (
	LeadSchemaLegacy LeadSchema = "legacy"
	LeadSchemaNew    LeadSchema = "new"
)

func ParseLeadSchema(s string) (LeadSchema, error) {
	switch LeadSchema(s) {
	case LeadSchemaLegacy, LeadSchemaNew:
		return LeadSchema(s), nil
	}
	return "", fmt.Errorf("invalid lead schema %q", s)
}

// RoleField names one of the five employee role assignments on a lead.
type RoleField string

const (
	RoleScheduler RoleField = "scheduler"
	RoleManager   RoleField = "manager"
	RoleCloser    RoleField = "closer"
	RoleExpert    RoleField = "expert"
	RoleHandler   RoleField = "handler"
)

func ParseRoleField(s string) (RoleField, error) {
	switch RoleField(s) {
	case RoleScheduler, RoleManager, RoleCloser, RoleExpert, RoleHandler:
		return RoleField(s), nil
	}
	return "", fmt.Errorf("invalid role field %q", s)
}

// legacyRoleColumns maps a role field to the numeric FK column on leads_lead.
var legacyRoleColumns = map[RoleField]string{
	RoleScheduler: "meeting_scheduler_id",
	RoleManager:   "meeting_manager_id",
	RoleCloser:    "closer_id",
	RoleExpert:    "expert_id",
	RoleHandler:   "case_handler_id",
}

// newRoleColumns maps a role field to the string column on leads.
var newRoleColumns = map[RoleField]string{
	RoleScheduler: "scheduler",
	RoleManager:   "manager",
	RoleCloser:    "closer",
	RoleExpert:    "expert",
	RoleHandler:   "handler",
}

// DateString is a calendar date from the search form (no timezone). Bounds
// for querying are derived in the firm's display timezone.
type DateString time.Time

const DefaultTimezone = "Asia/Jerusalem"

func (t *DateString) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("DateString must be a string")
	}
	parsed, err := time.Parse("2006-01-02", str)
	if err != nil {
		// search form may also post full datetimes
		parsed, err = time.Parse("2006-01-02T15:04:05", str)
		if err != nil {
			return errors.New("error parsing date")
		}
	}
	*t = DateString(parsed)
	return nil
}

func (t DateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02"))), nil
}

// StartOfDayUTC returns local midnight of the date in the given timezone,
// converted to UTC. Used as the inclusive lower search bound.
func (t DateString) StartOfDayUTC(timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	localTime := time.Time(t)
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)
	return localTimeInZone.In(time.UTC), nil
}

// StartOfNextDayUTC returns local midnight of the day AFTER the date,
// converted to UTC. Used as the exclusive upper search bound so the whole
// end day is included regardless of timezone offset.
func (t DateString) StartOfNextDayUTC(timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	localTime := time.Time(t)
	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	).AddDate(0, 0, 1)
	return localTimeInZone.In(time.UTC), nil
}

// Value implements the driver.Valuer interface
func (t DateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements the sql.Scanner interface
func (t *DateString) Scan(value interface{}) error {
	if value == nil {
		*t = DateString(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*t = DateString(v)
	default:
		return fmt.Errorf("cannot convert %T to DateString", value)
	}
	return nil
}
