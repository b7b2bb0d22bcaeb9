package model

import "database/sql/driver"

// CREATE TYPE schedule_status AS ENUM ('PENDING', 'RUNNING', 'COMPLETED', 'FAILED', 'EXPIRED', 'CANCELLED');
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "PENDING"
	ScheduleStatusRunning   ScheduleStatus = "RUNNING"
	ScheduleStatusCompleted ScheduleStatus = "COMPLETED"
	ScheduleStatusFailed    ScheduleStatus = "FAILED"
	ScheduleStatusExpired   ScheduleStatus = "EXPIRED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

func (self *ScheduleStatus) Scan(value interface{}) error {
	*self = ScheduleStatus(scanString(value))
	return nil
}

func (self ScheduleStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// Terminal schedules are never dispatched again.
func (self ScheduleStatus) IsTerminal() bool {
	switch self {
	case ScheduleStatusCompleted, ScheduleStatusFailed, ScheduleStatusExpired, ScheduleStatusCancelled:
		return true
	}
	return false
}
