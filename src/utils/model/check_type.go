package model

import "database/sql/driver"

// CREATE TYPE check_type AS ENUM ('INITIAL', 'PERIODIC', 'FINAL');
type CheckType string

const (
	CheckTypeInitial  CheckType = "INITIAL"
	CheckTypePeriodic CheckType = "PERIODIC"
	CheckTypeFinal    CheckType = "FINAL"
)

func (self *CheckType) Scan(value interface{}) error {
	*self = CheckType(scanString(value))
	return nil
}

func (self CheckType) Value() (driver.Value, error) {
	return string(self), nil
}
