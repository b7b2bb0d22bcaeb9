package model

import "database/sql/driver"

// CREATE TYPE deal_status AS ENUM ('PENDING_ACCEPTANCE', 'PENDING_FUNDING', 'PENDING_VERIFICATION', 'VERIFYING', 'COMPLETED', 'FAILED', 'CANCELLED');
type DealStatus string

const (
	DealStatusPendingAcceptance   DealStatus = "PENDING_ACCEPTANCE"
	DealStatusPendingFunding      DealStatus = "PENDING_FUNDING"
	DealStatusPendingVerification DealStatus = "PENDING_VERIFICATION"
	DealStatusVerifying           DealStatus = "VERIFYING"
	DealStatusCompleted           DealStatus = "COMPLETED"
	DealStatusFailed              DealStatus = "FAILED"
	DealStatusCancelled           DealStatus = "CANCELLED"
)

func (self *DealStatus) Scan(value interface{}) error {
	*self = DealStatus(scanString(value))
	return nil
}

func (self DealStatus) Value() (driver.Value, error) {
	return string(self), nil
}

func (self DealStatus) IsTerminal() bool {
	return self == DealStatusCompleted || self == DealStatusFailed || self == DealStatusCancelled
}
