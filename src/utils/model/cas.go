package model

import (
	"gorm.io/gorm"
)

// Compare-and-swap on the deal status. The patch applies only if the deal is
// still in the expected status. A miss means another actor already moved the
// deal forward and the caller's transition is dropped, not retried.
func UpdateDealIfStatus(db *gorm.DB, dealID string, expected DealStatus, patch map[string]interface{}) (updated bool, err error) {
	res := db.Model(&Deal{}).
		Where("id = ?", dealID).
		Where("status = ?", expected).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Like UpdateDealIfStatus, for transitions valid from more than one status.
func UpdateDealIfStatusIn(db *gorm.DB, dealID string, expected []DealStatus, patch map[string]interface{}) (updated bool, err error) {
	res := db.Model(&Deal{}).
		Where("id = ?", dealID).
		Where("status IN ?", expected).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

var NonTerminalDealStatuses = []DealStatus{
	DealStatusPendingAcceptance,
	DealStatusPendingFunding,
	DealStatusPendingVerification,
	DealStatusVerifying,
}
