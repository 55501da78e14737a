package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon status values. "expired" is derived for display; rows keep
// their issued status after the validity window passes.
const (
	CouponStatusIssued  = "issued"
	CouponStatusUsed    = "used"
	CouponStatusExpired = "expired"
)

// Coupon is a single-use discount token issued 1:1 per survey.
type Coupon struct {
	BaseModel
	Code          string     `gorm:"uniqueIndex" json:"code"`
	SurveyID      uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"survey_id"`
	Amount        int64      `json:"amount"`
	Status        string     `gorm:"index" json:"status"`
	IssuedAt      time.Time  `json:"issued_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	UsedStoreCode *string    `json:"used_store_code,omitempty"`
}
