package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/models"
)

// maxCodeRetries bounds how often issuance retries after losing a
// code-uniqueness race to a concurrent insert.
const maxCodeRetries = 3

// CouponService owns the coupon lifecycle: issuance tied 1:1 to
// stage-1 surveys, read-only validation, and atomic single-use
// redemption.
type CouponService struct {
	db       *gorm.DB
	amount   int64
	validity time.Duration
	loc      *time.Location
}

// NewCouponService constructs a CouponService.
func NewCouponService(db *gorm.DB, amount int64, validity time.Duration, loc *time.Location) *CouponService {
	return &CouponService{db: db, amount: amount, validity: validity, loc: loc}
}

// Now returns the current time in the service's fixed offset. Both
// issuance and expiry comparison go through this single clock.
func (s *CouponService) Now() time.Time {
	return time.Now().In(s.loc)
}

// Issue creates the coupon for a survey that completed stage 1.
// Codes are sequential six-digit strings; the unique index on the code
// column is the real guard against concurrent duplicates, so the
// insert retries with a fresh code after a duplicate-key error.
func (s *CouponService) Issue(ctx context.Context, surveyID uuid.UUID) (*models.Coupon, error) {
	var survey models.Survey
	if err := s.db.WithContext(ctx).First(&survey, "id = ?", surveyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("survey not found")
		}
		return nil, errInternal(err)
	}

	if survey.StageCompleted < models.SurveyStageOne {
		return nil, errInvalidInput("survey has not completed the first stage")
	}

	if err := s.checkNoCoupon(ctx, surveyID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		now := s.Now()
		coupon := models.Coupon{
			Code:      s.nextCode(ctx),
			SurveyID:  surveyID,
			Amount:    s.amount,
			Status:    models.CouponStatusIssued,
			IssuedAt:  now,
			ExpiresAt: now.Add(s.validity),
		}

		err := s.db.WithContext(ctx).Create(&coupon).Error
		if err == nil {
			return &coupon, nil
		}
		if !isDuplicateKey(err) {
			return nil, errInternal(err)
		}
		// The collision may also be the survey uniqueness index when
		// two requests issue for the same survey at once.
		if err := s.checkNoCoupon(ctx, surveyID); err != nil {
			return nil, err
		}
	}

	return nil, errInternal(fmt.Errorf("could not allocate a unique coupon code after %d attempts", maxCodeRetries))
}

func (s *CouponService) checkNoCoupon(ctx context.Context, surveyID uuid.UUID) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("survey_id = ?", surveyID).
		Count(&count).Error; err != nil {
		return errInternal(err)
	}
	if count > 0 {
		return errConflict("coupon already issued for this survey")
	}
	return nil
}

// nextCode reads the current maximum code and increments it. A failed
// read falls back to the first code; the unique index catches any
// duplicate this read-then-insert could otherwise produce.
func (s *CouponService) nextCode(ctx context.Context) string {
	var current string
	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Select("COALESCE(MAX(code), '')").
		Scan(&current).Error; err != nil || current == "" {
		return "000001"
	}

	n, err := strconv.Atoi(current)
	if err != nil {
		return "000001"
	}
	return fmt.Sprintf("%06d", n+1)
}

// Validate checks a coupon without side effects. It reports the same
// outcome codes redemption would, so it doubles as a pre-check for
// merchant terminals and as the customer-facing status display.
func (s *CouponService) Validate(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := s.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("coupon not found")
		}
		return nil, errInternal(err)
	}

	if coupon.Status == models.CouponStatusUsed {
		return &coupon, &ServiceError{Code: CodeAlreadyUsed, Message: "coupon has already been used"}
	}

	if !coupon.ExpiresAt.After(s.Now()) {
		return &coupon, &ServiceError{Code: CodeExpired, Message: "coupon has expired"}
	}

	return &coupon, nil
}

// StoreStats are the redemption aggregates shown to the merchant right
// after a successful scan. They are recomputed from redeemed rows on
// every call; volumes are small enough that caching would not pay.
type StoreStats struct {
	TodayCount  int64 `json:"today_count"`
	TodayAmount int64 `json:"today_amount"`
	TotalCount  int64 `json:"total_count"`
	TotalAmount int64 `json:"total_amount"`
}

// RedeemResult is returned to the merchant terminal on success.
type RedeemResult struct {
	Coupon *models.Coupon `json:"coupon"`
	Amount int64          `json:"amount"`
	Stats  StoreStats     `json:"store_stats"`
}

// Redeem transitions a coupon issued→used exactly once. The single
// conditional UPDATE is the only serialization point: when two
// terminals race on the same code, the row count decides the winner
// and the loser is told the coupon is already used. There is no
// app-level locking; requests may come from different processes.
func (s *CouponService) Redeem(ctx context.Context, code, storeCode string) (*RedeemResult, error) {
	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, "code = ?", storeCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("store not found")
		}
		return nil, errInternal(err)
	}
	if !store.IsActive {
		return nil, errInvalidInput("store is not active")
	}

	now := s.Now()
	res := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("code = ? AND status = ? AND expires_at > ?", code, models.CouponStatusIssued, now).
		Updates(map[string]any{
			"status":          models.CouponStatusUsed,
			"used_at":         now,
			"used_store_code": storeCode,
		})
	if res.Error != nil {
		return nil, errInternal(res.Error)
	}

	if res.RowsAffected == 0 {
		// The conditional update alone cannot tell these apart, and
		// the merchant-facing message differs for each.
		var coupon models.Coupon
		if err := s.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errNotFound("coupon not found")
			}
			return nil, errInternal(err)
		}
		if coupon.Status == models.CouponStatusUsed {
			return nil, &ServiceError{Code: CodeAlreadyUsed, Message: "coupon has already been used"}
		}
		if !coupon.ExpiresAt.After(now) {
			return nil, &ServiceError{Code: CodeExpired, Message: "coupon has expired"}
		}
		return nil, errInternal(fmt.Errorf("coupon %s changed state during redemption", code))
	}

	var coupon models.Coupon
	if err := s.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
		return nil, errInternal(err)
	}

	stats, err := s.storeStats(ctx, storeCode, now)
	if err != nil {
		return nil, err
	}

	return &RedeemResult{Coupon: &coupon, Amount: coupon.Amount, Stats: *stats}, nil
}

// StatsForStore exposes the same aggregates outside the redemption
// path, for the merchant dashboard.
func (s *CouponService) StatsForStore(ctx context.Context, storeCode string) (*StoreStats, error) {
	return s.storeStats(ctx, storeCode, s.Now())
}

func (s *CouponService) storeStats(ctx context.Context, storeCode string, now time.Time) (*StoreStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &StoreStats{}
	used := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Coupon{}).
			Where("status = ? AND used_store_code = ?", models.CouponStatusUsed, storeCode)
	}

	if err := used().Count(&stats.TotalCount).Error; err != nil {
		return nil, errInternal(err)
	}
	if err := used().Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalAmount).Error; err != nil {
		return nil, errInternal(err)
	}
	if err := used().Where("used_at >= ? AND used_at < ?", dayStart, dayEnd).
		Count(&stats.TodayCount).Error; err != nil {
		return nil, errInternal(err)
	}
	if err := used().Where("used_at >= ? AND used_at < ?", dayStart, dayEnd).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TodayAmount).Error; err != nil {
		return nil, errInternal(err)
	}

	return stats, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
