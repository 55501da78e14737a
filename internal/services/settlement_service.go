package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/example/golmok/internal/models"
)

// SettlementService keeps the append-only reimbursement ledger and
// derives per-store balances from it.
type SettlementService struct {
	db *gorm.DB
}

// NewSettlementService constructs a SettlementService.
func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{db: db}
}

// Record appends one settlement payment for a store. Settlements are
// never edited or deleted.
func (s *SettlementService) Record(ctx context.Context, storeCode string, amount int64, note string) (*models.Settlement, error) {
	if amount <= 0 {
		return nil, errInvalidInput("settlement amount must be positive")
	}

	var store models.Store
	if err := s.db.WithContext(ctx).First(&store, "code = ?", storeCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound("store not found")
		}
		return nil, errInternal(err)
	}

	settlement := models.Settlement{
		StoreCode: storeCode,
		Amount:    amount,
		Note:      strings.TrimSpace(note),
	}
	if err := s.db.WithContext(ctx).Create(&settlement).Error; err != nil {
		return nil, errInternal(err)
	}

	return &settlement, nil
}

// StoreBalance is the settlement position of one store.
type StoreBalance struct {
	StoreCode     string `json:"store_code"`
	RedeemedCount int64  `json:"redeemed_count"`
	RedeemedTotal int64  `json:"redeemed_total"`
	SettledTotal  int64  `json:"settled_total"`
	Unsettled     int64  `json:"unsettled"`
}

// Balance computes what the operator still owes a store: the sum of
// coupon amounts redeemed there minus the sum of recorded settlements.
func (s *SettlementService) Balance(ctx context.Context, storeCode string) (*StoreBalance, error) {
	balance := &StoreBalance{StoreCode: storeCode}

	redeemed := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("status = ? AND used_store_code = ?", models.CouponStatusUsed, storeCode)
	if err := redeemed.Count(&balance.RedeemedCount).Error; err != nil {
		return nil, errInternal(err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("status = ? AND used_store_code = ?", models.CouponStatusUsed, storeCode).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance.RedeemedTotal).Error; err != nil {
		return nil, errInternal(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("store_code = ?", storeCode).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&balance.SettledTotal).Error; err != nil {
		return nil, errInternal(err)
	}

	balance.Unsettled = balance.RedeemedTotal - balance.SettledTotal
	return balance, nil
}

// List returns settlements, optionally filtered by store, newest first.
func (s *SettlementService) List(ctx context.Context, storeCode string) ([]models.Settlement, error) {
	query := s.db.WithContext(ctx).Model(&models.Settlement{}).Order("created_at desc")
	if storeCode != "" {
		query = query.Where("store_code = ?", storeCode)
	}

	var settlements []models.Settlement
	if err := query.Find(&settlements).Error; err != nil {
		return nil, errInternal(err)
	}
	return settlements, nil
}
