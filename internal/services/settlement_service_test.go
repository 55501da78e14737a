package services

import (
	"context"
	"testing"
	"time"

	"github.com/example/golmok/internal/models"
)

func TestSettlementBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)
	ctx := context.Background()
	createStore(t, db, "01", true)

	// A redeemed-coupon total of 5000 against settlements of 3000
	// leaves 2000 unsettled.
	storeCode := "01"
	now := time.Now().In(testZone)
	for i, amount := range []int64{3000, 2000} {
		survey := createSurvey(t, db, string(rune('a'+i))+"-device", models.SurveyStageOne)
		coupon := models.Coupon{
			Code:          []string{"000001", "000002"}[i],
			SurveyID:      survey.ID,
			Amount:        amount,
			Status:        models.CouponStatusUsed,
			IssuedAt:      now.Add(-time.Hour),
			ExpiresAt:     now.Add(23 * time.Hour),
			UsedAt:        &now,
			UsedStoreCode: &storeCode,
		}
		if err := db.Create(&coupon).Error; err != nil {
			t.Fatalf("create coupon: %v", err)
		}
	}

	if _, err := svc.Record(ctx, "01", 3000, "1차 정산"); err != nil {
		t.Fatalf("record settlement: %v", err)
	}

	balance, err := svc.Balance(ctx, "01")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.RedeemedTotal != 5000 || balance.SettledTotal != 3000 || balance.Unsettled != 2000 {
		t.Fatalf("unexpected balance: %+v", balance)
	}

	if _, err := svc.Record(ctx, "01", 2000, "2차 정산"); err != nil {
		t.Fatalf("record settlement: %v", err)
	}
	balance, err = svc.Balance(ctx, "01")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Unsettled != 0 {
		t.Fatalf("expected zero unsettled, got %d", balance.Unsettled)
	}
}

func TestSettlementRecordValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)
	ctx := context.Background()
	createStore(t, db, "01", true)

	if _, err := svc.Record(ctx, "01", 0, ""); err == nil {
		t.Fatal("expected rejection of zero amount")
	} else if code := serviceCode(t, err); code != CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %s", code)
	}

	if _, err := svc.Record(ctx, "01", -100, ""); err == nil {
		t.Fatal("expected rejection of negative amount")
	}

	if _, err := svc.Record(ctx, "77", 1000, ""); err == nil {
		t.Fatal("expected not_found for unknown store")
	} else if code := serviceCode(t, err); code != CodeNotFound {
		t.Fatalf("expected not_found, got %s", code)
	}
}

func TestSettlementListFilter(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)
	ctx := context.Background()
	createStore(t, db, "01", true)
	createStore(t, db, "02", true)

	if _, err := svc.Record(ctx, "01", 1000, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := svc.Record(ctx, "02", 2000, ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(all))
	}

	filtered, err := svc.List(ctx, "02")
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Amount != 2000 {
		t.Fatalf("unexpected filtered result: %+v", filtered)
	}
}
