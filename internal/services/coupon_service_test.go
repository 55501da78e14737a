package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/example/golmok/internal/models"
)

func newCouponServiceForTest(t *testing.T) (*CouponService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewCouponService(db, 5000, 24*time.Hour, testZone), db
}

func TestIssueSequentialCodes(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	ctx := context.Background()

	codes := make(map[string]bool)
	for i := 0; i < 3; i++ {
		survey := createSurvey(t, db, fmt.Sprintf("device-%d", i), models.SurveyStageOne)
		coupon, err := svc.Issue(ctx, survey.ID)
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}

		want := fmt.Sprintf("%06d", i+1)
		if coupon.Code != want {
			t.Fatalf("expected code %s, got %s", want, coupon.Code)
		}
		if codes[coupon.Code] {
			t.Fatalf("duplicate code %s", coupon.Code)
		}
		codes[coupon.Code] = true

		if coupon.Status != models.CouponStatusIssued {
			t.Fatalf("expected issued status, got %s", coupon.Status)
		}
	}
}

func TestIssueComputesExpiry(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	survey := createSurvey(t, db, "device-exp", models.SurveyStageOne)

	coupon, err := svc.Issue(context.Background(), survey.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	window := coupon.ExpiresAt.Sub(coupon.IssuedAt)
	if window != 24*time.Hour {
		t.Fatalf("expected 24h validity window, got %v", window)
	}
	if !coupon.ExpiresAt.After(svc.Now()) {
		t.Fatal("fresh coupon must not be expired")
	}
}

func TestIssueRequiresStageOne(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	survey := createSurvey(t, db, "device-0", 0)

	_, err := svc.Issue(context.Background(), survey.ID)
	if err == nil {
		t.Fatal("expected error for stage-0 survey")
	}
	if code := serviceCode(t, err); code != CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %s", code)
	}
}

func TestIssueOncePerSurvey(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	survey := createSurvey(t, db, "device-once", models.SurveyStageOne)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, survey.ID); err != nil {
		t.Fatalf("first issue: %v", err)
	}

	_, err := svc.Issue(ctx, survey.ID)
	if err == nil {
		t.Fatal("expected conflict on second issue")
	}
	if code := serviceCode(t, err); code != CodeConflict {
		t.Fatalf("expected conflict, got %s", code)
	}
}

func TestValidateOutcomes(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	ctx := context.Background()

	survey := createSurvey(t, db, "device-v", models.SurveyStageOne)
	coupon, err := svc.Issue(ctx, survey.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Validate(ctx, coupon.Code); err != nil {
		t.Fatalf("fresh coupon should validate: %v", err)
	}

	if _, err := svc.Validate(ctx, "999999"); err == nil {
		t.Fatal("expected not_found for unknown code")
	} else if code := serviceCode(t, err); code != CodeNotFound {
		t.Fatalf("expected not_found, got %s", code)
	}

	// Push the coupon past its window.
	past := svc.Now().Add(-time.Minute)
	if err := db.Model(&models.Coupon{}).
		Where("code = ?", coupon.Code).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("age coupon: %v", err)
	}
	if _, err := svc.Validate(ctx, coupon.Code); err == nil {
		t.Fatal("expected expired")
	} else if code := serviceCode(t, err); code != CodeExpired {
		t.Fatalf("expected expired, got %s", code)
	}
}

func TestRedeemSuccessAndStats(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	ctx := context.Background()
	createStore(t, db, "01", true)

	first := createSurvey(t, db, "device-r1", models.SurveyStageOne)
	coupon, err := svc.Issue(ctx, first.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	result, err := svc.Redeem(ctx, coupon.Code, "01")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Amount != 5000 {
		t.Fatalf("expected amount 5000, got %d", result.Amount)
	}
	if result.Stats.TodayCount != 1 || result.Stats.TodayAmount != 5000 {
		t.Fatalf("unexpected today stats: %+v", result.Stats)
	}
	if result.Stats.TotalCount != 1 || result.Stats.TotalAmount != 5000 {
		t.Fatalf("unexpected lifetime stats: %+v", result.Stats)
	}
	if result.Coupon.UsedAt == nil || result.Coupon.UsedStoreCode == nil || *result.Coupon.UsedStoreCode != "01" {
		t.Fatalf("used_at/used_store_code not set: %+v", result.Coupon)
	}

	second := createSurvey(t, db, "device-r2", models.SurveyStageOne)
	other, err := svc.Issue(ctx, second.ID)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	result, err = svc.Redeem(ctx, other.Code, "01")
	if err != nil {
		t.Fatalf("redeem second: %v", err)
	}
	if result.Stats.TodayCount != 2 || result.Stats.TotalAmount != 10000 {
		t.Fatalf("stats not cumulative: %+v", result.Stats)
	}
}

func TestRedeemFailureOutcomes(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	ctx := context.Background()
	createStore(t, db, "01", true)
	createStore(t, db, "02", false)

	survey := createSurvey(t, db, "device-f", models.SurveyStageOne)
	coupon, err := svc.Issue(ctx, survey.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Redeem(ctx, coupon.Code, "99"); err == nil {
		t.Fatal("expected not_found for unknown store")
	} else if code := serviceCode(t, err); code != CodeNotFound {
		t.Fatalf("expected not_found, got %s", code)
	}

	if _, err := svc.Redeem(ctx, coupon.Code, "02"); err == nil {
		t.Fatal("expected rejection for inactive store")
	} else if code := serviceCode(t, err); code != CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %s", code)
	}

	if _, err := svc.Redeem(ctx, "424242", "01"); err == nil {
		t.Fatal("expected not_found for unknown code")
	} else if code := serviceCode(t, err); code != CodeNotFound {
		t.Fatalf("expected not_found, got %s", code)
	}

	if _, err := svc.Redeem(ctx, coupon.Code, "01"); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := svc.Redeem(ctx, coupon.Code, "01"); err == nil {
		t.Fatal("expected already_used on second redemption")
	} else if code := serviceCode(t, err); code != CodeAlreadyUsed {
		t.Fatalf("expected already_used, got %s", code)
	}
}

func TestRedeemRejectsExpired(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	ctx := context.Background()
	createStore(t, db, "01", true)

	survey := createSurvey(t, db, "device-e", models.SurveyStageOne)
	coupon, err := svc.Issue(ctx, survey.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	past := svc.Now().Add(-time.Minute)
	if err := db.Model(&models.Coupon{}).
		Where("code = ?", coupon.Code).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("age coupon: %v", err)
	}

	if _, err := svc.Redeem(ctx, coupon.Code, "01"); err == nil {
		t.Fatal("expected expired")
	} else if code := serviceCode(t, err); code != CodeExpired {
		t.Fatalf("expected expired, got %s", code)
	}

	// The coupon must still be unredeemed afterwards.
	var stored models.Coupon
	if err := db.First(&stored, "code = ?", coupon.Code).Error; err != nil {
		t.Fatalf("reload coupon: %v", err)
	}
	if stored.Status != models.CouponStatusIssued {
		t.Fatalf("expired coupon must stay issued, got %s", stored.Status)
	}
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	svc, db := newCouponServiceForTest(t)
	ctx := context.Background()
	createStore(t, db, "01", true)

	survey := createSurvey(t, db, "device-c", models.SurveyStageOne)
	coupon, err := svc.Issue(ctx, survey.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(ctx, coupon.Code, "01")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, alreadyUsed := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		if code := serviceCode(t, err); code == CodeAlreadyUsed {
			alreadyUsed++
		} else {
			t.Fatalf("unexpected outcome: %v", err)
		}
	}

	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if alreadyUsed != attempts-1 {
		t.Fatalf("expected %d already_used, got %d", attempts-1, alreadyUsed)
	}
}
