package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/metrics"
	"github.com/example/golmok/internal/models"
	"github.com/example/golmok/internal/services"
)

// CouponHandler exposes coupon validation and redemption.
type CouponHandler struct {
	db       *gorm.DB
	coupons  *services.CouponService
	telegram *services.TelegramService
}

// NewCouponHandler constructs a CouponHandler.
func NewCouponHandler(db *gorm.DB, coupons *services.CouponService, telegram *services.TelegramService) *CouponHandler {
	return &CouponHandler{db: db, coupons: coupons, telegram: telegram}
}

type issueRequest struct {
	SurveyID string `json:"survey_id"`
}

// Issue creates the coupon for a stage-1 survey that does not have
// one yet. Survey intake normally issues inline; this endpoint covers
// recovery when that call failed after the survey row was written.
func (h *CouponHandler) Issue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	surveyID, err := uuid.Parse(req.SurveyID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid survey_id")
	}

	coupon, err := h.coupons.Issue(c.Context(), surveyID)
	if err != nil {
		return writeServiceError(c, err)
	}
	metrics.RecordCouponIssued()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"coupon_id":  coupon.ID,
			"code":       coupon.Code,
			"amount":     coupon.Amount,
			"expires_at": coupon.ExpiresAt,
		},
	})
}

// Validate is the read-only status check used by both the customer
// display and the merchant pre-check. Business outcomes come back as
// 200 with valid=false so the terminal can render them; only an
// unknown code is a 404.
func (h *CouponHandler) Validate(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}

	coupon, err := h.coupons.Validate(c.Context(), code)
	if err != nil {
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) {
			switch svcErr.Code {
			case services.CodeAlreadyUsed, services.CodeExpired:
				return c.JSON(fiber.Map{
					"success": true,
					"data": fiber.Map{
						"valid":  false,
						"reason": string(svcErr.Code),
						"coupon": displayCoupon(coupon, svcErr.Code),
					},
				})
			}
		}
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"valid":  true,
			"coupon": coupon,
		},
	})
}

type redeemRequest struct {
	StoreCode string `json:"store_code"`
}

// Redeem is the sole mutating coupon endpoint. Safe under concurrent
// calls with the same code; at most one caller wins.
func (h *CouponHandler) Redeem(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code is required")
	}

	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.StoreCode = strings.TrimSpace(req.StoreCode)
	if req.StoreCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "store_code is required")
	}

	start := time.Now()
	result, err := h.coupons.Redeem(c.Context(), code, req.StoreCode)
	outcome := "success"
	if err != nil {
		outcome = "failed"
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) {
			outcome = string(svcErr.Code)
		}
	}
	metrics.RecordRedemption(outcome, time.Since(start).Seconds())

	if err != nil {
		return writeServiceError(c, err)
	}

	if h.telegram != nil {
		storeName := req.StoreCode
		var store models.Store
		if err := h.db.First(&store, "code = ?", req.StoreCode).Error; err == nil {
			storeName = store.Name
		}
		go func(code, storeName string, amount, todayCount int64) {
			if err := h.telegram.NotifyRedemption(code, storeName, amount, todayCount); err != nil {
				log.Printf("[Coupon] Telegram redemption notification failed: %v", err)
			}
		}(code, storeName, result.Amount, result.Stats.TodayCount)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// displayCoupon tags a coupon with its derived display status.
func displayCoupon(coupon *models.Coupon, reason services.ErrorCode) *models.Coupon {
	if coupon == nil {
		return nil
	}
	if reason == services.CodeExpired && coupon.Status == models.CouponStatusIssued {
		shown := *coupon
		shown.Status = models.CouponStatusExpired
		return &shown
	}
	return coupon
}
