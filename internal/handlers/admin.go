package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/config"
	"github.com/example/golmok/internal/models"
	"github.com/example/golmok/internal/utils"
)

// AdminHandler manages panel authentication, dashboard aggregates,
// and settings.
type AdminHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB, cfg *config.Config) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the panel password against the stored hash and returns
// a signed, expiring token.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var setting models.Setting
	if err := h.db.First(&setting, "key = ?", models.SettingAdminPassword).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusInternalServerError, "admin password not configured")
		}
		return err
	}

	if !utils.CheckPassword(setting.Value, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateAdminToken(h.cfg.JWTSecret, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{"success": true, "token": token})
}

// Dashboard returns aggregate statistics for the admin panel.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	var totalSurveys int64
	if err := h.db.Model(&models.Survey{}).Count(&totalSurveys).Error; err != nil {
		return err
	}

	var stageTwoSurveys int64
	if err := h.db.Model(&models.Survey{}).
		Where("stage_completed >= ?", models.SurveyStageTwo).
		Count(&stageTwoSurveys).Error; err != nil {
		return err
	}

	var couponsIssued int64
	if err := h.db.Model(&models.Coupon{}).Count(&couponsIssued).Error; err != nil {
		return err
	}

	var couponsUsed int64
	if err := h.db.Model(&models.Coupon{}).
		Where("status = ?", models.CouponStatusUsed).
		Count(&couponsUsed).Error; err != nil {
		return err
	}

	var usedAmount int64
	if err := h.db.Model(&models.Coupon{}).
		Where("status = ?", models.CouponStatusUsed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&usedAmount).Error; err != nil {
		return err
	}

	var settledAmount int64
	if err := h.db.Model(&models.Settlement{}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&settledAmount).Error; err != nil {
		return err
	}

	var raffleEntries int64
	if err := h.db.Model(&models.RaffleEntry{}).Count(&raffleEntries).Error; err != nil {
		return err
	}

	// Per-store redemption totals for the settlement table.
	type storeUsage struct {
		UsedStoreCode string `json:"store_code"`
		Count         int64  `json:"count"`
		Amount        int64  `json:"amount"`
	}
	var usage []storeUsage
	if err := h.db.Model(&models.Coupon{}).
		Select("used_store_code, count(*) as count, COALESCE(SUM(amount), 0) as amount").
		Where("status = ?", models.CouponStatusUsed).
		Group("used_store_code").
		Scan(&usage).Error; err != nil {
		return err
	}

	budget := h.totalBudget()

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_surveys":     totalSurveys,
			"stage_two_surveys": stageTwoSurveys,
			"coupons_issued":    couponsIssued,
			"coupons_used":      couponsUsed,
			"used_amount":       usedAmount,
			"settled_amount":    settledAmount,
			"raffle_entries":    raffleEntries,
			"total_budget":      budget,
			"budget_remaining":  budget - usedAmount,
			"stores":            usage,
		},
	})
}

// GetSettings returns the panel settings (password hash excluded).
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_budget": h.totalBudget(),
		},
	})
}

type updateSettingsRequest struct {
	TotalBudget *int64  `json:"total_budget"`
	NewPassword *string `json:"new_password"`
}

// UpdateSettings changes the budget figure and, optionally, the panel
// password.
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req updateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.TotalBudget != nil {
		if *req.TotalBudget < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "total_budget must not be negative")
		}
		if err := h.setSetting(models.SettingTotalBudget, strconv.FormatInt(*req.TotalBudget, 10)); err != nil {
			return err
		}
	}

	if req.NewPassword != nil {
		password := strings.TrimSpace(*req.NewPassword)
		if len(password) < 8 {
			return fiber.NewError(fiber.StatusBadRequest, "password must be at least 8 characters")
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
		}
		if err := h.setSetting(models.SettingAdminPassword, hash); err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *AdminHandler) totalBudget() int64 {
	var setting models.Setting
	if err := h.db.First(&setting, "key = ?", models.SettingTotalBudget).Error; err != nil {
		return h.cfg.TotalBudget
	}
	if parsed, err := strconv.ParseInt(setting.Value, 10, 64); err == nil {
		return parsed
	}
	return h.cfg.TotalBudget
}

func (h *AdminHandler) setSetting(key, value string) error {
	var setting models.Setting
	err := h.db.First(&setting, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return h.db.Create(&models.Setting{Key: key, Value: value}).Error
	}
	if err != nil {
		return err
	}
	setting.Value = value
	return h.db.Save(&setting).Error
}
