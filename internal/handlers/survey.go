package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/metrics"
	"github.com/example/golmok/internal/models"
	"github.com/example/golmok/internal/services"
)

// SurveyHandler manages questionnaire intake.
type SurveyHandler struct {
	db      *gorm.DB
	coupons *services.CouponService
}

// NewSurveyHandler constructs a SurveyHandler.
func NewSurveyHandler(db *gorm.DB, coupons *services.CouponService) *SurveyHandler {
	return &SurveyHandler{db: db, coupons: coupons}
}

type createSurveyRequest struct {
	DeviceID string          `json:"device_id"`
	Region   string          `json:"region"`
	AgeGroup string          `json:"age_group"`
	Gender   string          `json:"gender"`
	Answers  json.RawMessage `json:"answers"`
}

// Create records a stage-1 survey and issues its coupon in the same
// request, so every survey has its coupon from birth.
func (h *SurveyHandler) Create(c *fiber.Ctx) error {
	var req createSurveyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" || req.Region == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	survey := models.Survey{
		DeviceID:       req.DeviceID,
		Region:         req.Region,
		AgeGroup:       req.AgeGroup,
		Gender:         req.Gender,
		StageCompleted: models.SurveyStageOne,
		Stage1Answers:  req.Answers,
	}
	// The unique device index enforces one survey per device; a
	// racing second submission surfaces here as a duplicate key.
	if err := h.db.Create(&survey).Error; err != nil {
		if isDuplicateCode(err) {
			return fiber.NewError(fiber.StatusConflict, "a survey was already submitted from this device")
		}
		return err
	}

	coupon, err := h.coupons.Issue(c.Context(), survey.ID)
	if err != nil {
		return writeServiceError(c, err)
	}
	metrics.RecordCouponIssued()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"survey": survey,
			"coupon": fiber.Map{
				"id":         coupon.ID,
				"code":       coupon.Code,
				"amount":     coupon.Amount,
				"expires_at": coupon.ExpiresAt,
			},
		},
	})
}

type stageTwoRequest struct {
	Answers json.RawMessage `json:"answers"`
}

// CompleteStageTwo advances a survey to stage 2. The stage only moves
// forward; repeating the call on a finished survey is a no-op success.
func (h *SurveyHandler) CompleteStageTwo(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req stageTwoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var survey models.Survey
	if err := h.db.First(&survey, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "survey not found")
		}
		return err
	}

	if survey.StageCompleted < models.SurveyStageTwo {
		updates := map[string]any{
			"stage_completed": models.SurveyStageTwo,
			"stage2_answers":  []byte(req.Answers),
		}
		if err := h.db.Model(&models.Survey{}).
			Where("id = ? AND stage_completed < ?", id, models.SurveyStageTwo).
			Updates(updates).Error; err != nil {
			return err
		}
		survey.StageCompleted = models.SurveyStageTwo
		survey.Stage2Answers = req.Answers
	}

	return c.JSON(fiber.Map{"success": true, "data": survey})
}

// Get returns one survey with its coupon, for the completion screen.
func (h *SurveyHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var survey models.Survey
	if err := h.db.First(&survey, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "survey not found")
		}
		return err
	}

	var coupon models.Coupon
	response := fiber.Map{"survey": survey}
	if err := h.db.First(&coupon, "survey_id = ?", id).Error; err == nil {
		response["coupon"] = coupon
	}

	return c.JSON(fiber.Map{"success": true, "data": response})
}
