package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/metrics"
	"github.com/example/golmok/internal/services"
)

// RaffleHandler exposes raffle entry capture and the admin draw.
type RaffleHandler struct {
	db       *gorm.DB
	raffle   *services.RaffleService
	telegram *services.TelegramService
}

// NewRaffleHandler constructs a RaffleHandler.
func NewRaffleHandler(db *gorm.DB, raffle *services.RaffleService, telegram *services.TelegramService) *RaffleHandler {
	return &RaffleHandler{db: db, raffle: raffle, telegram: telegram}
}

type submitEntryRequest struct {
	SurveyID       string `json:"survey_id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	PrivacyConsent bool   `json:"privacy_consent"`
}

// SubmitEntry records a raffle application for a stage-2 survey.
func (h *RaffleHandler) SubmitEntry(c *fiber.Ctx) error {
	var req submitEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	surveyID, err := uuid.Parse(req.SurveyID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid survey_id")
	}

	entry, err := h.raffle.SubmitEntry(c.Context(), surveyID, req.Name, req.Phone, req.PrivacyConsent)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": entry})
}

// ListEligible returns the current eligible pool with its counts.
func (h *RaffleHandler) ListEligible(c *fiber.Ctx) error {
	pool, err := h.raffle.ListEligible(c.Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": pool})
}

type drawRequest struct {
	TierSizes []int `json:"tier_sizes"`
}

// Draw runs the winner selection. Empty tier sizes use the default
// 1/2/4 partition.
func (h *RaffleHandler) Draw(c *fiber.Ctx) error {
	var req drawRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	outcome, err := h.raffle.Draw(c.Context(), req.TierSizes)
	if err != nil {
		return writeServiceError(c, err)
	}
	metrics.RecordDraw()

	if h.telegram != nil {
		go func(entries int64, winners int) {
			if err := h.telegram.NotifyDraw(entries, winners); err != nil {
				log.Printf("[Raffle] Telegram draw notification failed: %v", err)
			}
		}(outcome.EntryCount, len(outcome.Winners))
	}

	return c.JSON(fiber.Map{"success": true, "data": outcome})
}

// ListDraws returns draw history, newest first.
func (h *RaffleHandler) ListDraws(c *fiber.Ctx) error {
	draws, err := h.raffle.ListDraws(c.Context())
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": draws})
}
