package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/models"
	"github.com/example/golmok/internal/services"
	"github.com/example/golmok/internal/utils"
)

// StoreHandler manages merchant stores and their settlements.
type StoreHandler struct {
	db          *gorm.DB
	settlements *services.SettlementService
}

// NewStoreHandler constructs a StoreHandler.
func NewStoreHandler(db *gorm.DB, settlements *services.SettlementService) *StoreHandler {
	return &StoreHandler{db: db, settlements: settlements}
}

type storeResponse struct {
	models.Store
	Balance *services.StoreBalance `json:"balance,omitempty"`
}

// List returns all stores with their settlement balances.
func (h *StoreHandler) List(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	query := h.db.Model(&models.Store{})
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var stores []models.Store
	if err := query.Order("code asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&stores).Error; err != nil {
		return err
	}

	result := make([]storeResponse, len(stores))
	for i, store := range stores {
		result[i] = storeResponse{Store: store}
		if balance, err := h.settlements.Balance(c.Context(), store.Code); err == nil {
			result[i].Balance = balance
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type createStoreRequest struct {
	Name         string `json:"name"`
	ManagerName  string `json:"manager_name"`
	ManagerPhone string `json:"manager_phone"`
}

// Create registers a merchant. Codes are short sequential strings
// assigned from the current maximum; the unique index catches the
// rare concurrent collision and the insert retries once.
func (h *StoreHandler) Create(c *fiber.Ctx) error {
	var req createStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	var store models.Store
	for attempt := 0; attempt < 2; attempt++ {
		store = models.Store{
			Code:         h.nextStoreCode(),
			Name:         req.Name,
			ManagerName:  req.ManagerName,
			ManagerPhone: req.ManagerPhone,
			IsActive:     true,
		}
		err := h.db.Create(&store).Error
		if err == nil {
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": store})
		}
		if attempt == 1 || !isDuplicateCode(err) {
			return err
		}
	}

	return fiber.NewError(fiber.StatusInternalServerError, "could not allocate store code")
}

type updateStoreRequest struct {
	Name         *string `json:"name"`
	ManagerName  *string `json:"manager_name"`
	ManagerPhone *string `json:"manager_phone"`
	IsActive     *bool   `json:"is_active"`
}

// Update renames or soft-deactivates a store. Stores are never deleted.
func (h *StoreHandler) Update(c *fiber.Ctx) error {
	code := c.Params("code")

	var store models.Store
	if err := h.db.First(&store, "code = ?", code).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "store not found")
		}
		return err
	}

	var req updateStoreRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name != nil {
		store.Name = strings.TrimSpace(*req.Name)
	}
	if req.ManagerName != nil {
		store.ManagerName = *req.ManagerName
	}
	if req.ManagerPhone != nil {
		store.ManagerPhone = *req.ManagerPhone
	}
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}

	if err := h.db.Save(&store).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": store})
}

// Balance reports what the operator still owes one store.
func (h *StoreHandler) Balance(c *fiber.Ctx) error {
	code := c.Params("code")

	var store models.Store
	if err := h.db.First(&store, "code = ?", code).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "store not found")
		}
		return err
	}

	balance, err := h.settlements.Balance(c.Context(), code)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": balance})
}

type recordSettlementRequest struct {
	StoreCode string `json:"store_code"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note"`
}

// RecordSettlement appends one reimbursement payment.
func (h *StoreHandler) RecordSettlement(c *fiber.Ctx) error {
	var req recordSettlementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.StoreCode) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "store_code is required")
	}

	settlement, err := h.settlements.Record(c.Context(), req.StoreCode, req.Amount, req.Note)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": settlement})
}

// ListSettlements returns the ledger, optionally filtered by store.
func (h *StoreHandler) ListSettlements(c *fiber.Ctx) error {
	settlements, err := h.settlements.List(c.Context(), strings.TrimSpace(c.Query("store_code")))
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": settlements})
}

// nextStoreCode scans the current maximum code and increments it,
// zero-padded to keep the two-digit display codes sorted.
func (h *StoreHandler) nextStoreCode() string {
	var current string
	if err := h.db.Model(&models.Store{}).
		Select("COALESCE(MAX(code), '')").
		Scan(&current).Error; err != nil || current == "" {
		return "01"
	}

	n, err := strconv.Atoi(current)
	if err != nil {
		return "01"
	}
	return fmt.Sprintf("%02d", n+1)
}

func isDuplicateCode(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
