package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/golmok/internal/config"
	"github.com/example/golmok/internal/handlers"
	"github.com/example/golmok/internal/middleware"
	"github.com/example/golmok/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	couponService := services.NewCouponService(db, cfg.CouponAmount, cfg.CouponValidity, cfg.Timezone)
	raffleService := services.NewRaffleService(db, cfg.RaffleMinSurveys, cfg.RaffleMinEntries, cfg.Timezone)
	settlementService := services.NewSettlementService(db)

	surveyHandler := handlers.NewSurveyHandler(db, couponService)
	couponHandler := handlers.NewCouponHandler(db, couponService, telegramService)
	raffleHandler := handlers.NewRaffleHandler(db, raffleService, telegramService)
	storeHandler := handlers.NewStoreHandler(db, settlementService)
	adminHandler := handlers.NewAdminHandler(db, cfg)

	api := app.Group("/api")

	// Survey intake
	surveys := api.Group("/surveys")
	surveys.Post("/", surveyHandler.Create)
	surveys.Get("/:id", surveyHandler.Get)
	surveys.Put("/:id/stage2", surveyHandler.CompleteStageTwo)

	// Coupons: customer display, merchant pre-check, and redemption
	coupons := api.Group("/coupons")
	coupons.Post("/issue", couponHandler.Issue)
	coupons.Get("/:code", couponHandler.Validate)
	coupons.Post("/:code/redeem", couponHandler.Redeem)

	// Raffle entry capture
	api.Post("/raffle/entries", raffleHandler.SubmitEntry)

	// Admin panel
	api.Post("/admin/login", adminHandler.Login)

	admin := api.Group("/admin", middleware.AdminAuth(cfg))
	admin.Get("/dashboard", adminHandler.Dashboard)
	admin.Get("/settings", adminHandler.GetSettings)
	admin.Put("/settings", adminHandler.UpdateSettings)

	admin.Get("/stores", storeHandler.List)
	admin.Post("/stores", storeHandler.Create)
	admin.Put("/stores/:code", storeHandler.Update)
	admin.Get("/stores/:code/balance", storeHandler.Balance)

	admin.Get("/settlements", storeHandler.ListSettlements)
	admin.Post("/settlements", storeHandler.RecordSettlement)

	admin.Get("/raffle/entries", raffleHandler.ListEligible)
	admin.Post("/raffle/draw", raffleHandler.Draw)
	admin.Get("/raffle/draws", raffleHandler.ListDraws)
}
