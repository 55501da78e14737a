package main

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/golmok/internal/config"
	"github.com/example/golmok/internal/database"
	"github.com/example/golmok/internal/routes"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	if err := database.Seed(db, cfg.AdminPassword, strconv.FormatInt(cfg.TotalBudget, 10)); err != nil {
		log.Fatalf("settings seed failed: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "Golmok Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.Register(app, db, cfg)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
