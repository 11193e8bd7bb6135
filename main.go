// main.go
package main

import (
	"context"
	"log"

	"marketplace-booking/cmd"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/notify"
	"marketplace-booking/internal/wire"
	"marketplace-booking/pkg/database"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// External adapters
	gw := gateway.NewRazorpayGateway(config.Gateway, logger)
	notifier := notify.NewMailer(config.Email, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, gw, notifier, config, logger)

	// Background recovery sweep
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.Service.Sweep.Run(ctx)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
