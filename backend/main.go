package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proficiency/backend/attempts"
	"proficiency/backend/certificates"
	"proficiency/backend/config"
	"proficiency/backend/routes"
	"proficiency/backend/storage"
	"proficiency/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("database init failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploads, err := storage.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("upload storage init failed", "driver", cfg.UploadDriver, "error", err)
	}

	renderer := certificates.NewChromeRenderer(cfg.ChromePath, cfg.ChromeRemoteURL, logger)
	issuer := certificates.NewIssuer(db, renderer, certificates.Options{
		BaseURL:       cfg.PublicBaseURL,
		DefaultRegion: cfg.CertDefaultRegion,
		Logo:          certificates.LogoSource{File: cfg.CertLogoFile, URL: cfg.CertLogoURL},
		RenderTimeout: cfg.RenderTimeout,
	}, logger)

	app := routes.NewApp(routes.Dependencies{
		DB:        db,
		Cfg:       cfg,
		Log:       logger,
		Uploads:   uploads,
		Assembler: attempts.NewAssembler(db, attempts.WithLogger(logger)),
		Issuer:    issuer,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("listening", "port", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatal("server stopped", "error", err)
	}
}
