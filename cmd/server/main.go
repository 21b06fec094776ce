package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/verra-health/identity-api/internal/config"
	"github.com/verra-health/identity-api/internal/httpserver"
	"github.com/verra-health/identity-api/internal/infrastructure/mail"
	"github.com/verra-health/identity-api/internal/infrastructure/postgres"
	"github.com/verra-health/identity-api/internal/infrastructure/token"
	authusecase "github.com/verra-health/identity-api/internal/usecase/auth"
	"github.com/verra-health/identity-api/internal/usecase/otp"
	profileusecase "github.com/verra-health/identity-api/internal/usecase/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	rootCtx := context.Background()
	db, err := postgres.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(rootCtx); err != nil {
		log.Fatalf("failed to run database migrations: %v", err)
	}

	users := postgres.NewUserRepository(db.Pool)
	tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.AccessExpiry, cfg.RefreshExpiry, cfg.JWTIssuer)
	codes := otp.NewEngine(users, cfg.OTPExpiry)

	var mailer authusecase.Mailer
	if cfg.SMTPConfigured() {
		mailer = mail.NewSMTPMailer(mail.Config{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			From:      cfg.SMTPFrom,
			AppName:   cfg.AppName,
			OTPWindow: cfg.OTPExpiry,
		})
	} else {
		log.Printf("SMTP not configured, verification codes will be logged")
		mailer = mail.NewLogMailer()
	}

	authService := authusecase.NewService(users, codes, tokenManager, mailer)
	profileService := profileusecase.NewService(users)

	server := httpserver.NewServer(cfg, authService, profileService)
	log.Printf("HTTP server listening on %s", server.Addr())

	go func() {
		if err := server.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server closed: %v", err)
				return
			}
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	} else {
		log.Printf("graceful shutdown completed")
	}
}
