package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/luminahr/pulse-engage/internal/api"
	"github.com/luminahr/pulse-engage/internal/config"
	"github.com/luminahr/pulse-engage/internal/dispatch"
	"github.com/luminahr/pulse-engage/internal/mailer"
	"github.com/luminahr/pulse-engage/internal/repository/postgres"
	"github.com/luminahr/pulse-engage/internal/service/activation"
	"github.com/luminahr/pulse-engage/internal/template"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("database.url (or DATABASE_URL) is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		log.Fatalf("Database unreachable at %s: %v", extractHost(cfg.Database.URL), err)
	}
	cancel()
	log.Printf("[server] Connected to database at %s", extractHost(cfg.Database.URL))

	// Transport provider
	transport, err := mailer.NewSESTransport(context.Background(), cfg.SES)
	if err != nil {
		log.Fatalf("Failed to create SES transport: %v", err)
	}

	// Template provider
	engine, err := template.NewEngine()
	if err != nil {
		log.Fatalf("Failed to create template engine: %v", err)
	}
	log.Printf("[server] Template engine ready (survey types: %v)", engine.Keys())

	// Pacing and quota
	pacer := dispatch.NewPacer(cfg.Dispatch.MessageDelay(), cfg.Dispatch.BatchSize, cfg.Dispatch.BatchPause())

	var quota *dispatch.QuotaGuard
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		quota, err = dispatch.NewQuotaGuardFromURL(cfg.Redis.URL, cfg.Dispatch.DailyQuota)
		if err != nil {
			log.Fatalf("Failed to connect quota guard: %v", err)
		}
		defer quota.Close()
		log.Printf("[server] Send-quota guard enabled (daily limit %d)", cfg.Dispatch.DailyQuota)
	} else {
		log.Println("[server] Send-quota guard disabled (no redis configured)")
	}

	// Repositories
	campaignRepo := postgres.NewCampaignRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)
	auditRepo := postgres.NewAuditRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)

	// Core services
	dispatcher := dispatch.New(engine, transport, ledgerRepo, pacer, quota, cfg.Survey.BaseURL)
	activationSvc := activation.NewService(campaignRepo, dispatcher, auditRepo)

	handlers := api.NewHandlers(activationSvc, campaignRepo, ledgerRepo, auditRepo, db)
	server := api.NewServer(cfg.Server, cfg.CORS, handlers, tokenRepo)

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Preflight failed: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] Listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case sig := <-stop:
		log.Printf("[server] Received %s, shutting down", sig)
	}

	// In-flight activations finish their dispatch loop before the listener
	// closes; give them room.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] Shutdown error: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("[server] DB close error: %v", err)
	}
	log.Println("[server] Stopped")
}
