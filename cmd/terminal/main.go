package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/config"
	"stallpos/terminal/internal/httpapi"
	"stallpos/terminal/internal/ledger"
	"stallpos/terminal/internal/replication"
	"stallpos/terminal/internal/service"
	"stallpos/terminal/internal/store"
	"stallpos/terminal/internal/store/badgerstore"
	"stallpos/terminal/internal/store/memory"
	pgstore "stallpos/terminal/internal/store/postgres"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logger.WithField("terminal", cfg.TerminalID)

	if err := validateSecurityConfig(cfg); err != nil {
		log.WithError(err).Fatal("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with a fallback store")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info("repository: postgres")
	case cfg.BadgerDir != "":
		bs, err := badgerstore.Open(cfg.BadgerDir)
		if err != nil {
			log.WithError(err).Fatal("failed to open badger store")
		}
		repo = bs
		closers = append(closers, bs.Close)
		log.Info("repository: badger")
	default:
		repo = memory.NewSeeded()
		log.Info("repository: in-memory")
	}

	led := ledger.New(repo)

	settings, err := repo.GetSettings(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load settings")
	}

	var transport replication.Transport = replication.Noop{}
	switch {
	case cfg.RedisAddr != "":
		rt, err := replication.NewRedisTransport(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, settings.Namespace(), log)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, running without replication")
		} else {
			transport = rt
			log.Info("replication: redis pub/sub")
		}
	case cfg.SyncURL != "":
		transport = replication.NewPollTransport(cfg.SyncURL, cfg.TerminalID, time.Duration(cfg.SyncIntervalSeconds)*time.Second, log)
		log.Info("replication: rest polling")
	default:
		log.Info("replication: disabled")
	}

	var printer replication.Printer = replication.LogPrinter{Log: log}
	if cfg.PrintSpoolDir != "" {
		printer = replication.SpoolPrinter{Dir: cfg.PrintSpoolDir}
		log.WithField("dir", cfg.PrintSpoolDir).Info("printer: spool directory")
	}

	repl := replication.New(repo, led, transport, printer, cfg.TerminalID, log)
	repl.Start()
	closers = append(closers, repl.Close)
	if err := repl.ResyncNow(ctx); err != nil {
		log.WithError(err).Warn("initial resync failed")
	}

	svc := service.New(repo, led, repl, printer, cfg.TerminalID, log)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.OwnerEmail, cfg.AdminPIN, repo)
	api := httpapi.New(svc, auth, repo, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Address()).Info("stall terminal listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("close error")
		}
	}

	log.Info("terminal stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.AdminPIN) < 6 {
		return fmt.Errorf("ADMIN_PIN must be set and at least 6 digits")
	}
	if err := validatePINStrength(cfg.AdminPIN); err != nil {
		return fmt.Errorf("ADMIN_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"222222": true, "333333": true, "444444": true, "555555": true,
		"666666": true, "777777": true, "888888": true, "999999": true,
		"121212": true, "112233": true, "123123": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
