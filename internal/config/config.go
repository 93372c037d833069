package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	BadgerDir             string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	SyncURL               string
	SyncIntervalSeconds   int
	TerminalID            string
	PrintSpoolDir         string
	StallName             string
	OwnerEmail            string
	AdminPIN              string
	AuthSecret            string
	AccessTokenTTLMinutes int
}

func Load() Config {
	// Missing .env is fine; real env vars win either way.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	syncInterval, err := strconv.Atoi(getEnv("SYNC_INTERVAL_SECONDS", "5"))
	if err != nil || syncInterval < 1 {
		syncInterval = 5
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		BadgerDir:             os.Getenv("BADGER_DIR"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		SyncURL:               strings.TrimRight(os.Getenv("SYNC_URL"), "/"),
		SyncIntervalSeconds:   syncInterval,
		TerminalID:            getEnv("TERMINAL_ID", "terminal-1"),
		PrintSpoolDir:         os.Getenv("PRINT_SPOOL_DIR"),
		StallName:             getEnv("STALL_NAME", "KC HIGH"),
		OwnerEmail:            strings.TrimSpace(getEnv("OWNER_EMAIL", "owner@stall.local")),
		AdminPIN:              strings.TrimSpace(os.Getenv("ADMIN_PIN")),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
