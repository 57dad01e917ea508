package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	BotToken      string
	BotUsername   string
	AdminUserIDs  []int64
	ContestChatID int64 // channel that receives forwarded contest entries
	AdminChatID   int64 // staff chat for moderation and user messages
	NewsChatID    int64 // newspaper chat for news/code/design content
	MainChatID    int64 // primary community chat used for membership checks
	DatabasePath  string
	LogLevel      string

	DraftTimeout    time.Duration // inactivity limit for in-flight drafts
	LockIdleTimeout time.Duration // idle limit for per-user lock entries
	SweepInterval   time.Duration // tick for both background sweeps
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN environment variable is required")
	}

	adminIDsStr := os.Getenv("ADMIN_USER_IDS")
	if adminIDsStr == "" {
		return nil, fmt.Errorf("ADMIN_USER_IDS environment variable is required")
	}
	adminIDs, err := parseAdminIDs(adminIDsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_USER_IDS: %w", err)
	}

	contestChatID, err := requireChatID("CONTEST_CHAT_ID")
	if err != nil {
		return nil, err
	}
	adminChatID, err := requireChatID("ADMIN_CHAT_ID")
	if err != nil {
		return nil, err
	}
	newsChatID, err := requireChatID("NEWS_CHAT_ID")
	if err != nil {
		return nil, err
	}
	mainChatID, err := requireChatID("MAIN_CHAT_ID")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BotToken:      token,
		BotUsername:   os.Getenv("BOT_USERNAME"),
		AdminUserIDs:  adminIDs,
		ContestChatID: contestChatID,
		AdminChatID:   adminChatID,
		NewsChatID:    newsChatID,
		MainChatID:    mainChatID,
	}

	cfg.DatabasePath = cfg.LookupEnvOrString("DATABASE_PATH", "./data/contests.db")
	cfg.LogLevel = cfg.LookupEnvOrString("LOG_LEVEL", "INFO")
	cfg.DraftTimeout = cfg.LookupEnvOrDuration("DRAFT_TIMEOUT", 10*time.Minute)
	cfg.LockIdleTimeout = cfg.LookupEnvOrDuration("LOCK_IDLE_TIMEOUT", 5*time.Minute)
	cfg.SweepInterval = cfg.LookupEnvOrDuration("SWEEP_INTERVAL", time.Minute)

	if cfg.DraftTimeout <= 0 {
		return nil, fmt.Errorf("invalid DRAFT_TIMEOUT '%s': must be positive", cfg.DraftTimeout)
	}
	if cfg.LockIdleTimeout <= 0 {
		return nil, fmt.Errorf("invalid LOCK_IDLE_TIMEOUT '%s': must be positive", cfg.LockIdleTimeout)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL '%s': must be positive", cfg.SweepInterval)
	}

	return cfg, nil
}

// IsAdmin reports whether the user ID is in the admin list
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// requireChatID reads a required chat identifier and sanity-checks it.
// Group and channel IDs in Telegram are negative, user IDs positive;
// zero is never valid.
func requireChatID(key string) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, fmt.Errorf("%s environment variable is required", key)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", key, s, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-zero chat identifier", key)
	}
	return id, nil
}

// parseAdminIDs parses comma-separated admin user IDs
func parseAdminIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin ID '%s': %w", part, err)
		}
		if id <= 0 {
			return nil, fmt.Errorf("invalid admin ID '%s': must be positive", part)
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one admin ID is required")
	}

	return ids, nil
}
