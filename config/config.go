package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Store paths
	TrackerDBPath string
	HistoryDBPath string

	// Fetch policy
	MaxAttempts    int
	CoolDown       time.Duration
	FetchTimeout   time.Duration
	ChallengeBlock time.Duration

	// Batch execution
	Workers    int
	ScheduleAt string
	Timezone   string

	// Renderer
	ChromeAddr string
	ProxyURLs  []string

	// Memcache (challenge block cache, optional)
	MemcacheAddr string

	// Redis alert stream (optional)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Email alerts
	EmailHost string
	EmailPort int
	EmailUser string
	EmailPass string
	EmailTo   string

	// Selector overrides (optional YAML file)
	SelectorsPath string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	maxAttempts, _ := strconv.Atoi(getEnv("FETCH_MAX_ATTEMPTS", "3"))
	coolDown, _ := strconv.Atoi(getEnv("FETCH_COOLDOWN_SECONDS", "10"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "30"))
	challengeBlock, _ := strconv.Atoi(getEnv("CHALLENGE_BLOCK_SECONDS", "900"))
	workers, _ := strconv.Atoi(getEnv("BATCH_WORKERS", "4"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	emailPort, _ := strconv.Atoi(getEnv("EMAIL_PORT", "587"))

	return Config{
		TrackerDBPath:        getEnv("TRACKER_DB_PATH", "tracker.db"),
		HistoryDBPath:        getEnv("HISTORY_DB_PATH", "prices.db"),
		MaxAttempts:          maxAttempts,
		CoolDown:             time.Duration(coolDown) * time.Second,
		FetchTimeout:         time.Duration(fetchTimeout) * time.Second,
		ChallengeBlock:       time.Duration(challengeBlock) * time.Second,
		Workers:              workers,
		ScheduleAt:           getEnv("SCRAPE_AT", "10:00"),
		Timezone:             getEnv("SCRAPE_TIMEZONE", "Local"),
		ChromeAddr:           getEnv("CHROME_ADDR", ""),
		ProxyURLs:            splitList(getEnv("PROXY_URLS", "")),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "price_alerts"),
		RedisStreamMaxLength: redisMaxLen,
		EmailHost:            getEnv("EMAIL_HOST", ""),
		EmailPort:            emailPort,
		EmailUser:            getEnv("EMAIL_USER", ""),
		EmailPass:            getEnv("EMAIL_PASS", ""),
		EmailTo:              getEnv("EMAIL_TO", ""),
		SelectorsPath:        getEnv("SELECTORS_PATH", ""),
		Environment:          getEnv("PRICEPILOT_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values that would break a run
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.CoolDown < 0 {
		return fmt.Errorf("FETCH_COOLDOWN_SECONDS must not be negative")
	}
	if c.TrackerDBPath == "" || c.HistoryDBPath == "" {
		return fmt.Errorf("store paths must not be empty")
	}
	if _, _, err := ParseClock(c.ScheduleAt); err != nil {
		return err
	}
	return nil
}

// ScheduleSpec returns the cron spec for the configured daily run time
func (c Config) ScheduleSpec() string {
	hour, minute, err := ParseClock(c.ScheduleAt)
	if err != nil {
		hour, minute = 10, 0
	}
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// ParseClock parses an HH:MM wall-clock string
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("SCRAPE_AT must be HH:MM, got %q", s)
	}
	hour, herr := strconv.Atoi(parts[0])
	minute, merr := strconv.Atoi(parts[1])
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("SCRAPE_AT out of range: %q", s)
	}
	return hour, minute, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
