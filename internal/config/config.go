package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	// Location is the operator time zone; work dates are calendar days in it.
	Location *time.Location

	WeekStartsOn    time.Weekday
	WeekDisplayDays int

	StrictStatusValidation bool
	GeolocationTimeout     time.Duration

	RedisURL string
	AMQPURL  string

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	LoginRatePerMinute int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := &Config{
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		Port:                      getEnv("PORT", "8080"),
		JWTSecret:                 os.Getenv("APP_JWT_SECRET"),
		WeekDisplayDays:           getEnvInt("WEEK_DISPLAY_DAYS", 7),
		StrictStatusValidation:    getEnvBool("STRICT_STATUS_VALIDATION", false),
		GeolocationTimeout:        getEnvDuration("GEOLOCATION_TIMEOUT", 3*time.Second),
		RedisURL:                  os.Getenv("REDIS_URL"),
		AMQPURL:                   os.Getenv("AMQP_URL"),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		LoginRatePerMinute:        getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	tz := getEnv("OPERATOR_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid OPERATOR_TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	weekStart, err := ParseWeekday(getEnv("WEEK_STARTS_ON", "monday"))
	if err != nil {
		return nil, err
	}
	cfg.WeekStartsOn = weekStart

	if cfg.WeekDisplayDays != 5 && cfg.WeekDisplayDays != 7 {
		return nil, fmt.Errorf("WEEK_DISPLAY_DAYS must be 5 or 7, got %d", cfg.WeekDisplayDays)
	}

	return cfg, nil
}

// ParseWeekday accepts "sunday" or "monday" (case-insensitive).
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	}
	return 0, fmt.Errorf("WEEK_STARTS_ON must be sunday or monday, got %q", s)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("⚠️  %s=%q is not an integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("⚠️  %s=%q is not a boolean, using default %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("⚠️  %s=%q is not a duration, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
