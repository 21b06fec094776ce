package config

import (
	"bufio"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config centralises runtime configuration. Loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	AppName         string
	HTTPPort        string
	DatabaseURL     string
	JWTSecret       string
	JWTIssuer       string
	AccessExpiry    time.Duration
	RefreshExpiry   time.Duration
	OTPExpiry       time.Duration
	AllowedOrigins  []string
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads configuration from environment variables providing sane defaults.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	httpPort := getEnv("HTTP_PORT", "")
	if httpPort == "" {
		httpPort = getEnv("PORT", "8080")
	}

	cfg := Config{
		AppName:         getEnv("APP_NAME", "Verra Identity"),
		HTTPPort:        httpPort,
		DatabaseURL:     resolveDatabaseURL(),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "identity-api"),
		AccessExpiry:    getDurationEnv("JWT_ACCESS_EXPIRY", time.Hour),
		RefreshExpiry:   getDurationEnv("JWT_REFRESH_EXPIRY", 30*24*time.Hour),
		OTPExpiry:       getDurationEnv("OTP_EXPIRY", 10*time.Minute),
		AllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeoutSec:  getIntEnv("HTTP_READ_TIMEOUT", 15),
		WriteTimeoutSec: getIntEnv("HTTP_WRITE_TIMEOUT", 15),
		IdleTimeoutSec:  getIntEnv("HTTP_IDLE_TIMEOUT", 60),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getIntEnv("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:        getEnv("SMTP_FROM", ""),
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database configuration missing: provide DATABASE_URL or PG* env vars")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.OTPExpiry <= 0 {
		return Config{}, fmt.Errorf("OTP_EXPIRY must be positive")
	}
	return cfg, nil
}

// SMTPConfigured reports whether enough SMTP settings are present to send
// real email.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}

func resolveDatabaseURL() string {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "PGURL"} {
		if url := os.Getenv(key); url != "" {
			if coerced := coerceDatabaseURL(url); coerced != "" {
				return coerced
			}
		}
	}

	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("POSTGRES_HOST"))
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("POSTGRES_USER"))
	password := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("POSTGRES_PASSWORD"))
	database := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("POSTGRES_DB"))
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	sslMode := firstNonEmpty(os.Getenv("PGSSLMODE"), os.Getenv("POSTGRES_SSL_MODE"), "require")

	if host == "" || user == "" {
		return ""
	}
	if database == "" {
		database = user
	}

	dsn := &neturl.URL{
		Scheme: "postgres",
		Path:   "/" + database,
		Host:   net.JoinHostPort(host, port),
	}
	dsn.User = neturl.User(user)
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}

	query := dsn.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", sslMode)
	}
	dsn.RawQuery = query.Encode()

	return normalisePostgresScheme(dsn.String())
}

func normalisePostgresScheme(url string) string {
	if strings.HasPrefix(url, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(url, "postgresql://")
	}
	return url
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return normalisePostgresScheme(raw)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func loadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf(".env line %d: missing '='", lineNum)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "" {
			return fmt.Errorf(".env line %d: empty key", lineNum)
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf(".env line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}
