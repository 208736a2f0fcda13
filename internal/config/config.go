package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	KafkaBrokers []string
	KafkaEnabled bool
	OrderTopic   string
	AuditTopic   string

	UploadDir string

	AdminEmail    string
	AdminPassword string

	SessionTTL time.Duration
}

// Load reads the .env file (searching upward from the working directory, the
// way the binaries are started both from the repo root and from cmd/) and
// builds the config from environment variables.
func Load() *Config {
	loadEnv()

	return &Config{
		HTTPPort:      getEnv("HTTP_PORT", "9000"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnvInt("DB_PORT", 5432),
		DBUser:        getEnv("POSTGRES_USER", "postgres"),
		DBPassword:    getEnv("POSTGRES_PASSWORD", ""),
		DBName:        getEnv("POSTGRES_DB", "sewain"),
		KafkaBrokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaEnabled:  getEnv("KAFKA_ENABLED", "false") == "true",
		OrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		AuditTopic:    getEnv("KAFKA_AUDIT_TOPIC", "audit-logs"),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@sewain.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("config: cannot determine working directory: %v", err)
		return
	}

	candidates := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, path := range candidates {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded environment variables from %s", path)
			return
		}
	}
	log.Println("No .env file found, relying on process environment")
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
		log.Printf("config: invalid integer for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid duration for %s: %q, using %s", key, v, fallback)
		return fallback
	}
	return d
}
