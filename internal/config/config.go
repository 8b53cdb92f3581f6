package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL     string
	SessionBackend string
	SessionFile    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string
	HTTPTimeout    time.Duration
	VerifyInterval time.Duration
	VerifyTimeout  time.Duration
	Timezone       string
}

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env ignored: %v", err)
	}
	return fromEnv()
}

func fromEnv() Config {
	return Config{
		APIBaseURL:     getenv("WFH_API_URL", "http://localhost:3000/api"),
		SessionBackend: getenv("WFH_SESSION_BACKEND", BackendFile),
		SessionFile:    getenv("WFH_SESSION_FILE", defaultSessionFile()),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		RedisDB:        getenvInt("REDIS_DB", 0),
		RedisPrefix:    getenv("WFH_REDIS_PREFIX", "wfh:session"),
		HTTPTimeout:    getenvDuration("WFH_HTTP_TIMEOUT", 0),
		VerifyInterval: getenvDuration("WFH_VERIFY_INTERVAL", 0),
		VerifyTimeout:  getenvDuration("WFH_VERIFY_TIMEOUT", 10*time.Second),
		Timezone:       getenv("WFH_TIMEZONE", "Local"),
	}
}

// Location resolves Timezone, falling back to the machine's zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %q, using local", c.Timezone)
		return time.Local
	}
	return loc
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".wfh-session.json")
	}
	return filepath.Join(dir, "wfh", "session.json")
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
