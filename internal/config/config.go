package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at startup. Values come from
// the process environment, optionally seeded from a .env file.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string

	// AllowedOrigin is echoed in CORS headers. "*" by default.
	AllowedOrigin string

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string

	// LogConsole enables the human-readable console writer instead of JSON.
	LogConsole bool

	// EngineURL is the base URL of the ComfyUI-compatible rendering engine.
	EngineURL string

	// EngineOutputDir is the directory where the engine writes finished
	// images. The orchestrator reads generated files from here.
	EngineOutputDir string

	// PollAttempts and PollInterval bound the generation polling loop.
	// 60 attempts x 1s gives the ~60 second timeout budget.
	PollAttempts int
	PollInterval time.Duration

	// TempDir receives per-job input files. Defaults to os.TempDir().
	TempDir string

	// Object storage (S3-compatible) for publishing generated artifacts.
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	// ValkeyAddr is the primary vote store. Empty disables valkey and the
	// store runs on its file fallback only.
	ValkeyAddr string

	// DataDir holds submissions.csv and the votes fallback file.
	DataDir string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; a missing file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":3000"),
		AllowedOrigin:    getEnv("ALLOWED_ORIGIN", "*"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogConsole:       getBool("LOG_CONSOLE", true),
		EngineURL:        getEnv("ENGINE_URL", "http://127.0.0.1:8188"),
		EngineOutputDir:  getEnv("ENGINE_OUTPUT_DIR", "output"),
		PollAttempts:     getInt("POLL_ATTEMPTS", 60),
		PollInterval:     getDuration("POLL_INTERVAL", time.Second),
		TempDir:          getEnv("TEMP_DIR", os.TempDir()),
		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", "generated-images"),
		StorageUseSSL:    getBool("STORAGE_USE_SSL", true),
		ValkeyAddr:       getEnv("VALKEY_ADDR", ""),
		DataDir:          getEnv("DATA_DIR", "data"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
