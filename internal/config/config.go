package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-driven settings.
type Config struct {
	HTTPPort             string
	DBPath               string
	UploadsDir           string
	EnableWatcher        bool
	DriveFolderID        string
	DriveCredentialsFile string
	GeminiAPIKey         string
	GeminiModel          string
	LLMTimeoutSec        int
	SyncTimeoutSec       int
	Environment          string
}

// fileConfig mirrors the optional YAML override file. Env vars win over
// file values, file values win over defaults.
type fileConfig struct {
	HTTPPort      string `yaml:"http_port"`
	DBPath        string `yaml:"db_path"`
	UploadsDir    string `yaml:"uploads_dir"`
	DriveFolderID string `yaml:"drive_folder_id"`
	GeminiModel   string `yaml:"gemini_model"`
}

// Load reads configuration from environment, optional .env file, and an
// optional YAML file pointed at by CONFIG_PATH.
func Load() Config {
	_ = godotenv.Load()

	var file fileConfig
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if data, err := os.ReadFile(path); err != nil {
			log.Printf("config file %s unreadable: %v (using env/defaults)", path, err)
		} else if err := yaml.Unmarshal(data, &file); err != nil {
			log.Printf("config file %s invalid: %v (using env/defaults)", path, err)
		}
	}

	cfg := Config{
		HTTPPort:             firstNonEmpty(os.Getenv("PORT"), file.HTTPPort, "8080"),
		DBPath:               firstNonEmpty(os.Getenv("DB_PATH"), file.DBPath, "./electricity_dept.db"),
		UploadsDir:           firstNonEmpty(os.Getenv("UPLOADS_DIR"), file.UploadsDir, "./uploads"),
		EnableWatcher:        getenvBool("ENABLE_WATCHER", false),
		DriveFolderID:        firstNonEmpty(os.Getenv("GOOGLE_DRIVE_FOLDER_ID"), file.DriveFolderID),
		DriveCredentialsFile: getenv("GOOGLE_DRIVE_CREDENTIALS", "credentials.json"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          firstNonEmpty(os.Getenv("GEMINI_MODEL"), file.GeminiModel, "gemini-2.0-flash-exp"),
		LLMTimeoutSec:        clampInt(getenvInt("LLM_TIMEOUT_SEC", 30), 1, 300),
		SyncTimeoutSec:       clampInt(getenvInt("SYNC_TIMEOUT_SEC", 120), 5, 3600),
		Environment:          getenv("ENVIRONMENT", "local"),
	}

	log.Printf("config: port=%s db=%s uploads=%s env=%s", cfg.HTTPPort, cfg.DBPath, cfg.UploadsDir, cfg.Environment)
	return cfg
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
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

func getenvBool(key string, def bool) bool {
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

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
