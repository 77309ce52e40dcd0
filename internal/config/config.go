package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret string
}

type GeminiConfig struct {
	APIKey         string
	ChatModel      string
	ExtractModel   string
	RecommendModel string
	ForgeModel     string
	ResourceModel  string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
		},
		Gemini: GeminiConfig{
			ChatModel:      "gemini-2.0-flash-001",
			ExtractModel:   "gemini-2.0-flash-001",
			RecommendModel: "gemini-2.0-flash-001",
			ForgeModel:     "gemini-2.5-flash",
			ResourceModel:  "gemini-2.5-pro",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a .env file (if present) and DISHA_*
// environment variables layered over built-in defaults. The Gemini API key
// and JWT signing secret are required; Load fails without them.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(os.Getenv)
}

func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()

	if v := getenv("DISHA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DISHA_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := getenv("DISHA_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitAndTrim(v)
	}
	if v := getenv("DISHA_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := getenv("DISHA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.Auth.JWTSecret = getenv("DISHA_JWT_SECRET")
	cfg.Gemini.APIKey = getenv("GEMINI_API_KEY")

	if v := getenv("DISHA_CHAT_MODEL"); v != "" {
		cfg.Gemini.ChatModel = v
	}
	if v := getenv("DISHA_EXTRACT_MODEL"); v != "" {
		cfg.Gemini.ExtractModel = v
	}
	if v := getenv("DISHA_RECOMMEND_MODEL"); v != "" {
		cfg.Gemini.RecommendModel = v
	}
	if v := getenv("DISHA_FORGE_MODEL"); v != "" {
		cfg.Gemini.ForgeModel = v
	}
	if v := getenv("DISHA_RESOURCE_MODEL"); v != "" {
		cfg.Gemini.ResourceModel = v
	}

	if cfg.Gemini.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Gemini API key. Set it via environment variable GEMINI_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing required config: JWT signing secret. Set it via environment variable DISHA_JWT_SECRET")
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "disha")
	}
	return "./data"
}
