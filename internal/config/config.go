// Package config loads settings from a .env file, an optional YAML file and
// environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultRepo       = "radpushman/Knowledge_for_CT_Room_Staff"
	DefaultFolder     = "knowledge"
	DefaultTimeout    = 30 * time.Second
	DefaultQdrantPort = 6334
	DefaultPort       = "8080"
	UsageFileName     = "api_usage.json"
)

// Config is the complete application configuration.
type Config struct {
	DataDir      string       `yaml:"data_dir"`
	SecurityCode string       `yaml:"security_code"`
	GitHub       GitHubConfig `yaml:"github"`
	OpenAI       OpenAIConfig `yaml:"openai"`
	Qdrant       QdrantConfig `yaml:"qdrant"`
	AI           AIConfig     `yaml:"ai"`
	Server       ServerConfig `yaml:"server"`
}

// GitHubConfig locates the backup repository.
type GitHubConfig struct {
	Token   string        `yaml:"token"`
	Repo    string        `yaml:"repo"`
	Branch  string        `yaml:"branch"`
	Folder  string        `yaml:"folder"`
	Timeout time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AIConfig bounds answer generation.
type AIConfig struct {
	Limit  int    `yaml:"limit"`
	Period string `yaml:"period"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	HTTP bool   `yaml:"http"` // serve MCP over HTTP instead of stdio
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DataDir: ".",
		GitHub: GitHubConfig{
			Repo:    DefaultRepo,
			Folder:  DefaultFolder,
			Timeout: DefaultTimeout,
		},
		Qdrant: QdrantConfig{Port: DefaultQdrantPort},
		AI:     AIConfig{Limit: 1500, Period: "daily"},
		Server: ServerConfig{Port: DefaultPort},
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// KB_CONFIG is consulted and no file is fine.
func Load(path string) (*Config, error) {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = os.Getenv("KB_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("KB_DATA_DIR", c.DataDir)
	c.SecurityCode = getEnv("KB_SECURITY_CODE", c.SecurityCode)

	c.GitHub.Token = getEnv("GITHUB_TOKEN", c.GitHub.Token)
	c.GitHub.Repo = getEnv("GITHUB_REPO", c.GitHub.Repo)
	c.GitHub.Branch = getEnv("GITHUB_BRANCH", c.GitHub.Branch)
	c.GitHub.Folder = getEnv("GITHUB_FOLDER", c.GitHub.Folder)
	c.GitHub.Timeout = getEnvDuration("GITHUB_TIMEOUT", c.GitHub.Timeout)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)

	c.Qdrant.Host = getEnv("QDRANT_HOST", c.Qdrant.Host)
	c.Qdrant.Port = getEnvInt("QDRANT_PORT", c.Qdrant.Port)

	c.AI.Limit = getEnvInt("AI_DAILY_LIMIT", c.AI.Limit)
	c.AI.Period = getEnv("AI_USAGE_PERIOD", c.AI.Period)

	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.HTTP = getEnvBool("SERVER_MODE", c.Server.HTTP)
}

// GitHubEnabled reports whether remote backup is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHub.Token != "" && c.GitHub.Repo != ""
}

// AnswerEnabled reports whether an LLM answerer is configured.
func (c *Config) AnswerEnabled() bool {
	return c.OpenAI.APIKey != ""
}

// SemanticEnabled reports whether vector search is configured.
func (c *Config) SemanticEnabled() bool {
	return c.OpenAI.APIKey != "" && c.Qdrant.Host != ""
}

// UsagePath is where the AI usage counter lives.
func (c *Config) UsagePath() string {
	return filepath.Join(c.DataDir, UsageFileName)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts "45s" style durations or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return defaultValue
}
