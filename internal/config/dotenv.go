package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file.
// If path is empty, it loads from ".env" in the current directory.
// A missing file is not an error. Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}

// LoadConfig loads configuration from an optional .env file, the environment
// and, when PROMPTS_FILE is set, the YAML prompt profile.
func LoadConfig(envPath string) (AppConfig, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return AppConfig{}, fmt.Errorf("load env file: %w", err)
	}

	envCfg, err := LoadFromEnv()
	if err != nil {
		return AppConfig{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := envCfg.ToAppConfig()
	if cfg.PromptsFile() == "" {
		return cfg, nil
	}

	profile, err := LoadPromptProfile(cfg.PromptsFile())
	if err != nil {
		return AppConfig{}, err
	}
	return cfg.Apply(WithPipeline(profile.ApplyTo(cfg.Pipeline()))), nil
}
