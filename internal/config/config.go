package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Predictor struct {
		URL            string `yaml:"url"`
		ChunkSize      int    `yaml:"chunk_size"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"predictor"`
	Notifications struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		TelegramChatID   int64  `yaml:"telegram_chat_id"`
	} `yaml:"notifications"`
	Storage struct {
		UploadDir string `yaml:"upload_dir"`
	} `yaml:"storage"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file. Environment
// variables DATABASE_URL and PREDICTOR_URL override the file values so that
// deployments can keep credentials out of the config.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
	}
	if url := os.Getenv("PREDICTOR_URL"); url != "" {
		config.Predictor.URL = url
	}

	if config.Predictor.ChunkSize <= 0 {
		config.Predictor.ChunkSize = 3000
	}
	if config.Predictor.TimeoutSeconds <= 0 {
		config.Predictor.TimeoutSeconds = 120
	}
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "storage/uploads"
	}

	return config, nil
}
