package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Gallery
	GalleryBackend string `envconfig:"GALLERY_BACKEND" default:"file"`
	GalleryPath    string `envconfig:"GALLERY_PATH" default:"faces.db"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	MaxFaces       int    `envconfig:"MAX_FACES" default:"1000"`

	// Model stack
	ModelStack  string `envconfig:"MODEL_STACK" default:"mock"`
	DeepFaceURL string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	NumMatches  int    `envconfig:"NUM_MATCHES" default:"5"`

	// Worker
	QueueCapacity  int           `envconfig:"QUEUE_CAPACITY" default:"1024"`
	BackupInterval time.Duration `envconfig:"BACKUP_INTERVAL" default:"60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
