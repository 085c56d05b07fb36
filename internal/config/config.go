package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	MinIO       MinIOConfig       `yaml:"minio"`
	NATS        NATSConfig        `yaml:"nats"`
	Source      SourceConfig      `yaml:"source"`
	Vision      VisionConfig      `yaml:"vision"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Tracking    TrackingConfig    `yaml:"tracking"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// StorageConfig selects the identity store backend and where face
// crops are written. Backend "sqlite" is self-contained; "postgres"
// requires the database section below.
type StorageConfig struct {
	Backend    string `yaml:"backend"`     // sqlite | postgres
	SQLitePath string `yaml:"sqlite_path"` // used when backend is sqlite
	ImageStore string `yaml:"image_store"` // local | minio
	ImageDir   string `yaml:"image_dir"`   // used when image_store is local
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// NATSConfig configures sighting/enrollment event publishing. An empty
// URL disables publishing entirely.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// SourceConfig points at the video input. URL accepts an RTSP/HTTP
// stream, a local file path, or a /dev/video* capture device.
type SourceConfig struct {
	URL   string `yaml:"url"`
	FPS   int    `yaml:"fps"`
	Width int    `yaml:"width"`
}

type VisionConfig struct {
	ModelsDir          string  `yaml:"models_dir"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
}

type RecognitionConfig struct {
	DescriptorDim    int           `yaml:"descriptor_dim"`
	Threshold        float64       `yaml:"threshold"`
	SampleEvery      int           `yaml:"sample_every"`
	Cooldown         time.Duration `yaml:"cooldown"`
	SightingDebounce time.Duration `yaml:"sighting_debounce"`
	Index            string        `yaml:"index"`  // flat | hnsw
	Prompt           string        `yaml:"prompt"` // none | console
}

type TrackingConfig struct {
	MinIoU float64 `yaml:"min_iou"`
	MaxAge int     `yaml:"max_age"` // processed frames a lost track survives
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/ada.db"
	}
	if cfg.Storage.ImageStore == "" {
		cfg.Storage.ImageStore = "local"
	}
	if cfg.Storage.ImageDir == "" {
		cfg.Storage.ImageDir = "data/images"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Source.FPS == 0 {
		cfg.Source.FPS = 5
	}
	if cfg.Source.Width == 0 {
		cfg.Source.Width = 640
	}
	if cfg.Vision.ModelsDir == "" {
		cfg.Vision.ModelsDir = "models"
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Recognition.DescriptorDim == 0 {
		cfg.Recognition.DescriptorDim = 512
	}
	if cfg.Recognition.Threshold == 0 {
		cfg.Recognition.Threshold = 1.02
	}
	if cfg.Recognition.SampleEvery == 0 {
		cfg.Recognition.SampleEvery = 3
	}
	if cfg.Recognition.Cooldown == 0 {
		cfg.Recognition.Cooldown = 30 * time.Second
	}
	if cfg.Recognition.SightingDebounce == 0 {
		cfg.Recognition.SightingDebounce = 10 * time.Second
	}
	if cfg.Recognition.Index == "" {
		cfg.Recognition.Index = "flat"
	}
	if cfg.Recognition.Prompt == "" {
		cfg.Recognition.Prompt = "none"
	}
	if cfg.Tracking.MinIoU == 0 {
		cfg.Tracking.MinIoU = 0.3
	}
	if cfg.Tracking.MaxAge == 0 {
		cfg.Tracking.MaxAge = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ADA_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("ADA_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("ADA_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ADA_IMAGE_DIR"); v != "" {
		cfg.Storage.ImageDir = v
	}
	if v := os.Getenv("ADA_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ADA_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ADA_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ADA_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ADA_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ADA_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("ADA_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Recognition.Cooldown = d
		}
	}
	if v := os.Getenv("ADA_SIGHTING_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Recognition.SightingDebounce = d
		}
	}
	if v := os.Getenv("ADA_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("ADA_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("ADA_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("ADA_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("ADA_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("ADA_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
}
