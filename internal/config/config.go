package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/idmatch/internal/engine"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database (optional, enables persistence of runs)
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Detection cache, used only with a database. Zero disables it.
	DetectionCacheTTL time.Duration `envconfig:"DETECTION_CACHE_TTL" default:"24h"`

	// Provider
	ProviderType       string        `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL        string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel      string        `envconfig:"DEEPFACE_MODEL" default:"ArcFace"`
	DeepFaceDetector   string        `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`
	DeepFaceTimeout    time.Duration `envconfig:"DEEPFACE_TIMEOUT" default:"30s"`
	DeepFaceRetryCount int           `envconfig:"DEEPFACE_RETRY_COUNT" default:"3"`
	RotationDetector   string        `envconfig:"ROTATION_DETECTOR"`

	// AWS
	AWSRegion string `envconfig:"AWS_REGION" default:"ap-south-1"`

	// Pipeline thresholds
	MinFaceConfidence float64 `envconfig:"MIN_FACE_CONFIDENCE" default:"0.5"`
	MinFaceSize       int     `envconfig:"MIN_FACE_SIZE" default:"30"`
	MaxFaceAreaRatio  float64 `envconfig:"MAX_FACE_AREA_RATIO" default:"0.85"`
	MatchThreshold    float64 `envconfig:"MATCH_THRESHOLD" default:"0.60"`
	EnableRotation    bool    `envconfig:"ENABLE_ROTATION" default:"true"`

	// Documents
	DatasetDir   string `envconfig:"DATASET_DIR"`
	TempDir      string `envconfig:"TEMP_DIR"`
	PDFDPI       int    `envconfig:"PDF_DPI" default:"300"`
	PDFToPPMPath string `envconfig:"PDFTOPPM_PATH" default:"pdftoppm"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects thresholds outside their meaningful ranges.
func (c *Config) Validate() error {
	switch {
	case c.MinFaceConfidence < 0 || c.MinFaceConfidence > 1:
		return fmt.Errorf("MIN_FACE_CONFIDENCE must be in [0,1], got %v", c.MinFaceConfidence)
	case c.MaxFaceAreaRatio <= 0 || c.MaxFaceAreaRatio > 1:
		return fmt.Errorf("MAX_FACE_AREA_RATIO must be in (0,1], got %v", c.MaxFaceAreaRatio)
	case c.MatchThreshold <= 0 || c.MatchThreshold > 2:
		return fmt.Errorf("MATCH_THRESHOLD is a cosine distance and must be in (0,2], got %v", c.MatchThreshold)
	case c.MinFaceSize < 0:
		return fmt.Errorf("MIN_FACE_SIZE must not be negative, got %d", c.MinFaceSize)
	case c.DetectionCacheTTL < 0:
		return fmt.Errorf("DETECTION_CACHE_TTL must not be negative, got %s", c.DetectionCacheTTL)
	case c.PDFDPI <= 0:
		return fmt.Errorf("PDF_DPI must be positive, got %d", c.PDFDPI)
	}
	return nil
}

// EngineConfig converts the pipeline settings into an engine configuration.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.MinFaceConfidence = c.MinFaceConfidence
	ec.MinFaceSize = c.MinFaceSize
	ec.MaxFaceAreaRatio = c.MaxFaceAreaRatio
	ec.MatchThreshold = c.MatchThreshold
	ec.EnableRotation = c.EnableRotation
	return ec
}

func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// DetectionCacheEnabled reports whether provider answers are cached in the database.
func (c *Config) DetectionCacheEnabled() bool {
	return c.PersistenceEnabled() && c.DetectionCacheTTL > 0
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
