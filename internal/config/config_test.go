package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "loads explicit values",
			envVars: map[string]string{
				"PORT":                "8080",
				"ENV":                 "production",
				"DATABASE_URL":        "postgres://localhost/test",
				"PROVIDER_TYPE":       "mock",
				"ROTATION_DETECTOR":   "rekognition",
				"DEEPFACE_TIMEOUT":    "5s",
				"MATCH_THRESHOLD":     "0.7",
				"ENABLE_ROTATION":     "false",
				"PDF_DPI":             "150",
				"MIN_FACE_CONFIDENCE": "0.8",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 8080 &&
					c.Environment == "production" &&
					c.DatabaseURL == "postgres://localhost/test" &&
					c.ProviderType == "mock" &&
					c.RotationDetector == "rekognition" &&
					c.DeepFaceTimeout == 5*time.Second &&
					c.MatchThreshold == 0.7 &&
					!c.EnableRotation &&
					c.PDFDPI == 150 &&
					c.MinFaceConfidence == 0.8 &&
					c.DetectionCacheEnabled()
			},
		},
		{
			name:    "uses defaults when optional vars missing",
			envVars: map[string]string{},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Port == 3000 &&
					c.Environment == "development" &&
					c.ProviderType == "deepface" &&
					c.DeepFaceURL == "http://localhost:5005" &&
					c.DeepFaceModel == "ArcFace" &&
					c.DeepFaceDetector == "retinaface" &&
					c.AWSRegion == "ap-south-1" &&
					c.MatchThreshold == 0.60 &&
					c.MaxFaceAreaRatio == 0.85 &&
					c.MinFaceSize == 30 &&
					c.EnableRotation &&
					c.PDFDPI == 300 &&
					c.DetectionCacheTTL == 24*time.Hour &&
					!c.PersistenceEnabled() &&
					!c.DetectionCacheEnabled()
			},
		},
		{
			name: "fails on malformed number",
			envVars: map[string]string{
				"MIN_FACE_SIZE": "big",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on out of range threshold",
			envVars: map[string]string{
				"MAX_FACE_AREA_RATIO": "1.5",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "accepts distance threshold above one",
			envVars: map[string]string{
				"MATCH_THRESHOLD": "1.2",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.MatchThreshold == 1.2
			},
		},
		{
			name: "fails on negative match threshold",
			envVars: map[string]string{
				"MATCH_THRESHOLD": "-0.5",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on zero match threshold",
			envVars: map[string]string{
				"MATCH_THRESHOLD": "0",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on match threshold above two",
			envVars: map[string]string{
				"MATCH_THRESHOLD": "2.5",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on negative cache ttl",
			envVars: map[string]string{
				"DETECTION_CACHE_TTL": "-1m",
			},
			wantErr: true,
			check:   nil,
		},
		{
			name: "fails on zero dpi",
			envVars: map[string]string{
				"PDF_DPI": "0",
			},
			wantErr: true,
			check:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_EngineConfig(t *testing.T) {
	c := &Config{
		MinFaceConfidence: 0.7,
		MinFaceSize:       40,
		MaxFaceAreaRatio:  0.9,
		MatchThreshold:    0.5,
		EnableRotation:    false,
	}

	ec := c.EngineConfig()
	if ec.MinFaceConfidence != 0.7 || ec.MinFaceSize != 40 || ec.MaxFaceAreaRatio != 0.9 {
		t.Errorf("EngineConfig() quality settings = %+v", ec)
	}
	if ec.MatchThreshold != 0.5 || ec.EnableRotation {
		t.Errorf("EngineConfig() match settings = %+v", ec)
	}
	if len(ec.Angles) != 12 || ec.DefaultQualityScore != 0.9 {
		t.Errorf("EngineConfig() should keep engine defaults, got %+v", ec)
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}
