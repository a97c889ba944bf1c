package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig
	Embedding   EmbeddingConfig
	Camera      CameraConfig
	Recognition RecognitionConfig
	Web         WebConfig
}

type DatabaseConfig struct {
	Driver       string // "postgres" or "mysql"
	URL          string // postgres:// URL or MySQL DSN (user:pass@tcp(host:3306)/db?parseTime=true)
	MaxOpenConns int
	MaxIdleConns int
}

type EmbeddingConfig struct {
	URL string // face embedding server, defaults to http://localhost:8000
	Dim int    // defaults to 512
}

type CameraConfig struct {
	URL string // snapshot URL returning a single JPEG/PNG frame
	Dir string // directory of frames replayed in a loop (used when URL is empty)
}

type RecognitionConfig struct {
	Threshold     float64       `yaml:"threshold"`
	FrameRate     int           `yaml:"frame_rate"`
	StoreTimeout  time.Duration `yaml:"store_timeout"`
	LabelMinScale float64       `yaml:"label_min_scale"`
	Location      *time.Location
}

// FrameInterval returns the ticker interval for the configured frame rate.
func (c *RecognitionConfig) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(c.FrameRate)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins; localhost is always allowed
}

// defaults mirrors the layout of defaults.yaml
type defaults struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Embedding   struct {
		URL string `yaml:"url"`
		Dim int    `yaml:"dim"`
	} `yaml:"embedding"`
	Database struct {
		Driver       string `yaml:"driver"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`
	Web struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"web"`
}

func loadDefaults() defaults {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// Embedded file, so this only happens when the file itself is broken
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

// envString returns the env var value or the default when unset or blank.
func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a float in the closed range [minVal, maxVal].
func envFloat(key string, defaultVal, minVal, maxVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < minVal || f > maxVal {
		return defaultVal
	}
	return f
}

// envDuration reads a positive Go duration such as "1500ms".
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// envList splits a comma-separated variable, dropping blank items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envLocation loads an IANA time zone name, falling back to time.Local.
func envLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func Load() *Config {
	d := loadDefaults()

	return &Config{
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", d.Database.Driver)),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Embedding: EmbeddingConfig{
			URL: envString("EMBEDDING_URL", d.Embedding.URL),
			Dim: envInt("EMBEDDING_DIM", d.Embedding.Dim),
		},
		Camera: CameraConfig{
			URL: os.Getenv("CAMERA_URL"),
			Dir: os.Getenv("CAMERA_DIR"),
		},
		Recognition: RecognitionConfig{
			Threshold:     envFloat("RECOGNITION_THRESHOLD", d.Recognition.Threshold, -1, 1),
			FrameRate:     envInt("FRAME_RATE", d.Recognition.FrameRate),
			StoreTimeout:  envDuration("STORE_TIMEOUT", d.Recognition.StoreTimeout),
			LabelMinScale: envFloat("LABEL_MIN_SCALE", d.Recognition.LabelMinScale, 0.1, 1),
			Location:      envLocation("KIOSK_TIMEZONE"),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", d.Web.Host),
			Port: envInt("WEB_PORT", d.Web.Port),

			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
