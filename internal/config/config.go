// Package config assembles service settings from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Audio      AudioConfig      `yaml:"audio"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Detection  DetectionConfig  `yaml:"detection"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

type DatabaseConfig struct {
	Type           string `yaml:"type"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	Path           string `yaml:"path"`
	MigrationsPath string `yaml:"migrations_path"`
}

type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	FFmpegPath string `yaml:"ffmpeg_path"`
}

type ClassifierConfig struct {
	URL        string        `yaml:"url"`
	ModelName  string        `yaml:"model_name"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"max_retries"`
}

type DetectionConfig struct {
	Workers       int           `yaml:"workers"`
	ChunkTimeout  time.Duration `yaml:"chunk_timeout"`
	FailurePolicy string        `yaml:"failure_policy"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	UploadDir     string `yaml:"upload_dir"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Prefix      string `yaml:"s3_prefix"`
	S3Region      string `yaml:"s3_region"`
	S3Endpoint    string `yaml:"s3_endpoint"`
	S3AccessKeyID string `yaml:"s3_access_key_id"`
	S3SecretKey   string `yaml:"s3_secret_access_key"`
}

type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			MaxUploadSize: 104857600,
		},
		Database: DatabaseConfig{
			Type:           "sqlite",
			Host:           "localhost",
			Port:           5432,
			User:           "faik",
			Password:       "faik_dev",
			Name:           "faik",
			Path:           "./faik.db",
			MigrationsPath: "./migrations",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
		},
		Classifier: ClassifierConfig{
			URL:        "http://localhost:8000",
			ModelName:  "mo-thecreator/Deepfake-audio-detection",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Detection: DetectionConfig{
			Workers:       1,
			FailurePolicy: "abort",
		},
		Storage: StorageConfig{
			Backend:   "local",
			UploadDir: "./uploads",
			S3Region:  "us-east-1",
		},
		Cache: CacheConfig{
			Backend:   "none",
			Dir:       "./cache",
			RedisAddr: "localhost:6379",
			TTL:       24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads ENV_FILE (default .env) into the environment without
// overriding variables that are already set, then builds the config from
// defaults, CONFIG_FILE and the environment.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.string("PORT", &c.Server.Port)
	e.int64("MAX_UPLOAD_SIZE", &c.Server.MaxUploadSize)

	e.string("DB_TYPE", &c.Database.Type)
	e.string("DB_HOST", &c.Database.Host)
	e.int("DB_PORT", &c.Database.Port)
	e.string("DB_USER", &c.Database.User)
	e.string("DB_PASSWORD", &c.Database.Password)
	e.string("DB_NAME", &c.Database.Name)
	e.string("DB_PATH", &c.Database.Path)
	e.string("MIGRATIONS_PATH", &c.Database.MigrationsPath)

	e.int("SAMPLE_RATE", &c.Audio.SampleRate)
	e.string("FFMPEG_PATH", &c.Audio.FFmpegPath)

	e.string("CLASSIFIER_URL", &c.Classifier.URL)
	e.string("MODEL_NAME", &c.Classifier.ModelName)
	e.duration("CLASSIFIER_TIMEOUT", &c.Classifier.Timeout)
	e.uint64("CLASSIFIER_RETRIES", &c.Classifier.MaxRetries)

	e.int("EVAL_WORKERS", &c.Detection.Workers)
	e.duration("CHUNK_TIMEOUT", &c.Detection.ChunkTimeout)
	e.string("FAILURE_POLICY", &c.Detection.FailurePolicy)

	e.string("STORAGE_BACKEND", &c.Storage.Backend)
	e.string("UPLOAD_DIR", &c.Storage.UploadDir)
	e.string("S3_BUCKET", &c.Storage.S3Bucket)
	e.string("S3_PREFIX", &c.Storage.S3Prefix)
	e.string("S3_REGION", &c.Storage.S3Region)
	e.string("S3_ENDPOINT", &c.Storage.S3Endpoint)
	e.string("S3_ACCESS_KEY_ID", &c.Storage.S3AccessKeyID)
	e.string("S3_SECRET_ACCESS_KEY", &c.Storage.S3SecretKey)

	e.string("CACHE_BACKEND", &c.Cache.Backend)
	e.string("CACHE_DIR", &c.Cache.Dir)
	e.string("REDIS_ADDR", &c.Cache.RedisAddr)
	e.string("REDIS_PASSWORD", &c.Cache.RedisPassword)
	e.int("REDIS_DB", &c.Cache.RedisDB)
	e.duration("CACHE_TTL", &c.Cache.TTL)

	e.string("LOG_LEVEL", &c.Log.Level)
	e.string("LOG_FORMAT", &c.Log.Format)

	return errors.Join(e.errs...)
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_TYPE %q", c.Database.Type))
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend))
	}
	switch c.Cache.Backend {
	case "none", "badger", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend))
	}
	switch strings.ToLower(c.Detection.FailurePolicy) {
	case "", "abort", "skip":
	default:
		errs = append(errs, fmt.Errorf("unsupported FAILURE_POLICY %q", c.Detection.FailurePolicy))
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, errors.New("SAMPLE_RATE must be positive"))
	}
	if c.Detection.Workers < 1 {
		errs = append(errs, errors.New("EVAL_WORKERS must be at least 1"))
	}

	return errors.Join(errs...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) string(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) uint64(key string, dst *uint64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = d
	}
}
