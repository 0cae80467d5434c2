package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"visa-onboarding-service/internal/domain"
)

const (
	defaultHTTPPort        = "8080"
	defaultTemporalAddress = "localhost:7233"
	defaultTemporalNS      = "default"
	defaultTaskQueue       = "visa-release-task-queue"
	defaultMinioEndpoint   = "localhost:9000"
	defaultMinioBucket     = "visa-documents"
	defaultLockTTLSec      = 30
	defaultPresignSec      = 15 * 60
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
)

type Config struct {
	HTTPPort           string
	PostgresDSN        string
	TemporalAddress    string
	TemporalNamespace  string
	TemporalTaskQueue  string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioUseSSL        bool
	WorkflowIDPrefix   string
	AllowedUploadBytes int64
	JWTSecret          string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	LockTTL            time.Duration
	PresignExpiry      time.Duration
	Sequence           domain.SequencePolicy
	LogLevel           string
	LogFormat          string
}

// Load reads configuration from the environment, optionally layered over the
// YAML file named by CONFIG_FILE. Environment values win.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := Config{
		HTTPPort:           v.GetString("HTTP_PORT"),
		PostgresDSN:        v.GetString("POSTGRES_DSN"),
		TemporalAddress:    v.GetString("TEMPORAL_ADDRESS"),
		TemporalNamespace:  v.GetString("TEMPORAL_NAMESPACE"),
		TemporalTaskQueue:  v.GetString("TEMPORAL_TASK_QUEUE"),
		MinioEndpoint:      v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:     v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:     v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:        v.GetString("MINIO_BUCKET"),
		MinioUseSSL:        v.GetBool("MINIO_USE_SSL"),
		WorkflowIDPrefix:   v.GetString("RELEASE_WORKFLOW_ID_PREFIX"),
		AllowedUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		LockTTL:            time.Duration(v.GetInt("LOCK_TTL_SEC")) * time.Second,
		PresignExpiry:      time.Duration(v.GetInt("PRESIGN_EXPIRY_SEC")) * time.Second,
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AllowedUploadBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.LockTTL <= 0 {
		return Config{}, fmt.Errorf("LOCK_TTL_SEC must be positive")
	}

	seq := strings.TrimSpace(v.GetString("VISA_SEQUENCE"))
	if seq == "" {
		cfg.Sequence = domain.DefaultSequencePolicy()
	} else {
		policy, err := domain.ParseSequencePolicy(seq)
		if err != nil {
			return Config{}, fmt.Errorf("VISA_SEQUENCE: %w", err)
		}
		cfg.Sequence = policy
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", defaultHTTPPort)
	v.SetDefault("TEMPORAL_ADDRESS", defaultTemporalAddress)
	v.SetDefault("TEMPORAL_NAMESPACE", defaultTemporalNS)
	v.SetDefault("TEMPORAL_TASK_QUEUE", defaultTaskQueue)
	v.SetDefault("MINIO_ENDPOINT", defaultMinioEndpoint)
	v.SetDefault("MINIO_BUCKET", defaultMinioBucket)
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("RELEASE_WORKFLOW_ID_PREFIX", "visa-release")
	v.SetDefault("MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_TTL_SEC", defaultLockTTLSec)
	v.SetDefault("PRESIGN_EXPIRY_SEC", defaultPresignSec)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FORMAT", defaultLogFormat)
}
