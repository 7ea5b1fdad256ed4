package utils

import (
	"log"
	"os"
	"reflect"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Application
	Environment string `yaml:"ENVIRONMENT"`
	APIHost     string `yaml:"API_HOST"`
	APIPort     string `yaml:"API_PORT"`
	AppURL      string `yaml:"APP_URL"`
	CORSOrigins string `yaml:"CORS_ORIGINS"`
	LogLevel    string `yaml:"LOG_LEVEL"`
	AccessLog   string `yaml:"ACCESS_LOG"`
	RateLimit   string `yaml:"RATE_LIMIT"`

	// Database configuration
	DBDriver   string `yaml:"DB_DRIVER"`
	DBPath     string `yaml:"DB_PATH"`
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// JWT
	JWTSecret            string `yaml:"JWT_SECRET"`
	JWTAccessExpireMin   string `yaml:"JWT_ACCESS_TOKEN_EXPIRE_MINUTES"`
	JWTRefreshExpireDays string `yaml:"JWT_REFRESH_TOKEN_EXPIRE_DAYS"`
	JWTVerifyExpireHours string `yaml:"JWT_VERIFY_TOKEN_EXPIRE_HOURS"`

	// Mailing configuration
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`

	// Midtrans configuration
	ClientKey    string `yaml:"CLIENT_KEY"`
	ServerKey    string `yaml:"SERVER_KEY"`
	IsProd       string `yaml:"IS_PROD"`
	PremiumPrice string `yaml:"PREMIUM_PRICE"`

	// Storage configuration
	StorageType    string `yaml:"STORAGE_TYPE"`
	StoragePath    string `yaml:"STORAGE_PATH"`
	AWSS3Bucket    string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region    string `yaml:"AWS_S3_REGION"`
	AWSS3Endpoint  string `yaml:"AWS_S3_ENDPOINT"`
	AWSS3PublicURL string `yaml:"AWS_S3_PUBLIC_URL"`
	AWSS3PathStyle string `yaml:"AWS_S3_PATH_STYLE"`
	AWSAccessKey   string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey   string `yaml:"AWS_SECRET_KEY"`

	// Redis scan cache (optional)
	RedisAddr     string `yaml:"REDIS_ADDR"`
	RedisPassword string `yaml:"REDIS_PASSWORD"`
	RedisDB       string `yaml:"REDIS_DB"`

	// Vision provider
	VisionProvider string `yaml:"VISION_PROVIDER"`
	GeminiAPIKey   string `yaml:"GEMINI_API_KEY"`
	GeminiModel    string `yaml:"GEMINI_MODEL"`

	// Scans
	FreeScanLimit string `yaml:"FREE_SCAN_LIMIT"`
	ScanWorkers   string `yaml:"SCAN_WORKERS"`
	ScanQueueSize string `yaml:"SCAN_QUEUE_SIZE"`
}

var (
	config     Config
	configOnce sync.Once
)

func defaultConfig() Config {
	return Config{
		Environment:          "development",
		APIHost:              "0.0.0.0",
		APIPort:              "8000",
		AppURL:               "http://localhost:8000",
		LogLevel:             "info",
		AccessLog:            "./logs/app.log",
		RateLimit:            "10",
		DBDriver:             "sqlite",
		DBPath:               "splay.db",
		DBPort:               "5432",
		JWTSecret:            "your-secret-key-change-in-production-splay-2024",
		JWTAccessExpireMin:   "15",
		JWTRefreshExpireDays: "7",
		JWTVerifyExpireHours: "24",
		PremiumPrice:         "99000",
		IsProd:               "false",
		StorageType:          "local",
		StoragePath:          "./storage",
		AWSS3PathStyle:       "false",
		RedisDB:              "0",
		VisionProvider:       "stub",
		GeminiModel:          "gemini-1.5-flash",
		FreeScanLimit:        "10",
		ScanWorkers:          "2",
		ScanQueueSize:        "64",
	}
}

// LoadConfig reads config.yaml (or $CONFIG_FILE) over the defaults; environment
// variables named like the yaml keys take precedence over both.
func LoadConfig() {
	configOnce.Do(func() {
		path := os.Getenv("CONFIG_FILE")
		if path == "" {
			path = "config.yaml"
		}
		cfg, err := ReadConfig(path)
		if err != nil {
			log.Printf("Error reading config file %s: %s\n", path, err)
		}
		config = cfg
	})
}

// ReadConfig builds a Config from defaults, the yaml file at path and the
// environment. A missing file is not an error.
func ReadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	var readErr error
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			readErr = err
		}
	case !os.IsNotExist(err):
		readErr = err
	}

	applyEnv(&cfg)
	return cfg, readErr
}

func applyEnv(cfg *Config) {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("yaml")
		if env, ok := os.LookupEnv(key); ok {
			v.Field(i).SetString(env)
		}
	}
}

// SetConfig replaces the loaded configuration. Used by tests and commands that
// build their Config explicitly.
func SetConfig(cfg Config) {
	configOnce.Do(func() {})
	config = cfg
}

func GetAppConfig() Config {
	LoadConfig()
	return config
}

func GetConfig(key string) string {
	LoadConfig()
	v := reflect.ValueOf(config)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("yaml") == key {
			return v.Field(i).String()
		}
	}
	return ""
}

func GetConfigInt(key string, fallback int) int {
	n, err := strconv.Atoi(GetConfig(key))
	if err != nil {
		return fallback
	}
	return n
}

func GetConfigBool(key string) bool {
	b, _ := strconv.ParseBool(GetConfig(key))
	return b
}

func IsDevelopment() bool {
	return GetConfig("ENVIRONMENT") == "development"
}
