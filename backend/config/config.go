package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	ServerPort string
	LogMode    string

	// Session cookie
	AccessTokenTTL time.Duration
	CookieSecure   bool
	CORSOrigins    string // explicit origins only, "*" is rejected

	// PublicBaseURL is the origin used to build certificate verification links.
	PublicBaseURL string

	// Identity document uploads
	UploadDriver   string // local, minio
	UploadDir      string
	UploadMaxBytes int64
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Certificates
	CertLogoFile      string
	CertLogoURL       string
	CertDefaultRegion string
	ChromePath        string
	ChromeRemoteURL   string
	RenderTimeout     time.Duration
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "proficiency"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		JWTSecret:  getEnv("JWT_SECRET", "devsecret_change_me"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogMode:    getEnv("LOG_MODE", "development"),

		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		UploadDriver:   getEnv("UPLOAD_DRIVER", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "public/uploads"),
		UploadMaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "identity-documents"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		CertLogoFile:      getEnv("CERT_LOGO_FILE", "public/cert/logo.png"),
		CertLogoURL:       getEnv("CERT_LOGO_URL", ""),
		CertDefaultRegion: getEnv("CERT_DEFAULT_REGION", "European Union"),
		ChromePath:        getEnv("CHROME_PATH", ""),
		ChromeRemoteURL:   getEnv("CHROME_REMOTE_URL", ""),
		RenderTimeout:     getEnvDuration("RENDER_TIMEOUT", 30*time.Second),
	}

	if strings.Contains(cfg.CORSOrigins, "*") {
		return nil, errors.New("CORS_ORIGINS must list explicit origins, wildcard is not allowed with session cookies")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return i
}

func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid boolean for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return d
}
