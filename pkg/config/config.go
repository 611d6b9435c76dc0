package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Cache         CacheConfig
	Passes        PassStorageConfig
	AppleWallet   AppleWalletConfig
	GoogleWallet  GoogleWalletConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig configures zap output. File enables a rotating sink next to stdout.
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// CacheConfig governs caching of pass query results.
type CacheConfig struct {
	Enabled  bool
	QueryTTL time.Duration
}

// PassStorageConfig controls where generated pass bundles and exports live.
type PassStorageConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	PublicBaseURL   string
}

// AppleWalletConfig holds PassKit identifiers and signing material locations.
type AppleWalletConfig struct {
	Enabled            bool
	PassTypeIdentifier string
	TeamIdentifier     string
	OrganizationName   string
	WWDRPath           string
	SignerCertPath     string
	SignerKeyPath      string
	SignerKeyPassword  string
	ImagesDir          string
	WebServiceURL      string
	TokenSecret        string
	APNsCertPath       string
	APNsCertPassword   string
	APNsProduction     bool
	BackgroundColor    string
	ForegroundColor    string
	LabelColor         string
}

// GoogleWalletConfig holds issuer details and service account credentials.
type GoogleWalletConfig struct {
	Enabled         bool
	IssuerID        string
	CredentialsPath string
	ClassSuffix     string
	Origin          string
	LogoURI         string
	HeroURI         string
	HexBackground   string
}

// NotificationsConfig sizes the notification worker pool.
type NotificationsConfig struct {
	Workers    int
	BufferSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		URL:          strings.TrimSpace(v.GetString("DATABASE_URL")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		URL:      strings.TrimSpace(v.GetString("REDIS_URL")),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:      v.GetString("LOG_LEVEL"),
		Format:     v.GetString("LOG_FORMAT"),
		File:       v.GetString("LOG_FILE"),
		MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
	}

	cfg.Cache = CacheConfig{
		Enabled:  v.GetBool("ENABLE_QUERY_CACHE"),
		QueryTTL: parseDuration(v.GetString("QUERY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Passes = PassStorageConfig{
		StorageDir:      v.GetString("PASSES_STORAGE_DIR"),
		SignedURLSecret: v.GetString("PASSES_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("PASSES_SIGNED_URL_TTL"), 24*time.Hour),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
	}

	cfg.AppleWallet = AppleWalletConfig{
		Enabled:            v.GetBool("ENABLE_APPLE_WALLET"),
		PassTypeIdentifier: v.GetString("APPLE_PASS_TYPE_IDENTIFIER"),
		TeamIdentifier:     v.GetString("APPLE_TEAM_IDENTIFIER"),
		OrganizationName:   v.GetString("APPLE_ORGANIZATION_NAME"),
		WWDRPath:           v.GetString("APPLE_WWDR_PATH"),
		SignerCertPath:     v.GetString("APPLE_SIGNER_CERT_PATH"),
		SignerKeyPath:      v.GetString("APPLE_SIGNER_KEY_PATH"),
		SignerKeyPassword:  v.GetString("APPLE_SIGNER_KEY_PASSWORD"),
		ImagesDir:          v.GetString("APPLE_IMAGES_DIR"),
		WebServiceURL:      v.GetString("APPLE_WEB_SERVICE_URL"),
		TokenSecret:        v.GetString("APPLE_TOKEN_SECRET"),
		APNsCertPath:       v.GetString("APPLE_APNS_CERT_PATH"),
		APNsCertPassword:   v.GetString("APPLE_APNS_CERT_PASSWORD"),
		APNsProduction:     v.GetBool("APPLE_APNS_PRODUCTION"),
		BackgroundColor:    v.GetString("APPLE_BACKGROUND_COLOR"),
		ForegroundColor:    v.GetString("APPLE_FOREGROUND_COLOR"),
		LabelColor:         v.GetString("APPLE_LABEL_COLOR"),
	}

	cfg.GoogleWallet = GoogleWalletConfig{
		Enabled:         v.GetBool("ENABLE_GOOGLE_WALLET"),
		IssuerID:        v.GetString("GOOGLE_WALLET_ISSUER_ID"),
		CredentialsPath: v.GetString("GOOGLE_WALLET_CREDENTIALS_PATH"),
		ClassSuffix:     v.GetString("GOOGLE_WALLET_CLASS_SUFFIX"),
		Origin:          v.GetString("GOOGLE_WALLET_ORIGIN"),
		LogoURI:         v.GetString("GOOGLE_WALLET_LOGO_URI"),
		HeroURI:         v.GetString("GOOGLE_WALLET_HERO_URI"),
		HexBackground:   v.GetString("GOOGLE_WALLET_HEX_BACKGROUND"),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFICATION_WORKERS"),
		BufferSize: v.GetInt("NOTIFICATION_BUFFER_SIZE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "unipass")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "unipass-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)

	v.SetDefault("ENABLE_QUERY_CACHE", false)
	v.SetDefault("QUERY_CACHE_TTL", "5m")

	v.SetDefault("PASSES_STORAGE_DIR", "./passes")
	v.SetDefault("PASSES_SIGNED_URL_SECRET", "dev_passes_secret")
	v.SetDefault("PASSES_SIGNED_URL_TTL", "24h")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("ENABLE_APPLE_WALLET", false)
	v.SetDefault("APPLE_ORGANIZATION_NAME", "Universidad")
	v.SetDefault("APPLE_IMAGES_DIR", "./assets/apple")
	v.SetDefault("APPLE_WEB_SERVICE_URL", "http://localhost:8080/wallet/apple")
	v.SetDefault("APPLE_TOKEN_SECRET", "dev_apple_token_secret")
	v.SetDefault("APPLE_APNS_PRODUCTION", false)
	v.SetDefault("APPLE_BACKGROUND_COLOR", "rgb(0, 51, 102)")
	v.SetDefault("APPLE_FOREGROUND_COLOR", "rgb(255, 255, 255)")
	v.SetDefault("APPLE_LABEL_COLOR", "rgb(204, 204, 204)")

	v.SetDefault("ENABLE_GOOGLE_WALLET", false)
	v.SetDefault("GOOGLE_WALLET_CLASS_SUFFIX", "student_pass")
	v.SetDefault("GOOGLE_WALLET_ORIGIN", "http://localhost:8080")
	v.SetDefault("GOOGLE_WALLET_HEX_BACKGROUND", "#003366")

	v.SetDefault("NOTIFICATION_WORKERS", 4)
	v.SetDefault("NOTIFICATION_BUFFER_SIZE", 256)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
