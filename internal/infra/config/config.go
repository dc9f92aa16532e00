package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	HashArgon2id = "argon2id"
	HashBcrypt   = "bcrypt"

	MediaS3    = "s3"
	MediaMinio = "minio"
	MediaLocal = "local"
)

type Config struct {
	HTTPAddress      string
	MetricsAddress   string
	HTTPSCertFile    string
	HTTPSKeyFile     string
	CookieDomain     string
	CookieSecure     bool
	AllowedOrigins   []string
	AllowCredentials bool
	UploadDir        string
	RateLimit        int
	RateBurst        int
	ShutdownTimeout  time.Duration

	LogLevel string

	DatabaseDriver string
	DatabaseURL    string
	MongoURI       string
	MongoDatabase  string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	Issuer            string
	Audience          string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration

	PasswordAlgorithm string
	PasswordPepper    string

	Media MediaConfig
}

type MediaConfig struct {
	Driver        string
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
	Prefix        string
	LocalDir      string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("METRICS_ADDRESS", "")
	v.SetDefault("HTTPS_CERT_FILE", "")
	v.SetDefault("HTTPS_KEY_FILE", "")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ALLOW_CREDENTIALS", true)
	v.SetDefault("UPLOAD_DIR", filepath.Join(os.TempDir(), "video-service-uploads"))
	v.SetDefault("RATE_LIMIT", 50)
	v.SetDefault("RATE_BURST", 100)
	v.SetDefault("SHUTDOWN_TIMEOUT", "5s")

	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "videohub")

	v.SetDefault("REDIS_ADDRESS", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_PRIVATE_KEY_PATH", "")
	v.SetDefault("JWT_PUBLIC_KEY_PATH", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "240h")

	v.SetDefault("PASSWORD_ALGORITHM", HashArgon2id)
	v.SetDefault("PASSWORD_PEPPER", "")

	v.SetDefault("MEDIA_DRIVER", MediaLocal)
	v.SetDefault("MEDIA_BUCKET", "")
	v.SetDefault("MEDIA_REGION", "us-east-1")
	v.SetDefault("MEDIA_ENDPOINT", "")
	v.SetDefault("MEDIA_ACCESS_KEY", "")
	v.SetDefault("MEDIA_SECRET_KEY", "")
	v.SetDefault("MEDIA_USE_SSL", true)
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "")
	v.SetDefault("MEDIA_PREFIX", "")
	v.SetDefault("MEDIA_LOCAL_DIR", "./public/media")
}

// Load reads config.yaml from the working directory or ./configs (optional)
// and lets environment variables override every key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddress:      v.GetString("HTTP_ADDRESS"),
		MetricsAddress:   v.GetString("METRICS_ADDRESS"),
		HTTPSCertFile:    v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:     v.GetString("HTTPS_KEY_FILE"),
		CookieDomain:     v.GetString("COOKIE_DOMAIN"),
		CookieSecure:     v.GetBool("COOKIE_SECURE"),
		AllowedOrigins:   stringList(v.Get("ALLOWED_ORIGINS")),
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),
		UploadDir:        v.GetString("UPLOAD_DIR"),
		RateLimit:        v.GetInt("RATE_LIMIT"),
		RateBurst:        v.GetInt("RATE_BURST"),
		ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),

		LogLevel: v.GetString("LOG_LEVEL"),

		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),

		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		JWTPrivateKeyPath: v.GetString("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  v.GetString("JWT_PUBLIC_KEY_PATH"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Audience:          v.GetString("JWT_AUDIENCE"),
		AccessTokenTTL:    v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:   v.GetDuration("REFRESH_TOKEN_TTL"),

		PasswordAlgorithm: strings.ToLower(v.GetString("PASSWORD_ALGORITHM")),
		PasswordPepper:    v.GetString("PASSWORD_PEPPER"),

		Media: MediaConfig{
			Driver:        strings.ToLower(v.GetString("MEDIA_DRIVER")),
			Bucket:        v.GetString("MEDIA_BUCKET"),
			Region:        v.GetString("MEDIA_REGION"),
			Endpoint:      v.GetString("MEDIA_ENDPOINT"),
			AccessKey:     v.GetString("MEDIA_ACCESS_KEY"),
			SecretKey:     v.GetString("MEDIA_SECRET_KEY"),
			UseSSL:        v.GetBool("MEDIA_USE_SSL"),
			PublicBaseURL: v.GetString("MEDIA_PUBLIC_BASE_URL"),
			Prefix:        v.GetString("MEDIA_PREFIX"),
			LocalDir:      v.GetString("MEDIA_LOCAL_DIR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	required := map[string]string{
		"JWT_PRIVATE_KEY_PATH": c.JWTPrivateKeyPath,
		"JWT_PUBLIC_KEY_PATH":  c.JWTPublicKeyPath,
		"JWT_ISSUER":           c.Issuer,
		"JWT_AUDIENCE":         c.Audience,
	}
	switch c.DatabaseDriver {
	case DriverPostgres:
		required["DATABASE_URL"] = c.DatabaseURL
	case DriverMongo:
		required["MONGO_URI"] = c.MongoURI
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.Media.Driver {
	case MediaS3:
		required["MEDIA_BUCKET"] = c.Media.Bucket
	case MediaMinio:
		required["MEDIA_BUCKET"] = c.Media.Bucket
		required["MEDIA_ENDPOINT"] = c.Media.Endpoint
	case MediaLocal:
		required["MEDIA_LOCAL_DIR"] = c.Media.LocalDir
	default:
		return fmt.Errorf("unsupported MEDIA_DRIVER %q", c.Media.Driver)
	}
	if c.PasswordAlgorithm != HashArgon2id && c.PasswordAlgorithm != HashBcrypt {
		return fmt.Errorf("unsupported PASSWORD_ALGORITHM %q", c.PasswordAlgorithm)
	}

	var missing []string
	for k, val := range required {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// stringList accepts a YAML list, a JSON array string or a comma separated string.
func stringList(raw any) []string {
	var out []string
	switch val := raw.(type) {
	case nil:
	case []string:
		out = val
	case []any:
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
	case string:
		s := strings.TrimSpace(val)
		if strings.HasPrefix(s, "[") {
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				break
			}
		}
		out = strings.Split(s, ",")
	}

	res := make([]string, 0, len(out))
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}
