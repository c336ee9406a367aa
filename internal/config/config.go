package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Upload UploadConfig `mapstructure:"upload"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port string    `mapstructure:"port"`
	TLS  TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
// Driver is either "sqlite" or "mysql". MySQL DSNs need parseTime=true.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig holds token and account policy settings.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	// MaxAdmins caps the number of administrator accounts. Zero means unlimited.
	MaxAdmins int `mapstructure:"max_admins"`
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	Dir             string   `mapstructure:"dir"`
	MaxSize         int64    `mapstructure:"max_size"`
	MaxPhotoSize    int64    `mapstructure:"max_photo_size"`
	MaxVideoSize    int64    `mapstructure:"max_video_size"`
	PhotoExtensions []string `mapstructure:"photo_extensions"`
	VideoExtensions []string `mapstructure:"video_extensions"`
	ThumbnailSize   int      `mapstructure:"thumbnail_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// DefaultSecret is the placeholder signing secret; the server refuses to start with it.
const DefaultSecret = "CHANGE_ME_IN_PRODUCTION_SECRET!!"

// LoadConfig reads configuration from a .env file, a config file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "site.db")
	v.SetDefault("auth.jwt_secret", DefaultSecret)
	v.SetDefault("auth.issuer", "agrisite-api")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.max_admins", 1)
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_size", 16<<20)
	v.SetDefault("upload.max_photo_size", 5<<20)
	v.SetDefault("upload.max_video_size", 50<<20)
	v.SetDefault("upload.photo_extensions", []string{"png", "jpg", "jpeg", "gif"})
	v.SetDefault("upload.video_extensions", []string{"mp4", "avi", "mov", "mkv"})
	v.SetDefault("upload.thumbnail_size", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/agrisite-api/")
	v.AddConfigPath("$HOME/.agrisite-api")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	v.SetEnvPrefix("AGRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
