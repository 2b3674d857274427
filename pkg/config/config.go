package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Settings keys. The file keeps the flat .env naming the tool has always used,
// so an existing .env written by hand keeps working.
const (
	KeyBaseURL      = "MD_BASE_URL"
	KeyAuthURL      = "MD_AUTH_URL"
	KeyUsername     = "MD_USER_NAME"
	KeyPassword     = "MD_USER_PASSWORD"
	KeyClientID     = "MD_CLIENT_ID"
	KeyClientSecret = "MD_CLIENT_SECRET"
	KeyAccessToken  = "MD_ACCESS_TOKEN"
	KeyRefreshToken = "MD_REFRESH_TOKEN"
	KeyTokenExpiry  = "MD_TOKEN_EXPIRY"
	KeyLogLevel     = "LOG_LEVEL"
	KeyDBPath       = "DB_PATH"
)

const defaultAuthURL = "https://auth.mangadex.org/realms/mangadex/protocol/openid-connect/token"

// Store is a persistent key-value settings store. Components that mutate
// settings (token persistence, mainly) get one injected instead of touching
// process environment or files directly.
type Store interface {
	Get(key string) string
	Set(key, value string)
	Save() error
}

// FileStore is a Store backed by a dotenv-style file, loaded through Viper.
// Environment variables override file values on read.
type FileStore struct {
	v    *viper.Viper
	path string
}

// NewFileStore loads settings from the given .env file. A missing file is not
// an error; it will be created on the first Save.
func NewFileStore(path string) (*FileStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault(KeyBaseURL, "https://api.mangadex.org")
	v.SetDefault(KeyAuthURL, defaultAuthURL)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDBPath, "mdsync.db")

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, err
		}
	}

	return &FileStore{v: v, path: path}, nil
}

func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// With an explicit SetConfigFile, a missing file surfaces as a plain
	// filesystem error instead of ConfigFileNotFoundError.
	return errors.Is(err, fs.ErrNotExist)
}

func (s *FileStore) Get(key string) string {
	return s.v.GetString(key)
}

func (s *FileStore) Set(key, value string) {
	s.v.Set(key, value)
}

// Save writes the current settings back to the .env file.
func (s *FileStore) Save() error {
	return s.v.WriteConfigAs(s.path)
}

// Config is the immutable startup snapshot of the settings that never change
// during a run. Token fields stay in the Store since they are rewritten on
// every refresh.
type Config struct {
	BaseURL      string
	AuthURL      string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	LogLevel     string
	DBPath       string
}

// Load builds a Config snapshot from the store.
func Load(store Store) *Config {
	return &Config{
		BaseURL:      store.Get(KeyBaseURL),
		AuthURL:      store.Get(KeyAuthURL),
		Username:     store.Get(KeyUsername),
		Password:     store.Get(KeyPassword),
		ClientID:     store.Get(KeyClientID),
		ClientSecret: store.Get(KeyClientSecret),
		LogLevel:     store.Get(KeyLogLevel),
		DBPath:       store.Get(KeyDBPath),
	}
}

// SlogLevel maps the LOG_LEVEL setting onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
