package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	secretService      = "jobtrack"
	secretAPIToken     = "api_token"
	apiTokenEnv        = "JOBTRACK_API_TOKEN"
	defaultMaxPageSize = 100
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Jobs    JobsConfig
	Client  ClientConfig
}

type ServerConfig struct {
	Port       int
	MCPEnabled bool
	APIToken   string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type JobsConfig struct {
	// MaxPageSize caps the page size of list requests. Zero disables the cap.
	MaxPageSize int
}

type ClientConfig struct {
	// OwnerID is the identity the CLI sends with every request.
	OwnerID string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:       4100,
			MCPEnabled: false,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Jobs: JobsConfig{
			MaxPageSize: defaultMaxPageSize,
		},
		Client: ClientConfig{
			OwnerID: defaultOwnerID(),
		},
	}
}

func defaultOwnerID() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

// Load reads configuration from a .env file in the working directory, the
// platform-native backend, environment variables and the platform secret
// store, in that order of increasing precedence for backend and env values.
//
// On macOS the backend is UserDefaults (domain: com.jobtrack.app) and secrets
// live in the macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/jobtrack/config.json
// and secrets live in $XDG_DATA_HOME/jobtrack/secrets.json.
//
// Variables from .env never replace variables already set in the process
// environment. Environment variables (JOBTRACK_*) override backend values on
// all platforms.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return loadWith(newPlatformBackend(), NewKeychain())
}

func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Keychain abstracts platform secret storage for testing.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

func loadWith(b ConfigBackend, kc Keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.APIToken == "" {
		if tok, err := kc.Get(secretService, secretAPIToken); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Jobs.MaxPageSize < 0 {
		return Config{}, fmt.Errorf("invalid jobs.max_page_size %d: must not be negative", cfg.Jobs.MaxPageSize)
	}

	return cfg, nil
}

// GetAPIToken returns the bearer token guarding the HTTP API. The
// environment wins over the secret store; when neither holds a token a new
// one is generated and persisted.
func GetAPIToken(kc Keychain) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(apiTokenEnv)); tok != "" {
		return tok, nil
	}
	if tok, err := kc.Get(secretService, secretAPIToken); err == nil && tok != "" {
		return tok, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := kc.Set(secretService, secretAPIToken, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}

// NewKeychain returns the platform secret store.
func NewKeychain() Keychain {
	return platformKeychain{}
}

type platformKeychain struct{}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
