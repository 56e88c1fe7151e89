package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/roach88/foodstand/internal/ledger"
)

const (
	defaultConfigPath        = "~/.config/foodstand/config.toml"
	defaultEnvFile           = ".env"
	defaultListen            = "127.0.0.1:8080"
	defaultKitchenPassphrase = "1234"
	defaultRefreshInterval   = 3 * time.Second
	defaultStatusTTL         = 3 * time.Second
	defaultPollInterval      = time.Second
)

// Remote holds the connection settings of the shared ledger. Only APIKey
// and DatabaseURL decide whether it is configured; the rest is carried for
// hosted backends that want them.
type Remote struct {
	APIKey            string
	AuthDomain        string
	DatabaseURL       string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string
}

// Config is the resolved configuration.
type Config struct {
	Remote Remote

	// Path is the document path inside the ledger.
	Path string

	// KitchenPassphrase gates kitchen operations. Plain text or a bcrypt
	// hash.
	KitchenPassphrase string

	Listen       string
	AllowOrigins []string

	RefreshInterval time.Duration
	StatusTTL       time.Duration
	PollInterval    time.Duration

	// Source is the config file that was read, empty when none existed.
	Source string
}

// Configured reports whether the remote ledger can be used.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.Remote.APIKey) != "" && strings.TrimSpace(c.Remote.DatabaseURL) != ""
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Path:              ledger.DefaultPath,
		KitchenPassphrase: defaultKitchenPassphrase,
		Listen:            defaultListen,
		RefreshInterval:   defaultRefreshInterval,
		StatusTTL:         defaultStatusTTL,
		PollInterval:      defaultPollInterval,
	}
}

type fileConfig struct {
	Path            string   `toml:"path"`
	Listen          string   `toml:"listen"`
	AllowOrigins    []string `toml:"allow_origins"`
	RefreshInterval string   `toml:"refresh_interval"`
	StatusTTL       string   `toml:"status_ttl"`
	PollInterval    string   `toml:"poll_interval"`

	Remote struct {
		APIKey            string `toml:"api_key"`
		AuthDomain        string `toml:"auth_domain"`
		DatabaseURL       string `toml:"database_url"`
		ProjectID         string `toml:"project_id"`
		StorageBucket     string `toml:"storage_bucket"`
		MessagingSenderID string `toml:"messaging_sender_id"`
		AppID             string `toml:"app_id"`
	} `toml:"remote"`

	Kitchen struct {
		Passphrase string `toml:"passphrase"`
	} `toml:"kitchen"`
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the config file at path (default
// ~/.config/foodstand/config.toml), then .env in the working directory,
// then the process environment.
func Load(path string) (Config, error) {
	return LoadFrom(path, defaultEnvFile, os.LookupEnv)
}

// LoadFrom is Load with an explicit .env file and environment. An empty
// envFile skips .env loading.
func LoadFrom(path, envFile string, lookup LookupFunc) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	raw, found, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if found {
		cfg.Source = resolved
		if err := raw.apply(&cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", resolved, err)
		}
	}

	dotenv, err := readEnvFile(envFile)
	if err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, chain(lookup, dotenv)); err != nil {
		return Config{}, err
	}

	cfg.Remote.DatabaseURL = expandDatabaseURL(cfg.Remote.DatabaseURL)
	return cfg, nil
}

func readFile(path string) (fileConfig, bool, error) {
	var raw fileConfig

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw, false, nil
		}
		return raw, false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return raw, false, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return raw, false, fmt.Errorf("parse config: %w", err)
	}
	return raw, true, nil
}

func (raw fileConfig) apply(cfg *Config) error {
	setString(&cfg.Path, raw.Path)
	setString(&cfg.Listen, raw.Listen)
	setString(&cfg.KitchenPassphrase, raw.Kitchen.Passphrase)

	for _, origin := range raw.AllowOrigins {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}

	setString(&cfg.Remote.APIKey, raw.Remote.APIKey)
	setString(&cfg.Remote.AuthDomain, raw.Remote.AuthDomain)
	setString(&cfg.Remote.DatabaseURL, raw.Remote.DatabaseURL)
	setString(&cfg.Remote.ProjectID, raw.Remote.ProjectID)
	setString(&cfg.Remote.StorageBucket, raw.Remote.StorageBucket)
	setString(&cfg.Remote.MessagingSenderID, raw.Remote.MessagingSenderID)
	setString(&cfg.Remote.AppID, raw.Remote.AppID)

	if err := setDuration(&cfg.RefreshInterval, "refresh_interval", raw.RefreshInterval); err != nil {
		return err
	}
	if err := setDuration(&cfg.StatusTTL, "status_ttl", raw.StatusTTL); err != nil {
		return err
	}
	return setDuration(&cfg.PollInterval, "poll_interval", raw.PollInterval)
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

// chain looks a key up in the real environment first, then in .env.
func chain(lookup LookupFunc, dotenv map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if lookup != nil {
			if v, ok := lookup(key); ok {
				return v, true
			}
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"FOODSTAND_API_KEY", &cfg.Remote.APIKey},
		{"FOODSTAND_AUTH_DOMAIN", &cfg.Remote.AuthDomain},
		{"FOODSTAND_DATABASE_URL", &cfg.Remote.DatabaseURL},
		{"FOODSTAND_PROJECT_ID", &cfg.Remote.ProjectID},
		{"FOODSTAND_STORAGE_BUCKET", &cfg.Remote.StorageBucket},
		{"FOODSTAND_MESSAGING_SENDER_ID", &cfg.Remote.MessagingSenderID},
		{"FOODSTAND_APP_ID", &cfg.Remote.AppID},
		{"FOODSTAND_PATH", &cfg.Path},
		{"FOODSTAND_KITCHEN_PASSPHRASE", &cfg.KitchenPassphrase},
		{"FOODSTAND_LISTEN", &cfg.Listen},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			setString(s.dst, v)
		}
	}

	if v, ok := lookup("FOODSTAND_ALLOW_ORIGINS"); ok {
		cfg.AllowOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if o := strings.TrimSpace(origin); o != "" {
				cfg.AllowOrigins = append(cfg.AllowOrigins, o)
			}
		}
	}

	durs := []struct {
		key string
		dst *time.Duration
	}{
		{"FOODSTAND_REFRESH_INTERVAL", &cfg.RefreshInterval},
		{"FOODSTAND_STATUS_TTL", &cfg.StatusTTL},
		{"FOODSTAND_POLL_INTERVAL", &cfg.PollInterval},
	}
	for _, d := range durs {
		if v, ok := lookup(d.key); ok {
			if err := setDuration(d.dst, d.key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if t := strings.TrimSpace(v); t != "" {
		*dst = t
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	t := strings.TrimSpace(v)
	if t == "" {
		return nil
	}
	d, err := time.ParseDuration(t)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", name, t)
	}
	*dst = d
	return nil
}

// expandDatabaseURL resolves a leading ~ in sqlite:// URLs.
func expandDatabaseURL(raw string) string {
	const prefix = "sqlite://"
	if !strings.HasPrefix(raw, prefix+"~") {
		return raw
	}
	return prefix + mustExpand(strings.TrimPrefix(raw, prefix))
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
