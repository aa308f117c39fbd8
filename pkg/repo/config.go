package repo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config stores repository-local settings from .fit/config.toml.
type Config struct {
	User   UserConfig   `toml:"user"`
	Commit CommitConfig `toml:"commit"`
}

// UserConfig is the [user] table: the identity recorded in commits and
// annotated tags.
type UserConfig struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// CommitConfig is the [commit] table. When Sign is true every commit is
// signed with the SSH key at SigningKey.
type CommitConfig struct {
	Sign       bool   `toml:"sign,omitempty"`
	SigningKey string `toml:"signing_key,omitempty"`
}

func (r *Repo) configPath() string {
	return filepath.Join(r.FitDir, "config.toml")
}

// ReadConfig reads .fit/config.toml. A missing file is an empty config.
func (r *Repo) ReadConfig() (*Config, error) {
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("read config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// WriteConfig atomically writes .fit/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: marshal: %w", err)
	}

	if err := writeFileAtomic(r.configPath(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ConfigGet returns the value for a dotted key. Unset string values
// return "", unset booleans "false".
func (r *Repo) ConfigGet(key string) (string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	switch key {
	case "user.name":
		return cfg.User.Name, nil
	case "user.email":
		return cfg.User.Email, nil
	case "commit.sign":
		return strconv.FormatBool(cfg.Commit.Sign), nil
	case "commit.signing_key":
		return cfg.Commit.SigningKey, nil
	default:
		return "", fmt.Errorf("config: unknown key %q (valid: user.name, user.email, commit.sign, commit.signing_key)", key)
	}
}

// ConfigSet updates a dotted key and rewrites the config file.
func (r *Repo) ConfigSet(key, value string) error {
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	switch key {
	case "user.name":
		cfg.User.Name = value
	case "user.email":
		cfg.User.Email = value
	case "commit.sign":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: commit.sign wants true or false, got %q", value)
		}
		cfg.Commit.Sign = b
	case "commit.signing_key":
		cfg.Commit.SigningKey = value
	default:
		return fmt.Errorf("config: unknown key %q (valid: user.name, user.email, commit.sign, commit.signing_key)", key)
	}
	return r.WriteConfig(cfg)
}

// DefaultAuthor builds the commit author string from config, falling back
// to the USER environment variable, then to "unknown".
func (r *Repo) DefaultAuthor() string {
	cfg, err := r.ReadConfig()
	if err == nil && strings.TrimSpace(cfg.User.Name) != "" {
		name := strings.TrimSpace(cfg.User.Name)
		if email := strings.TrimSpace(cfg.User.Email); email != "" {
			return fmt.Sprintf("%s <%s>", name, email)
		}
		return name
	}
	if u := strings.TrimSpace(os.Getenv("USER")); u != "" {
		return u
	}
	return "unknown"
}
