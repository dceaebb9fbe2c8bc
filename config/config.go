// Package config loads settings from a .env file, a json5 config file with an
// optional .local override, and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"

	"najdisi-sms/client"
	"najdisi-sms/validate"
)

const DefaultPath = "najdisi.json5"

type Recipient struct {
	AreaCode    string `json:"area_code"`
	PhoneNumber string `json:"phone_number"`
	Text        string `json:"text"`
}

type Config struct {
	User     string `json:"user"`
	Password string `json:"password"`

	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	RememberMe     bool   `json:"remember_me"`

	UserAgent     string `json:"user_agent"`
	UserAgentFile string `json:"user_agent_file"`
	Proxy         string `json:"proxy"`
	ProxyFile     string `json:"proxy_file"`
	Fingerprint   bool   `json:"fingerprint"`

	// HistoryFile receives one JSON line per send attempt when set.
	HistoryFile string `json:"history_file"`

	Recipient Recipient `json:"recipient"`
}

// Load reads envFile (".env" when empty) into the environment, then the
// config file at path, then applies environment overrides. Missing files are
// not an error.
func Load(path, envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	vars := map[string]*string{
		"NAJDISI_USER":            &c.User,
		"NAJDISI_PASSWORD":        &c.Password,
		"NAJDISI_BASE_URL":        &c.BaseURL,
		"NAJDISI_PROXY":           &c.Proxy,
		"NAJDISI_PROXY_FILE":      &c.ProxyFile,
		"NAJDISI_USER_AGENT_FILE": &c.UserAgentFile,
		"NAJDISI_HISTORY_FILE":    &c.HistoryFile,
		"RECIPIENT_AREA_CODE":     &c.Recipient.AreaCode,
		"RECIPIENT_PHONE_NUMBER":  &c.Recipient.PhoneNumber,
		"SMS_TEXT":                &c.Recipient.Text,
	}
	for key, field := range vars {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("NAJDISI_TIMEOUT_SECONDS"); ok {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("NAJDISI_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		c.TimeoutSeconds = seconds
	}
	return nil
}

// ValidateCredentials checks that a user and password are configured. It is
// separate from Load since the twin and anonymous commands need neither.
func (c Config) ValidateCredentials() error {
	if c.User == "" {
		return errors.New("NAJDISI_USER must be set")
	}
	if c.Password == "" {
		return errors.New("NAJDISI_PASSWORD must be set")
	}
	return validate.Credentials(c.User, c.Password)
}

func (c Config) Credentials() client.Credentials {
	return client.Credentials{Username: c.User, Password: c.Password}
}

func (c Config) SmsRequest() client.SmsRequest {
	return client.SmsRequest{
		AreaCode:    c.Recipient.AreaCode,
		PhoneNumber: c.Recipient.PhoneNumber,
		Text:        c.Recipient.Text,
	}
}

func (c Config) ClientOptions() client.Options {
	return client.Options{
		BaseURL:       c.BaseURL,
		Timeout:       time.Duration(c.TimeoutSeconds) * time.Second,
		UserAgent:     c.UserAgent,
		UserAgentFile: c.UserAgentFile,
		ProxyURL:      c.Proxy,
		ProxyFile:     c.ProxyFile,
		Fingerprint:   c.Fingerprint,
	}
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	if ext == "" {
		return f, ""
	}
	return f[:len(f)-len(ext)], ext[1:]
}

// ReadConfig reads the json5 file name and merges <name>.local.<ext> over it.
// It returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	data, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}
		found = true
	}

	prefix, ext := splitExt(filepath.Base(name))
	localName := filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
	localData, err := os.ReadFile(localName)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localData) > 0 {
		var override T
		if err := json5.Unmarshal(localData, &override); err != nil {
			return out, fmt.Errorf("%s: %w", localName, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Debug("merged config with local overrides", "local", localName)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}
