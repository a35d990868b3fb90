package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Errors for config management
var (
	ErrOriginNotFound = errors.New("origin not found")
	ErrDuplicateKey   = errors.New("key already exists")
	ErrInvalidOrigin  = errors.New("invalid origin")
	ErrUnknownSetting = errors.New("unknown setting")
)

// ConfigManager provides CRUD operations for config entries
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// --- Allowed origin CRUD ---

// AddOrigin allows browser requests from origin
func (m *ConfigManager) AddOrigin(origin string) error {
	origin, err := normalizeOrigin(origin)
	if err != nil {
		return err
	}

	for _, existing := range m.config.Server.AllowedOrigins {
		if existing == origin {
			return fmt.Errorf("%w: origin %q", ErrDuplicateKey, origin)
		}
	}

	m.config.Server.AllowedOrigins = append(m.config.Server.AllowedOrigins, origin)
	return Save(m.config, m.configPath)
}

// ListOrigins returns the allowed origins in sorted order
func (m *ConfigManager) ListOrigins() []string {
	result := append([]string(nil), m.config.Server.AllowedOrigins...)
	sort.Strings(result)
	return result
}

// RemoveOrigin stops allowing browser requests from origin
func (m *ConfigManager) RemoveOrigin(origin string) error {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")

	origins := m.config.Server.AllowedOrigins
	for i, existing := range origins {
		if existing == origin {
			m.config.Server.AllowedOrigins = append(origins[:i:i], origins[i+1:]...)
			return Save(m.config, m.configPath)
		}
	}
	return fmt.Errorf("%w: %q", ErrOriginNotFound, origin)
}

// --- Scalar settings ---

// settings maps dotted keys to accessors on Config
var settings = map[string]struct {
	get func(*Config) string
	set func(*Config, string)
}{
	"google.transcripts_folder_id": {
		get: func(c *Config) string { return c.Google.TranscriptsFolderID },
		set: func(c *Config, v string) { c.Google.TranscriptsFolderID = v },
	},
	"google.credentials_file": {
		get: func(c *Config) string { return c.Google.CredentialsFile },
		set: func(c *Config, v string) { c.Google.CredentialsFile = v },
	},
	"google.token_file": {
		get: func(c *Config) string { return c.Google.TokenFile },
		set: func(c *Config, v string) { c.Google.TokenFile = v },
	},
	"whisper.model": {
		get: func(c *Config) string { return c.Whisper.Model },
		set: func(c *Config, v string) { c.Whisper.Model = v },
	},
	"whisper.device": {
		get: func(c *Config) string { return c.Whisper.Device },
		set: func(c *Config, v string) { c.Whisper.Device = v },
	},
	"audio.bitrate": {
		get: func(c *Config) string { return c.Audio.Bitrate },
		set: func(c *Config, v string) { c.Audio.Bitrate = v },
	},
	"paths.temp_directory": {
		get: func(c *Config) string { return c.Paths.TempDirectory },
		set: func(c *Config, v string) { c.Paths.TempDirectory = v },
	},
	"paths.output_directory": {
		get: func(c *Config) string { return c.Paths.OutputDirectory },
		set: func(c *Config, v string) { c.Paths.OutputDirectory = v },
	},
}

// SettingKeys lists the keys accepted by Get and Set
func SettingKeys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted setting key
func (m *ConfigManager) Get(key string) (string, error) {
	s, ok := settings[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	return s.get(m.config), nil
}

// Set updates a dotted setting key and saves the file
func (m *ConfigManager) Set(key, value string) error {
	s, ok := settings[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	s.set(m.config, strings.TrimSpace(value))
	return Save(m.config, m.configPath)
}

// normalizeOrigin validates an origin of the form scheme://host[:port]
func normalizeOrigin(origin string) (string, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Path != "" {
		return "", fmt.Errorf("%w: %q (expected scheme://host[:port])", ErrInvalidOrigin, origin)
	}
	return origin, nil
}
