package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for the configuration file
const DefaultPath = "config/config.yaml"

// Config represents the complete application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Tools   ToolsConfig   `yaml:"tools"`
	Audio   AudioConfig   `yaml:"audio"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Whisper WhisperConfig `yaml:"whisper"`
	Server  ServerConfig  `yaml:"server"`
	Google  GoogleConfig  `yaml:"google"`
}

// PathsConfig contains directory paths for temporary and exported files
type PathsConfig struct {
	TempDirectory   string        `yaml:"temp_directory"`
	OutputDirectory string        `yaml:"output_directory"`
	StaleAfter      time.Duration `yaml:"stale_after"`
}

// ToolsConfig contains the executables the pipeline shells out to
type ToolsConfig struct {
	YtDlp  string `yaml:"yt_dlp"`
	FFmpeg string `yaml:"ffmpeg"`
	Python string `yaml:"python"`
}

// AudioConfig contains audio extraction settings
type AudioConfig struct {
	Bitrate string `yaml:"bitrate"`
}

// FetchConfig contains media download settings
type FetchConfig struct {
	ExtractAudio  bool          `yaml:"extract_audio"`
	AudioQuality  string        `yaml:"audio_quality"`
	SocketTimeout time.Duration `yaml:"socket_timeout"`
	Retries       int           `yaml:"retries"`
	UserAgent     string        `yaml:"user_agent,omitempty"`
}

// WhisperConfig contains speech engine settings
type WhisperConfig struct {
	Model        string `yaml:"model"`
	Device       string `yaml:"device"`
	ComputeType  string `yaml:"compute_type"`
	BeamSize     int    `yaml:"beam_size"`
	MinSilenceMS int    `yaml:"min_silence_ms"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	JobTimeout     time.Duration `yaml:"job_timeout"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile     string `yaml:"credentials_file"`
	TokenFile           string `yaml:"token_file"`
	TranscriptsFolderID string `yaml:"transcripts_folder_id"`
	KeepTranscripts     int    `yaml:"keep_transcripts"`
}

// Errors returned by Validate
var (
	ErrInvalidPort     = errors.New("server port must be between 1 and 65535")
	ErrInvalidBeamSize = errors.New("whisper beam size must be positive")
	ErrNegativeTimeout = errors.New("timeouts must not be negative")
)

// Default returns a configuration with every value set to its default
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset value
func (c *Config) ApplyDefaults() {
	if c.Paths.TempDirectory == "" {
		c.Paths.TempDirectory = filepath.Join(os.TempDir(), "clipscribe")
	}
	if c.Paths.OutputDirectory == "" {
		c.Paths.OutputDirectory = "transcripts"
	}
	if c.Paths.StaleAfter == 0 {
		c.Paths.StaleAfter = 24 * time.Hour
	}

	if c.Tools.YtDlp == "" {
		c.Tools.YtDlp = "yt-dlp"
	}
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	if c.Tools.Python == "" {
		c.Tools.Python = "python3"
	}

	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = "128k"
	}

	if c.Fetch.AudioQuality == "" {
		c.Fetch.AudioQuality = "192K"
	}
	if c.Fetch.SocketTimeout == 0 {
		c.Fetch.SocketTimeout = 30 * time.Second
	}

	if c.Whisper.Model == "" {
		c.Whisper.Model = "base"
	}
	if c.Whisper.Device == "" {
		c.Whisper.Device = "cpu"
	}
	if c.Whisper.ComputeType == "" {
		c.Whisper.ComputeType = "int8"
	}
	if c.Whisper.BeamSize == 0 {
		c.Whisper.BeamSize = 5
	}
	if c.Whisper.MinSilenceMS == 0 {
		c.Whisper.MinSilenceMS = 500
	}

	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.AllowedOrigins == nil {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}

	if c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = "credentials.json"
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = "token.json"
	}
}

// Validate reports the first invalid value
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, c.Server.Port)
	}
	if c.Whisper.BeamSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBeamSize, c.Whisper.BeamSize)
	}
	if c.Server.JobTimeout < 0 || c.Fetch.SocketTimeout < 0 || c.Paths.StaleAfter < 0 {
		return ErrNegativeTimeout
	}
	return nil
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
