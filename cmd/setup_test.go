package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"clipscribe/infrastructure/config"
)

// mockPrompter answers prompts by message prefix
type mockPrompter struct {
	inputs   map[string]string
	confirms map[string]bool
	selects  map[string]string
	failOn   string
}

func (m *mockPrompter) lookup(message string) (string, bool) {
	for prefix, v := range m.inputs {
		if strings.HasPrefix(message, prefix) {
			return v, true
		}
	}
	return "", false
}

func (m *mockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.failOn != "" && strings.HasPrefix(message, m.failOn) {
		return "", errors.New("interrupt")
	}
	if v, ok := m.lookup(message); ok {
		return v, nil
	}
	return defaultValue, nil
}

func (m *mockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	for prefix, v := range m.confirms {
		if strings.HasPrefix(message, prefix) {
			return v, nil
		}
	}
	return defaultValue, nil
}

func (m *mockPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	for prefix, v := range m.selects {
		if strings.HasPrefix(message, prefix) {
			return v, nil
		}
	}
	return defaultValue, nil
}

func TestRunSetup_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.yaml")
	prompter := &mockPrompter{
		inputs: map[string]string{
			"Where should temporary downloads go?": "/tmp/clips",
			"Where should exported transcripts be": "/srv/transcripts",
			"Port for":                             "8080",
			"Google Drive folder ID":               "folder-123",
			"How many transcripts to keep":         "20",
		},
		confirms: map[string]bool{"Publish transcripts to Google Drive?": true},
		selects:  map[string]string{"Whisper model": "small"},
	}

	out := &bytes.Buffer{}
	if err := RunSetupWithPrompter(prompter, path, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if cfg.Paths.TempDirectory != "/tmp/clips" || cfg.Paths.OutputDirectory != "/srv/transcripts" {
		t.Errorf("unexpected paths: %+v", cfg.Paths)
	}
	if cfg.Whisper.Model != "small" {
		t.Errorf("Whisper.Model = %q, want small", cfg.Whisper.Model)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Google.TranscriptsFolderID != "folder-123" || cfg.Google.KeepTranscripts != 20 {
		t.Errorf("unexpected google config: %+v", cfg.Google)
	}
	if cfg.Audio.Bitrate != "128k" {
		t.Errorf("Audio.Bitrate = %q, want default 128k", cfg.Audio.Bitrate)
	}
	if !strings.Contains(out.String(), "Configuration saved to") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRunSetup_ExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	existing := config.Default()
	existing.Server.AllowedOrigins = []string{"https://app.example.com"}
	if err := config.Save(existing, path); err != nil {
		t.Fatal(err)
	}

	t.Run("declined", func(t *testing.T) {
		out := &bytes.Buffer{}
		prompter := &mockPrompter{confirms: map[string]bool{"config.yaml already exists": false}}
		if err := RunSetupWithPrompter(prompter, path, out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Setup cancelled.") {
			t.Errorf("unexpected output: %q", out.String())
		}
	})

	t.Run("overwrite keeps origins", func(t *testing.T) {
		prompter := &mockPrompter{confirms: map[string]bool{"config.yaml already exists": true}}
		if err := RunSetupWithPrompter(prompter, path, &bytes.Buffer{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
			t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
		}
	})
}

func TestRunSetup_Errors(t *testing.T) {
	tests := []struct {
		name     string
		prompter *mockPrompter
		wantErr  string
	}{
		{
			name:     "cancelled",
			prompter: &mockPrompter{failOn: "Where should temporary downloads go?"},
			wantErr:  "prompt cancelled",
		},
		{
			name:     "empty temp dir",
			prompter: &mockPrompter{inputs: map[string]string{"Where should temporary downloads go?": ""}},
			wantErr:  "temporary directory is required",
		},
		{
			name:     "bad port",
			prompter: &mockPrompter{inputs: map[string]string{"Port for": "http"}},
			wantErr:  "port must be a number",
		},
		{
			name: "drive without folder",
			prompter: &mockPrompter{
				confirms: map[string]bool{"Publish transcripts to Google Drive?": true},
				inputs:   map[string]string{"Google Drive folder ID": ""},
			},
			wantErr: "folder ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			err := RunSetupWithPrompter(tt.prompter, path, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
