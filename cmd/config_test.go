package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"clipscribe/infrastructure/config"
)

func TestConfigOriginsCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Default()

	out := &bytes.Buffer{}
	if err := RunConfigOriginsAddWithDependencies(cfg, path, "https://app.example.com", out); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := RunConfigOriginsAddWithDependencies(cfg, path, "https://app.example.com", out); !errors.Is(err, config.ErrDuplicateKey) {
		t.Errorf("duplicate add err = %v", err)
	}
	if err := RunConfigOriginsAddWithDependencies(cfg, path, "app.example.com", out); !errors.Is(err, config.ErrInvalidOrigin) {
		t.Errorf("invalid add err = %v", err)
	}

	saved, err := config.Load(path)
	if err != nil {
		t.Fatalf("config not saved: %v", err)
	}

	out.Reset()
	if err := RunConfigOriginsListWithDependencies(saved, path, out); err != nil {
		t.Fatal(err)
	}
	want := "http://localhost:5173\nhttps://app.example.com\n"
	if out.String() != want {
		t.Errorf("list = %q, want %q", out.String(), want)
	}

	if err := RunConfigOriginsRemoveWithDependencies(saved, path, "http://localhost:5173", &bytes.Buffer{}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := RunConfigOriginsRemoveWithDependencies(saved, path, "http://localhost:5173", &bytes.Buffer{}); !errors.Is(err, config.ErrOriginNotFound) {
		t.Errorf("second remove err = %v", err)
	}
}

func TestConfigSettingsCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Default()

	if err := RunConfigSetWithDependencies(cfg, path, "whisper.model", "medium", &bytes.Buffer{}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	out := &bytes.Buffer{}
	if err := RunConfigGetWithDependencies(cfg, path, "whisper.model", out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "medium\n" {
		t.Errorf("get = %q", out.String())
	}

	if err := RunConfigGetWithDependencies(cfg, path, "email.from", &bytes.Buffer{}); !errors.Is(err, config.ErrUnknownSetting) {
		t.Errorf("unknown key err = %v", err)
	}
}
