package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fabrica-cultura/senhas/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Storage.Driver != DefaultDriver || cfg.Storage.DSN != DefaultDSN {
		t.Errorf("Storage = %+v, want sqlite on %s", cfg.Storage, DefaultDSN)
	}
	if cfg.Bus.Channel != DefaultChannel {
		t.Errorf("Bus.Channel = %q", cfg.Bus.Channel)
	}
	if cfg.Logo.Backend != LogoDataURL {
		t.Errorf("Logo.Backend = %q, want dataurl", cfg.Logo.Backend)
	}
	if cfg.Dwell() != 4*time.Second {
		t.Errorf("Dwell() = %v, want 4s", cfg.Dwell())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("Expected error for missing config")
	}
	var pe *errors.PanelError
	if !errors.As(err, &pe) || pe.Code != "E160" {
		t.Errorf("missing config error = %v, want E160", err)
	}

	configJSON := `{
  // device in the lobby
  "name": "recepcao",
  "server": {"host": "0.0.0.0", "port": 9000},
  "storage": {"driver": "memory"},
  "alert": {"dwell": "2500ms"},
  "log": {"level": "debug", "format": "json",},
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Name != "recepcao" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Address() != "0.0.0.0:9000" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("Storage.Driver = %q", cfg.Storage.Driver)
	}
	if cfg.Storage.DSN != "" {
		t.Errorf("memory driver got DSN %q", cfg.Storage.DSN)
	}
	if cfg.Dwell() != 2500*time.Millisecond {
		t.Errorf("Dwell() = %v", cfg.Dwell())
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
	// Unset sections take defaults.
	if cfg.Bus.Channel != DefaultChannel {
		t.Errorf("Bus.Channel = %q", cfg.Bus.Channel)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(`{"server": `), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("Expected parse error")
	}
	if !strings.Contains(err.Error(), "E161") {
		t.Errorf("error = %v, want E161", err)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Server.Port = 7000
	cfg.Storage.Driver = DriverRedis

	if err := cfg.Save(); err == nil {
		t.Error("Save without a path should fail")
	}

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q", cfg.Path())
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 7000 || loaded.Storage.Driver != DriverRedis {
		t.Errorf("reloaded = %+v", loaded)
	}

	loaded.Name = "painel"
	if err := loaded.Save(); err != nil {
		t.Fatal(err)
	}
	again, _ := LoadFile(path)
	if again.Name != "painel" {
		t.Errorf("Name after Save = %q", again.Name)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "E162"},
		{"driver", func(c *Config) { c.Storage.Driver = "mongo" }, "E102"},
		{"mysql dsn", func(c *Config) { c.Storage.Driver = DriverMySQL; c.Storage.DSN = "" }, "E162"},
		{"s3 bucket", func(c *Config) { c.Logo.Backend = LogoS3 }, "E162"},
		{"logo backend", func(c *Config) { c.Logo.Backend = "ftp" }, "E162"},
		{"dwell", func(c *Config) { c.Alert.Dwell = "soon" }, "E162"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "E162"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			var pe *errors.PanelError
			if !errors.As(err, &pe) {
				t.Fatalf("Validate() = %v, want a PanelError", err)
			}
			if pe.Code != tt.code {
				t.Errorf("code = %s, want %s", pe.Code, tt.code)
			}
		})
	}
}

func TestURL(t *testing.T) {
	cfg := New()
	if cfg.URL() != "http://localhost:8080" {
		t.Errorf("URL() = %q", cfg.URL())
	}
	cfg.Server.PublicURL = "http://painel.local"
	if cfg.URL() != "http://painel.local" {
		t.Errorf("URL() = %q", cfg.URL())
	}
}

func TestPaths(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.configPath = filepath.Join(tmpDir, ConfigFileName)

	if got, want := cfg.SQLitePath(), filepath.Join(tmpDir, DefaultDSN); got != want {
		t.Errorf("SQLitePath() = %q, want %q", got, want)
	}
	cfg.Storage.DSN = ":memory:"
	if cfg.SQLitePath() != ":memory:" {
		t.Errorf("SQLitePath() = %q", cfg.SQLitePath())
	}
	if got, want := cfg.LogoDir(), filepath.Join(tmpDir, "logos"); got != want {
		t.Errorf("LogoDir() = %q, want %q", got, want)
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := FindProjectRoot(nested); err == nil {
		t.Error("Expected error without senhas.json")
	}

	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if root != tmpDir {
		t.Errorf("FindProjectRoot = %q, want %q", root, tmpDir)
	}
	if !Exists(tmpDir) || Exists(nested) {
		t.Error("Exists reports the wrong directories")
	}
}
