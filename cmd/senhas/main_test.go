package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fabrica-cultura/senhas/internal/config"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
)

// writeConfig creates a senhas.json backed by a SQLite file in a temp dir.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	data := `{
		// panel used by the CLI tests
		"storage": {"driver": "sqlite", "dsn": "panel.db"},
		"log": {"level": "error"},
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readState(t *testing.T, cfgPath string) ticket.State {
	t.Helper()
	out, err := run(t, "", "--config", cfgPath, "state", "--json")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	var snap struct {
		Tickets ticket.State `json:"tickets"`
	}
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode state output %q: %v", out, err)
	}
	return snap.Tickets
}

func TestAdjustCommandsPersist(t *testing.T) {
	cfg := writeConfig(t)

	for i := 0; i < 3; i++ {
		if _, err := run(t, "", "--config", cfg, "next", "common"); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	out, err := run(t, "", "--config", cfg, "prev", "common")
	if err != nil {
		t.Fatalf("prev: %v", err)
	}
	if !strings.Contains(out, "common: 4 → 3") {
		t.Errorf("prev output = %q", out)
	}

	if s := readState(t, cfg); s.Common != 3 || s.Priority != 1 {
		t.Errorf("state = %+v, want common 3 priority 1", s)
	}
}

func TestAdjustAtBound(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "", "--config", cfg, "prev", "priority")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "priority stays at 1") {
		t.Errorf("output = %q", out)
	}
}

func TestAdjustRejectsUnknownType(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, "", "--config", cfg, "next", "vip")
	if err == nil || !strings.Contains(err.Error(), "E140") {
		t.Errorf("err = %v, want E140", err)
	}
}

func TestResetCommands(t *testing.T) {
	cfg := writeConfig(t)
	run(t, "", "--config", cfg, "next", "common")
	run(t, "", "--config", cfg, "next", "priority")
	run(t, "", "--config", cfg, "next", "priority")

	if _, err := run(t, "", "--config", cfg, "reset", "priority"); err != nil {
		t.Fatal(err)
	}
	if s := readState(t, cfg); s.Priority != 1 || s.Common != 2 {
		t.Fatalf("after reset priority: %+v", s)
	}

	out, err := run(t, "n\n", "--config", cfg, "reset")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Deseja realmente reiniciar") || !strings.Contains(out, "nothing changed") {
		t.Errorf("declined output = %q", out)
	}
	if s := readState(t, cfg); s.Common != 2 {
		t.Fatalf("declined reset changed state: %+v", s)
	}

	if _, err := run(t, "sim\n", "--config", cfg, "reset"); err != nil {
		t.Fatal(err)
	}
	if s := readState(t, cfg); s.Common != 1 || s.Priority != 1 {
		t.Errorf("after confirmed reset: %+v", s)
	}

	run(t, "", "--config", cfg, "next", "common")
	if _, err := run(t, "", "--config", cfg, "reset", "--yes"); err != nil {
		t.Fatal(err)
	}
	if s := readState(t, cfg); s.Common != 1 {
		t.Errorf("after reset --yes: %+v", s)
	}
}

func TestStateText(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "", "--config", cfg, "state")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"common", "priority", "[1..999]", "alert     0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "", "--config", filepath.Join(t.TempDir(), "nope.json"), "state")
	if err == nil || !strings.Contains(err.Error(), "E160") {
		t.Errorf("err = %v, want E160", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q", out)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info logged at warn level")
	}
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("json output = %q", buf.String())
	}

	if _, err := newLogger(config.LogConfig{Level: "loud"}, &buf); err == nil {
		t.Error("bad level accepted")
	}
	if _, err := newLogger(config.LogConfig{Level: "info", Format: "xml"}, &buf); err == nil {
		t.Error("bad format accepted")
	}
}

func TestInitWritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "", "init", dir, "--driver", "memory")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, config.ConfigFileName) {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Driver != config.DriverMemory {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}

	if _, err := run(t, "", "init", dir); err == nil || !strings.Contains(err.Error(), "E180") {
		t.Errorf("second init err = %v, want E180", err)
	}
	if _, err := run(t, "", "init", dir, "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}
