package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"telconsole/config"
	"telconsole/internal/capability"
	"telconsole/internal/errors"
	"telconsole/internal/metrics"
	"telconsole/util"
)

// TestBuild_Console verifies that the default config yields a loopback
// server running the built-in console.
func TestBuild_Console(t *testing.T) {
	cfg := config.Default()
	cfg.Prompt = "dev"
	cfg.NoColor = true

	mode, err := Build(cfg, util.NewLogger(0), metrics.New(), "v1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	srv, ok := mode.(*Server)
	if !ok {
		t.Fatalf("expected *Server, got %T", mode)
	}
	if srv.Address != "127.0.0.1:3113" {
		t.Errorf("Address = %q", srv.Address)
	}
	c, ok := srv.Handler.Capability.(*capability.Console)
	if !ok {
		t.Fatalf("expected *capability.Console, got %T", srv.Handler.Capability)
	}
	if c.Prompt != "dev" || !c.NoColor || c.Version != "v1.2.3" {
		t.Errorf("console = %+v", c)
	}
}

// TestBuild_Exec verifies Build selects an external program for -e/-c.
func TestBuild_Exec(t *testing.T) {
	cfg := config.Default()
	cfg.Command = "cat"

	mode, err := Build(cfg, util.NewLogger(0), nil, "")
	if err != nil {
		t.Fatal(err)
	}
	e, ok := mode.(*Server).Handler.Capability.(*capability.Exec)
	if !ok {
		t.Fatalf("expected *capability.Exec, got %T", mode.(*Server).Handler.Capability)
	}
	if e.Command != "cat" || !e.Echo {
		t.Errorf("exec = %+v", e)
	}
}

func TestBuild_CarriesLimits(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 0
	cfg.MaxConns = 4
	cfg.Debug = true

	mode, err := Build(cfg, util.NewLogger(0), nil, "")
	if err != nil {
		t.Fatal(err)
	}
	srv := mode.(*Server)
	if srv.MaxConns != 4 || srv.Heartbeat != cfg.Heartbeat || srv.GracePeriod != cfg.GracePeriod {
		t.Errorf("server = %+v", srv)
	}
	if !srv.Handler.Debug {
		t.Error("handler should be in debug mode")
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Execute = "/bin/cat"
	cfg.Command = "cat"

	_, err := Build(cfg, util.NewLogger(0), nil, "")
	var ce *errors.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

// TestBuild_ProviderPrecedence checks explicit binds override the
// bindings file, which overrides process facts.
func TestBuild_ProviderPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.json")
	if err := os.WriteFile(path, []byte(`{"env":"file","version":"file","region":"eu"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.BindingsFile = path
	cfg.Binds = map[string]any{"env": "flag"}

	mode, err := Build(cfg, util.NewLogger(0), nil, "v9")
	if err != nil {
		t.Fatal(err)
	}
	got, err := mode.(*Server).Handler.Provider.Bindings(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{"env": "flag", "version": "file", "region": "eu"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["pid"]; !ok {
		t.Error("process facts missing")
	}
}
