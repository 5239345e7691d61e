package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/pagecraft/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Editor.MaxHistory != 20 {
		t.Errorf("max_history = %d, want 20", cfg.Editor.MaxHistory)
	}
	if cfg.Editor.CoalesceWindow != time.Second {
		t.Errorf("coalesce_window = %v, want 1s", cfg.Editor.CoalesceWindow)
	}
}

func TestEditorConfig_Bounds(t *testing.T) {
	cases := []EditorConfig{
		{MaxHistory: 0, CoalesceWindow: time.Second},
		{MaxHistory: 20, CoalesceWindow: time.Millisecond},
		{MaxHistory: 20, CoalesceWindow: time.Hour},
	}
	for _, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("%+v should fail validation", c)
		}
	}
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("PAGECRAFT_TEST_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
  http:
    port: 9090
works:
  path: /tmp/works
sqlite:
  path: /tmp/pagecraft.db
auth:
  mode: token
  token: ${PAGECRAFT_TEST_TOKEN}
editor:
  max_history: 50
  coalesce_window: 250ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Auth.Token != "s3cret" {
		t.Errorf("token = %q, want expanded env value", cfg.Auth.Token)
	}
	if cfg.Editor.MaxHistory != 50 || cfg.Editor.CoalesceWindow != 250*time.Millisecond {
		t.Errorf("editor = %+v", cfg.Editor)
	}
	if cfg.SSE.ListThrottle != 2*time.Second {
		t.Errorf("unset sse.list_throttle should keep its default, got %v", cfg.SSE.ListThrottle)
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("editor:\n  max_history: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := pkgconfig.Load(path, NewDefaultConfig()); err == nil {
		t.Fatal("negative max_history should fail validation")
	}
}
