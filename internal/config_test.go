package internal

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return NewDefaultConfig()
}

func TestDefaultConfig_Valid(t *testing.T) {
	// Defaults alone must validate; the model api key is checked at
	// server startup, not here, so the mcp subcommand can run without it.
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should pass: %v", err)
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
	if cfg.Owner != "local" {
		t.Errorf("owner = %q, want local", cfg.Owner)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
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

func TestAuthConfig_IntrospectModeNeedsURL(t *testing.T) {
	cfg := AuthConfig{Mode: "introspect"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("introspect mode without url should fail")
	}
	cfg.IntrospectURL = "https://idp.example/introspect"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("introspect mode with url should pass: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestObjectsConfig_FSNeedsPath(t *testing.T) {
	cfg := ObjectsConfig{Backend: "fs"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("fs backend without path should fail")
	}
	cfg.Path = "./attachments"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fs backend with path should pass: %v", err)
	}
}

func TestObjectsConfig_S3NeedsBucket(t *testing.T) {
	cfg := ObjectsConfig{Backend: "s3"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("s3 backend without bucket should fail")
	}
	cfg.S3.Bucket = "minne-attachments"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("s3 backend with bucket should pass: %v", err)
	}
}

func TestObjectsConfig_EmptyBackendDefaultsFS(t *testing.T) {
	cfg := ObjectsConfig{Path: "./attachments"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default to fs: %v", err)
	}
	if cfg.Backend != ObjectsBackendFS {
		t.Errorf("backend = %q, want %q", cfg.Backend, ObjectsBackendFS)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := HTTPConfig{Port: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 should fail")
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("port above 65535 should fail")
	}
	cfg.Port = 8080
	if err := cfg.Validate(); err != nil {
		t.Errorf("port 8080 should pass: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestFullConfig_SubsectionValidationCalled(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = validConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch sqlite error")
	}
}
