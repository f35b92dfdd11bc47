package config

import (
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestValidateRejectsBadLLMURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.BaseURL = "not-a-url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed LLM base URL")
	}
}

func TestValidateRejectsMissingModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.GraderModel = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing grader model")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROMPTLOOP_SERVER_PORT", "9999")
	t.Setenv("GRADER_MODEL", "gemini-2.5-pro")
	t.Setenv("PROMPTLOOP_CONFIG", "/nonexistent/config.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.LLM.GraderModel != "gemini-2.5-pro" {
		t.Errorf("expected grader model override, got %s", cfg.LLM.GraderModel)
	}
}
