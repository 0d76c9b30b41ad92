package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("CRITIC_MODEL", "")
	t.Setenv("RESPONDER_TIMEOUT", "")
	t.Setenv("CRITIC_TIMEOUT", "")
	t.Setenv("FEEDBACK_MEMORY_LIMIT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected default provider, got %s", cfg.LLMProvider)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default openai model, got %s", cfg.OpenAIModel)
	}
	if cfg.CriticModel != "" {
		t.Fatalf("expected empty critic model, got %s", cfg.CriticModel)
	}
	if cfg.ResponderTimeout != 25*time.Second {
		t.Fatalf("expected default responder timeout, got %s", cfg.ResponderTimeout)
	}
	if cfg.CriticTimeout != 15*time.Second {
		t.Fatalf("expected default critic timeout, got %s", cfg.CriticTimeout)
	}
	if cfg.FeedbackMemoryLimit != 5 {
		t.Fatalf("expected default feedback limit, got %d", cfg.FeedbackMemoryLimit)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no default CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("LLM_PROVIDER", " Gemini ")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("CRITIC_MODEL", "gpt-4o")
	t.Setenv("RESPONDER_TIMEOUT", "40s")
	t.Setenv("CRITIC_TIMEOUT", "10s")
	t.Setenv("FEEDBACK_MEMORY_LIMIT", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "localhost:6380" {
		t.Fatalf("expected redis override, got %s", cfg.RedisAddr)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected normalized provider, got %s", cfg.LLMProvider)
	}
	if cfg.GeminiModel != "gemini-2.5-pro" {
		t.Fatalf("expected gemini model override, got %s", cfg.GeminiModel)
	}
	if cfg.CriticModel != "gpt-4o" {
		t.Fatalf("expected critic model override, got %s", cfg.CriticModel)
	}
	if cfg.ResponderTimeout != 40*time.Second {
		t.Fatalf("expected responder timeout override, got %s", cfg.ResponderTimeout)
	}
	if cfg.CriticTimeout != 10*time.Second {
		t.Fatalf("expected critic timeout override, got %s", cfg.CriticTimeout)
	}
	if cfg.FeedbackMemoryLimit != 8 {
		t.Fatalf("expected feedback limit override, got %d", cfg.FeedbackMemoryLimit)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected CORS origins override, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FEEDBACK_MEMORY_LIMIT", "not-a-number")
	t.Setenv("CRITIC_TIMEOUT", "soon")
	cfg := Load()
	if cfg.FeedbackMemoryLimit != 5 {
		t.Fatalf("expected fallback feedback limit, got %d", cfg.FeedbackMemoryLimit)
	}
	if cfg.CriticTimeout != 15*time.Second {
		t.Fatalf("expected fallback critic timeout, got %s", cfg.CriticTimeout)
	}
}
