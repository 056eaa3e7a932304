package global

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.RequireSocketToken {
		t.Error("RequireSocketToken should be off by default")
	}
	if cfg.Gateway.SendQueue != 256 {
		t.Errorf("Gateway.SendQueue = %d, want 256", cfg.Gateway.SendQueue)
	}
	if cfg.Nats.Subject != "chat.message.created" {
		t.Errorf("Nats.Subject = %q", cfg.Nats.Subject)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8081")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("NATS_SERVERS", "nats://a:4222, nats://b:4222")
	t.Setenv("KICK_SUPERSEDED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.Auth.TokenTTL)
	}
	if len(cfg.Nats.Servers) != 2 || cfg.Nats.Servers[1] != "nats://b:4222" {
		t.Errorf("Nats.Servers = %v", cfg.Nats.Servers)
	}
	if !cfg.Gateway.KickSuperseded {
		t.Error("KickSuperseded not applied")
	}
	// untouched defaults survive
	if cfg.Mongo.Database != "chatapp" {
		t.Errorf("Mongo.Database = %q", cfg.Mongo.Database)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "auth:\n  jwt_secret: from-file\nserver:\n  port: 9000\nmongo:\n  uri: mongodb://db:27017\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "9100") // env wins over file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want env override 9100", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("missing secret must fail validation")
	}
	cfg.Auth.JWTSecret = "x"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	cfg.NodeID = 4096
	if err := cfg.Validate(); err == nil {
		t.Error("node id out of range must fail")
	}
}
