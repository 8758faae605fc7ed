package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"skyline/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("SKYLINE_TEST_KEY", "secret-key")

	yamlContent := `
http:
  port: 4000
database:
  path: "test.db"
chat:
  api_key: "${SKYLINE_TEST_KEY}"
  timeout: 5s
bookings:
  enforce_transitions: false
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.HTTP.Port != 4000 {
		t.Errorf("expected port 4000, got %d", cfg.HTTP.Port)
	}
	if cfg.Chat.APIKey != "secret-key" {
		t.Errorf("expected api key from environment, got %q", cfg.Chat.APIKey)
	}
	if cfg.Chat.CallTimeout() != 5*time.Second {
		t.Errorf("expected chat timeout 5s, got %s", cfg.Chat.CallTimeout())
	}
	if cfg.Bookings.Enforce() {
		t.Errorf("expected transition enforcement to be disabled")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				HTTP:     HTTPConfig{Port: 3000},
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				HTTP: HTTPConfig{Port: 3000},
			},
			wantErr: true,
		},
		{
			name: "grpc port clash",
			cfg: Config{
				HTTP:     HTTPConfig{Port: 3000},
				GRPC:     GRPCConfig{Enabled: true, Port: 3000},
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "unknown log format",
			cfg: Config{
				HTTP:     HTTPConfig{Port: 3000},
				Database: DatabaseConfig{Path: "path"},
				Logging:  LoggingConfig{Format: "xml"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.HTTP.Port != 3000 {
		t.Errorf("expected default http port 3000, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Path != "data/bookings.db" {
		t.Errorf("expected default database path, got %s", cfg.Database.Path)
	}
	if cfg.Chat.Model != DefaultChatModel {
		t.Errorf("expected default chat model %s, got %s", DefaultChatModel, cfg.Chat.Model)
	}
	if cfg.Chat.CallTimeout() != DefaultChatTimeout {
		t.Errorf("expected default chat timeout %s, got %s", DefaultChatTimeout, cfg.Chat.CallTimeout())
	}
	if !cfg.Bookings.Enforce() {
		t.Errorf("expected transitions to be enforced by default")
	}
	if cfg.Sync.MaxRetries != 5 {
		t.Errorf("expected default sync retries 5, got %d", cfg.Sync.MaxRetries)
	}
}

func TestChatCallTimeout_Disabled(t *testing.T) {
	zero := time.Duration(0)
	cfg := ChatConfig{Timeout: &zero}
	if cfg.CallTimeout() != 0 {
		t.Errorf("expected zero timeout to disable the bound, got %s", cfg.CallTimeout())
	}
}

func TestLoadServices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	content := `
services:
  - key: web
    label: Web Development
    label_sq: Zhvillim Uebi
    sort_order: 3
  - key: drone
    label: Drone Shooting
    label_sq: Xhirime me Dron
    sort_order: 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write services: %v", err)
	}

	services, err := LoadServices(path)
	if err != nil {
		t.Fatalf("failed to load services: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services.Default() != "Drone Shooting" {
		t.Errorf("expected Drone Shooting first, got %s", services.Default())
	}
	if services[1].LabelFor(models.LangAlbanian) != "Zhvillim Uebi" {
		t.Errorf("unexpected albanian label %s", services[1].LabelSq)
	}
}

func TestValidateServices(t *testing.T) {
	tests := []struct {
		name     string
		services []models.Service
		wantErr  bool
	}{
		{"valid", []models.Service{{Key: "drone", Label: "Drone Shooting"}, {Key: "web", Label: "Web Development"}}, false},
		{"duplicate key", []models.Service{{Key: "drone", Label: "A"}, {Key: "drone", Label: "B"}}, true},
		{"missing label", []models.Service{{Key: "drone"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServices(tt.services)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServices() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
