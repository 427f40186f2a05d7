package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pithecene-io/xray/types"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `backend:
  url: https://score.example.com
  headers:
    X-Api-Key: key123
  connect_timeout: 3s

weights:
  - task: finance
    weight: 50
  - task: news
    weight: 50

default_tasks_count: 4

adapter:
  type: webhook
  url: https://hooks.example.com/xray
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Backend
	assertEqual(t, "backend.url", cfg.Backend.URL, "https://score.example.com")
	assertEqual(t, "backend.headers.X-Api-Key", cfg.Backend.Headers["X-Api-Key"], "key123")
	if cfg.Backend.ConnectTimeout.Duration != 3*time.Second {
		t.Errorf("expected connect_timeout=3s, got %v", cfg.Backend.ConnectTimeout.Duration)
	}

	// Weights
	want := types.WeightTable{{TaskID: "finance", Weight: 50}, {TaskID: "news", Weight: 50}}
	if diff := cmp.Diff(want, cfg.WeightTable()); diff != "" {
		t.Errorf("weights mismatch (-want +got):\n%s", diff)
	}
	if cfg.ExpectedTaskCount() != 4 {
		t.Errorf("expected default_tasks_count=4, got %d", cfg.ExpectedTaskCount())
	}

	// Adapter
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/xray")
	assertEqual(t, "adapter.headers.Authorization", cfg.Adapter.Headers["Authorization"], "Bearer token123")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("expected adapter.timeout=10s, got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("expected adapter.retries=3, got %v", cfg.Adapter.Retries)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "" {
		t.Errorf("expected empty backend url, got %q", cfg.Backend.URL)
	}
	if diff := cmp.Diff(types.DefaultWeights, cfg.WeightTable()); diff != "" {
		t.Errorf("empty config should fall back to default weights (-want +got):\n%s", diff)
	}
	if cfg.ExpectedTaskCount() != types.DefaultExpectedTaskCount {
		t.Errorf("expected default task count, got %d", cfg.ExpectedTaskCount())
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/xray.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error should say not found, got: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("XRAY_TEST_KEY", "secret")
	yaml := `backend:
  url: ${XRAY_TEST_URL:-http://localhost:8000}
  headers:
    X-Api-Key: ${XRAY_TEST_KEY}
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "backend.url", cfg.Backend.URL, "http://localhost:8000")
	assertEqual(t, "backend.headers.X-Api-Key", cfg.Backend.Headers["X-Api-Key"], "secret")
	if len(cfg.MissingEnv) != 0 {
		t.Errorf("expected no missing vars, got %v", cfg.MissingEnv)
	}
}

func TestLoad_MissingEnvReported(t *testing.T) {
	yaml := `backend:
  url: http://localhost:8000
  headers:
    X-Api-Key: ${XRAY_UNSET_KEY_12345}
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff([]string{"XRAY_UNSET_KEY_12345"}, cfg.MissingEnv); diff != "" {
		t.Errorf("MissingEnv mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `backend:
  url: http://localhost:8000
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("comments-only config should load, got: %v", err)
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://example.com/hook
  retries: 0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("expected retries to be set to 0, got nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Adapter.Retries)
	}
}

func TestLoad_RedisLatestPrefix(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: scores
  latest_prefix: "xray:latest:"
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "scores")
	assertEqual(t, "adapter.latest_prefix", cfg.Adapter.LatestPrefix, "xray:latest:")
}

func TestLoad_RedisAdapterChannelOmitted(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "")
	if cfg.Adapter.Retries != nil {
		t.Errorf("expected nil retries when omitted, got %d", *cfg.Adapter.Retries)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	yaml := `backend:
  connect_timeout: not-a-duration
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	yaml := `backend:
  connect_timeout: ""
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.ConnectTimeout.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.Backend.ConnectTimeout.Duration)
	}
}

func TestConfig_Validate(t *testing.T) {
	neg := -1
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty", cfg: Config{}},
		{
			name: "duplicate weight",
			cfg: Config{Weights: types.WeightTable{
				{TaskID: "news", Weight: 10}, {TaskID: "news", Weight: 20},
			}},
			wantErr: "duplicate",
		},
		{
			name:    "weights over 100",
			cfg:     Config{Weights: types.WeightTable{{TaskID: "a", Weight: 60}, {TaskID: "b", Weight: 60}}},
			wantErr: "sum to 120",
		},
		{name: "negative task count", cfg: Config{DefaultTasksCount: -2}, wantErr: "default_tasks_count"},
		{name: "unknown adapter", cfg: Config{Adapter: AdapterConfig{Type: "kafka", URL: "x"}}, wantErr: "unknown adapter"},
		{name: "adapter without url", cfg: Config{Adapter: AdapterConfig{Type: AdapterRedis}}, wantErr: "adapter.url"},
		{
			name:    "negative retries",
			cfg:     Config{Adapter: AdapterConfig{Type: AdapterWebhook, URL: "http://x", Retries: &neg}},
			wantErr: "retries",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateUnknownAdapterIs(t *testing.T) {
	cfg := Config{Adapter: AdapterConfig{Type: "sqs", URL: "x"}}
	if err := cfg.Validate(); !errors.Is(err, ErrUnknownAdapter) {
		t.Errorf("expected ErrUnknownAdapter, got %v", err)
	}
}

func TestConfig_NilDefaults(t *testing.T) {
	var cfg *Config
	if diff := cmp.Diff(types.DefaultWeights, cfg.WeightTable()); diff != "" {
		t.Errorf("nil config weights (-want +got):\n%s", diff)
	}
	if cfg.ExpectedTaskCount() != types.DefaultExpectedTaskCount {
		t.Errorf("nil config task count = %d", cfg.ExpectedTaskCount())
	}
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault without file: %v", err)
	}
	if cfg.Backend.URL != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultPath), []byte("backend:\n  url: http://from-default\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault("")
	if err != nil {
		t.Fatalf("LoadDefault with file: %v", err)
	}
	assertEqual(t, "backend.url", cfg.Backend.URL, "http://from-default")

	if _, err := LoadDefault(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "xray.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
