package tts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func setCredentialsEnv(t *testing.T) {
	t.Setenv("XFYUN_APP_ID", "test-app")
	t.Setenv("XFYUN_API_KEY", "test-key")
	t.Setenv("XFYUN_API_SECRET", "test-secret")
}

func TestNewXfyunTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without credentials
	t.Setenv("XFYUN_APP_ID", "")
	t.Setenv("XFYUN_API_KEY", "")
	t.Setenv("XFYUN_API_SECRET", "")
	config, err := NewXfyunConfigFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := NewXfyunTTS(config, newMemStorage(), logger); err == nil {
		t.Error("Expected error when credentials are not set")
	}

	// Test with credentials
	setCredentialsEnv(t)
	config, err = NewXfyunConfigFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tts, err := NewXfyunTTS(config, newMemStorage(), logger)
	if err != nil {
		t.Fatalf("Failed to create XfyunTTS: %v", err)
	}

	got := tts.Config()
	if got.Credentials.APIKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", got.Credentials.APIKey)
	}
	if got.Endpoint != defaultEndpoint {
		t.Errorf("Expected default endpoint '%s', got '%s'", defaultEndpoint, got.Endpoint)
	}
	if got.Timeout != defaultTimeout {
		t.Errorf("Expected default timeout %s, got %s", defaultTimeout, got.Timeout)
	}
	if got.OutputDir != defaultOutputDir {
		t.Errorf("Expected default output dir '%s', got '%s'", defaultOutputDir, got.OutputDir)
	}
	if got.Business != DefaultBusinessParams() {
		t.Errorf("Expected default business params, got %+v", got.Business)
	}
}

func TestNewXfyunTTS_RequiresStorage(t *testing.T) {
	config := XfyunConfig{Credentials: testCredentials()}
	if _, err := NewXfyunTTS(config, nil, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error when storage is nil")
	}
}

func TestValidateXfyunConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*XfyunConfig)
		wantErr bool
	}{
		{"valid", func(c *XfyunConfig) {}, false},
		{"missing app id", func(c *XfyunConfig) { c.Credentials.AppID = "" }, true},
		{"missing key", func(c *XfyunConfig) { c.Credentials.APIKey = "" }, true},
		{"missing secret", func(c *XfyunConfig) { c.Credentials.APISecret = "" }, true},
		{"negative timeout", func(c *XfyunConfig) { c.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := XfyunConfig{Credentials: testCredentials()}
			tt.mutate(&config)
			if err := ValidateXfyunConfig(config); (err != nil) != tt.wantErr {
				t.Errorf("ValidateXfyunConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewXfyunConfigFromEnv_Overrides(t *testing.T) {
	setCredentialsEnv(t)
	t.Setenv("XFYUN_ENDPOINT", "ws://localhost:9000/v2/tts")
	t.Setenv("XFYUN_TIMEOUT_SECONDS", "2.5")
	t.Setenv("XFYUN_OUTPUT_DIR", "/tmp/out")
	t.Setenv("XFYUN_TLS_INSECURE", "true")
	t.Setenv("XFYUN_VOICE", "xiaoyan")
	t.Setenv("XFYUN_AUE", "raw")
	t.Setenv("XFYUN_SPEED", "70")
	t.Setenv("XFYUN_VOLUME", "not-a-number")
	t.Setenv("XFYUN_PITCH", "40")

	config, err := NewXfyunConfigFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if config.Endpoint != "ws://localhost:9000/v2/tts" {
		t.Errorf("Expected endpoint override, got '%s'", config.Endpoint)
	}
	if config.Timeout != 2500*time.Millisecond {
		t.Errorf("Expected timeout 2.5s, got %s", config.Timeout)
	}
	if config.OutputDir != "/tmp/out" {
		t.Errorf("Expected output dir override, got '%s'", config.OutputDir)
	}
	if !config.TLSInsecure {
		t.Error("Expected TLS insecure override")
	}
	if config.Business.Vcn != "xiaoyan" || config.Business.Aue != "raw" {
		t.Errorf("Expected voice and encoding overrides, got %+v", config.Business)
	}
	if config.Business.Speed != 70 || config.Business.Pitch != 40 {
		t.Errorf("Expected speed 70 and pitch 40, got %d and %d", config.Business.Speed, config.Business.Pitch)
	}
	if config.Business.Volume != 50 {
		t.Errorf("Expected invalid volume to keep default 50, got %d", config.Business.Volume)
	}
}

func TestLoadBusinessParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.yaml")
	content := "vcn: x4_lingxiaoqi\nspeed: 65\naue: raw\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	params, err := LoadBusinessParams(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if params.Vcn != "x4_lingxiaoqi" || params.Speed != 65 || params.Aue != "raw" {
		t.Errorf("Expected file values, got %+v", params)
	}
	// Keys absent from the file keep their defaults
	if params.Tte != "utf8" || params.Volume != 50 || params.Reg != "2" {
		t.Errorf("Expected defaults for missing keys, got %+v", params)
	}

	// Env overrides win over the file
	setCredentialsEnv(t)
	t.Setenv("XFYUN_BUSINESS_FILE", path)
	t.Setenv("XFYUN_VOICE", "aisjinger")
	config, err := NewXfyunConfigFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.Business.Vcn != "aisjinger" || config.Business.Speed != 65 {
		t.Errorf("Expected env voice and file speed, got %+v", config.Business)
	}
}

func TestLoadBusinessParams_Errors(t *testing.T) {
	if _, err := LoadBusinessParams(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("speed: [fast"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if _, err := LoadBusinessParams(path); err == nil {
		t.Error("Expected error for invalid yaml")
	}

	setCredentialsEnv(t)
	t.Setenv("XFYUN_BUSINESS_FILE", path)
	if _, err := NewXfyunConfigFromEnv(); err == nil {
		t.Error("Expected error when business file is invalid")
	}
}

func TestBusinessParamsFileExtension(t *testing.T) {
	cases := map[string]string{"lame": "mp3", "raw": "pcm", "speex-wb": "spx", "": "mp3"}
	for aue, want := range cases {
		params := BusinessParams{Aue: aue}
		if got := params.FileExtension(); got != want {
			t.Errorf("FileExtension(%q) = %q, want %q", aue, got, want)
		}
	}
}
