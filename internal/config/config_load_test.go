package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to clear environment variables
func clearEnvVars() {
	for _, name := range []string{
		"HONOURS_MODE",
		"HONOURS_HOST",
		"HONOURS_PORT",
		"HONOURS_DIR",
		"HONOURS_BUCKET",
		"HONOURS_KISSFLOW_KEY",
		"HONOURS_FILE_KEY",
		"HONOURS_HOST_URL",
		"HONOURS_LOGLEVEL",
		"HONOURS_MAXFILESIZE",
	} {
		os.Unsetenv(name)
	}
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	os.Args = []string{"nomination-uploader"}
	resetFlags()
	clearEnvVars()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 100*1024*1024)
	}
	if cfg.NominationDirectory == "" {
		t.Error("LoadFromFlags() NominationDirectory should not be empty")
	}
	if cfg.BucketDirectory == "" {
		t.Error("LoadFromFlags() BucketDirectory should not be empty")
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name            string
		args            []string
		wantMode        string
		wantHost        string
		wantPort        int
		wantLogLevel    string
		wantMaxFileSize int64
		wantKissflowKey string
		wantFileKey     string
	}{
		{
			name:            "stdio mode with custom directories",
			args:            []string{"--dir={dir}", "--bucket={dir}"},
			wantMode:        "stdio",
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "info",
			wantMaxFileSize: 100 * 1024 * 1024,
		},
		{
			name:            "server mode with custom host and port",
			args:            []string{"--mode=server", "--host=0.0.0.0", "--port=9090", "--dir={dir}"},
			wantMode:        "server",
			wantHost:        "0.0.0.0",
			wantPort:        9090,
			wantLogLevel:    "info",
			wantMaxFileSize: 100 * 1024 * 1024,
		},
		{
			name:            "debug logging and custom max file size",
			args:            []string{"--loglevel=debug", "--maxfilesize=50000000", "--dir={dir}"},
			wantMode:        "stdio",
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "debug",
			wantMaxFileSize: 50000000,
		},
		{
			name:            "workflow credentials",
			args:            []string{"--kissflow-key=api-key", "--file-key=pub-key", "--dir={dir}"},
			wantMode:        "stdio",
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "info",
			wantMaxFileSize: 100 * 1024 * 1024,
			wantKissflowKey: "api-key",
			wantFileKey:     "pub-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalArgs := os.Args
			defer func() {
				os.Args = originalArgs
				resetFlags()
				clearEnvVars()
			}()

			tempDir := t.TempDir()

			args := []string{"nomination-uploader"}
			for _, arg := range tt.args {
				args = append(args, strings.ReplaceAll(arg, "{dir}", tempDir))
			}

			os.Args = args
			resetFlags()
			clearEnvVars()

			cfg, err := LoadFromFlags()
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}

			if cfg.Mode != tt.wantMode {
				t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, tt.wantMode)
			}
			if cfg.Host != tt.wantHost {
				t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, tt.wantPort)
			}
			if cfg.LogLevel != tt.wantLogLevel {
				t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, tt.wantLogLevel)
			}
			if cfg.MaxFileSize != tt.wantMaxFileSize {
				t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, tt.wantMaxFileSize)
			}
			if cfg.KissflowKey != tt.wantKissflowKey {
				t.Errorf("LoadFromFlags() KissflowKey = %v, want %v", cfg.KissflowKey, tt.wantKissflowKey)
			}
			if cfg.FileKey != tt.wantFileKey {
				t.Errorf("LoadFromFlags() FileKey = %v, want %v", cfg.FileKey, tt.wantFileKey)
			}
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()

	os.Setenv("HONOURS_MODE", "server")
	os.Setenv("HONOURS_HOST", "192.168.1.1")
	os.Setenv("HONOURS_PORT", "3000")
	os.Setenv("HONOURS_DIR", tempDir)
	os.Setenv("HONOURS_BUCKET", tempDir)
	os.Setenv("HONOURS_KISSFLOW_KEY", "env-api-key")
	os.Setenv("HONOURS_FILE_KEY", "env-pub-key")

	os.Args = []string{"nomination-uploader"}
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.KissflowKey != "env-api-key" {
		t.Errorf("LoadFromFlags() KissflowKey = %v, want %v", cfg.KissflowKey, "env-api-key")
	}
	if cfg.FileKey != "env-pub-key" {
		t.Errorf("LoadFromFlags() FileKey = %v, want %v", cfg.FileKey, "env-pub-key")
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	os.Setenv("HONOURS_MODE", "server")
	os.Setenv("HONOURS_HOST", "192.168.1.1")
	os.Setenv("HONOURS_PORT", "3000")

	os.Args = []string{"nomination-uploader", "--mode=stdio", "--host=localhost", "--port=8888"}
	resetFlags()

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v (should override env)", cfg.Mode, "stdio")
	}
	if cfg.Host != "localhost" {
		t.Errorf("LoadFromFlags() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoadFromFlags_InvalidMode(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	os.Args = []string{"nomination-uploader", "--mode=invalid", "--dir=" + tempDir}
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Fatal("LoadFromFlags() expected error for invalid mode")
	}
	if !strings.Contains(err.Error(), "mode must be either 'stdio' or 'server'") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid mode", err)
	}
}

func TestLoadFromFlags_InvalidPort(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	os.Args = []string{"nomination-uploader", "--mode=server", "--port=99999", "--dir=" + tempDir}
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Fatal("LoadFromFlags() expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "port must be between 1 and 65535") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid port", err)
	}
}

func TestLoadFromFlags_InvalidLogLevel(t *testing.T) {
	originalArgs := os.Args
	defer func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	}()

	tempDir := t.TempDir()
	os.Args = []string{"nomination-uploader", "--loglevel=invalid", "--dir=" + tempDir}
	resetFlags()
	clearEnvVars()

	_, err := LoadFromFlags()
	if err == nil {
		t.Fatal("LoadFromFlags() expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("LoadFromFlags() error = %v, want error about invalid log level", err)
	}
}
