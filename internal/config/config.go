package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the nomination uploader
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Nomination pipeline configuration
	NominationDirectory string // incoming nomination PDFs
	BucketDirectory     string // evidence files referenced by nominations

	// Workflow host configuration
	KissflowKey string // Kissflow account API key
	FileKey     string // file storage public key
	HostURL     string // Kissflow account host override

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum nomination PDF size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:                ModeStdio, // Default to stdio mode for MCP compatibility
		Host:                DefaultHost,
		Port:                DefaultPort,
		NominationDirectory: currentDir,
		BucketDirectory:     currentDir,
		Version:             "1.0.0",
		ServerName:          "nomination-uploader",
		LogLevel:            DefaultLogLevel,
		MaxFileSize:         DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.NominationDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.NominationDirectory); err == nil {
			cfg.NominationDirectory = expandedPath
		}
	}
	if cfg.BucketDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.BucketDirectory); err == nil {
			cfg.BucketDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("HONOURS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.NominationDirectory)
	viper.SetDefault("bucket", cfg.BucketDirectory)
	viper.SetDefault("kissflow-key", cfg.KissflowKey)
	viper.SetDefault("file-key", cfg.FileKey)
	viper.SetDefault("host-url", cfg.HostURL)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.NominationDirectory, "Directory containing nomination PDF files")
	pflag.String("bucket", cfg.BucketDirectory, "Directory containing evidence files named by nominations")
	pflag.String("kissflow-key", cfg.KissflowKey, "Kissflow account API key")
	pflag.String("file-key", cfg.FileKey, "File storage public key")
	pflag.String("host-url", cfg.HostURL, "Kissflow account host (uses the default account when empty)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum nomination PDF size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("bucket", pflag.Lookup("bucket"))
	_ = viper.BindPFlag("kissflow-key", pflag.Lookup("kissflow-key"))
	_ = viper.BindPFlag("file-key", pflag.Lookup("file-key"))
	_ = viper.BindPFlag("host-url", pflag.Lookup("host-url"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nNomination Uploader - an MCP server that structures honours nomination PDFs and files them on Kissflow\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/nominations --bucket=/srv/files # stdio mode with custom directories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/srv/nominations      # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_MODE          Server mode\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_DIR           Nomination PDF directory\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_BUCKET        Evidence file bucket directory\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_KISSFLOW_KEY  Kissflow account API key\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_FILE_KEY      File storage public key\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_HOST_URL      Kissflow account host\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  HONOURS_MAXFILESIZE   Maximum file size\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.NominationDirectory = viper.GetString("dir")
	cfg.BucketDirectory = viper.GetString("bucket")
	cfg.KissflowKey = viper.GetString("kissflow-key")
	cfg.FileKey = viper.GetString("file-key")
	cfg.HostURL = viper.GetString("host-url")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.NominationDirectory == "" {
		return errors.New("nomination directory cannot be empty")
	}
	if c.BucketDirectory == "" {
		return errors.New("bucket directory cannot be empty")
	}

	for _, dir := range []string{c.NominationDirectory, c.BucketDirectory} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access directory %s: %w", dir, err)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. Secrets are
// left out on purpose.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, NominationDirectory: %s, BucketDirectory: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.NominationDirectory, c.BucketDirectory, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
