package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio   = "stdio"
	ModeConvert = "convert"

	// Strategy constants for one-shot convert mode
	StrategyAI     = "ai"
	StrategyDocAI  = "docai"
	StrategyVision = "vision"

	// Default values
	DefaultMaxPages       = 25
	DefaultVisionMaxPages = 10
	DefaultVisionDPI      = 220
	DefaultValidatePages  = 3
	DefaultDebugDumpMax   = 3
	DefaultLocation       = "us"
	DefaultLogLevel       = "info"
)

// Config holds all configuration for the form pipeline
type Config struct {
	// Binary configuration
	Mode     string // "stdio" or "convert"
	File     string // input PDF (convert mode only)
	Strategy string // "ai", "docai" or "vision" (convert mode only)

	// Guardrails
	MaxPages       int // page cap for the AI-only and Doc-AI strategies
	VisionMaxPages int // page cap for the vision strategy

	// Rasterization
	VisionDPI     int
	ValidatePages int
	DebugDump     bool
	DebugDumpMax  int
	UploadDir     string

	// Generative model selection; first entry in the candidate list when set
	Model       string
	VisionModel string

	// Document AI processor selection
	ProjectID         string
	Location          string
	LayoutProcessorID string
	FormProcessorID   string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeStdio,
		Strategy:       StrategyVision,
		MaxPages:       DefaultMaxPages,
		VisionMaxPages: DefaultVisionMaxPages,
		VisionDPI:      DefaultVisionDPI,
		ValidatePages:  DefaultValidatePages,
		DebugDumpMax:   DefaultDebugDumpMax,
		UploadDir:      os.TempDir(),
		Location:       DefaultLocation,
		Version:        "1.0.0",
		ServerName:     "formpipe",
		LogLevel:       DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and environment variables and
// returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	// Expand paths if needed
	if cfg.File != "" {
		if expandedPath, err := filepath.Abs(cfg.File); err == nil {
			cfg.File = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv returns a configuration populated from the environment only.
// This is the entry point used when the pipeline is embedded as a library.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	setupViperEnvironment(cfg)
	populateConfigFromViper(cfg)
	return cfg
}

// setupViperEnvironment binds the documented environment keys. The keys are
// fixed full names shared with the web layer, so no prefix is applied.
func setupViperEnvironment(cfg *Config) {
	_ = viper.BindEnv("maxpages", "FORMS_AI_PDF_MAX_PAGES")
	_ = viper.BindEnv("visionmaxpages", "FORMS_AI_VISION_MAX_PAGES", "FORMS_AI_PDF_MAX_PAGES")
	_ = viper.BindEnv("visiondpi", "FORMS_AI_VISION_DPI")
	_ = viper.BindEnv("validatepages", "FORMS_AI_VISION_VALIDATE_PAGES")
	_ = viper.BindEnv("debugdump", "FORMS_AI_VISION_DEBUG_DUMP")
	_ = viper.BindEnv("debugdumpmax", "FORMS_AI_VISION_DEBUG_DUMP_MAX")
	_ = viper.BindEnv("model", "VERTEX_MODEL")
	_ = viper.BindEnv("visionmodel", "VERTEX_VISION_MODEL")
	_ = viper.BindEnv("projectid", "PROJECT_ID")
	_ = viper.BindEnv("location", "DOCUMENTAI_LOCATION")
	_ = viper.BindEnv("layoutprocessorid", "DOCUMENTAI_LAYOUT_PROCESSOR_ID")
	_ = viper.BindEnv("formprocessorid", "DOCUMENTAI_FORM_PROCESSOR_ID")
	_ = viper.BindEnv("uploaddir", "UPLOAD_DIR")

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("strategy", cfg.Strategy)
	viper.SetDefault("maxpages", cfg.MaxPages)
	viper.SetDefault("visionmaxpages", cfg.VisionMaxPages)
	viper.SetDefault("visiondpi", cfg.VisionDPI)
	viper.SetDefault("validatepages", cfg.ValidatePages)
	viper.SetDefault("debugdumpmax", cfg.DebugDumpMax)
	viper.SetDefault("uploaddir", cfg.UploadDir)
	viper.SetDefault("location", cfg.Location)
	viper.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Binary mode: 'stdio' for MCP standard I/O, 'convert' for a one-shot conversion")
	pflag.String("file", cfg.File, "Input PDF file (convert mode only)")
	pflag.String("strategy", cfg.Strategy, "Conversion strategy: 'ai', 'docai' or 'vision' (convert mode only)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("file", pflag.Lookup("file"))
	_ = viper.BindPFlag("strategy", pflag.Lookup("strategy"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nformpipe - PDF form ingestion and generation pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # stdio MCP mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=convert --file=intake.pdf          # one-shot vision conversion\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=convert --file=a.pdf --strategy=ai # one-shot AI-only conversion\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORMS_AI_PDF_MAX_PAGES           Page cap for AI-only and Doc-AI strategies\n")
		fmt.Fprintf(os.Stderr, "  FORMS_AI_VISION_MAX_PAGES        Page cap for the vision strategy\n")
		fmt.Fprintf(os.Stderr, "  FORMS_AI_VISION_DPI              Rasterization DPI\n")
		fmt.Fprintf(os.Stderr, "  FORMS_AI_VISION_VALIDATE_PAGES   Pages of text extracted for validation\n")
		fmt.Fprintf(os.Stderr, "  FORMS_AI_VISION_DEBUG_DUMP       '1' writes sent page images to disk\n")
		fmt.Fprintf(os.Stderr, "  FORMS_AI_VISION_DEBUG_DUMP_MAX   Cap on dumped pages\n")
		fmt.Fprintf(os.Stderr, "  VERTEX_MODEL                     Preferred generative model\n")
		fmt.Fprintf(os.Stderr, "  VERTEX_VISION_MODEL              Preferred vision model\n")
		fmt.Fprintf(os.Stderr, "  PROJECT_ID                       Google Cloud project\n")
		fmt.Fprintf(os.Stderr, "  DOCUMENTAI_LOCATION              Document AI location\n")
		fmt.Fprintf(os.Stderr, "  DOCUMENTAI_LAYOUT_PROCESSOR_ID   Layout processor\n")
		fmt.Fprintf(os.Stderr, "  DOCUMENTAI_FORM_PROCESSOR_ID     Form processor\n")
		fmt.Fprintf(os.Stderr, "  UPLOAD_DIR                       Base directory for debug dumps\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.File = viper.GetString("file")
	cfg.Strategy = viper.GetString("strategy")
	cfg.MaxPages = viper.GetInt("maxpages")
	cfg.VisionMaxPages = viper.GetInt("visionmaxpages")
	cfg.VisionDPI = viper.GetInt("visiondpi")
	cfg.ValidatePages = viper.GetInt("validatepages")
	cfg.DebugDump = viper.GetString("debugdump") == "1"
	cfg.DebugDumpMax = viper.GetInt("debugdumpmax")
	cfg.Model = viper.GetString("model")
	cfg.VisionModel = viper.GetString("visionmodel")
	cfg.ProjectID = viper.GetString("projectid")
	cfg.Location = viper.GetString("location")
	cfg.LayoutProcessorID = viper.GetString("layoutprocessorid")
	cfg.FormProcessorID = viper.GetString("formprocessorid")
	cfg.UploadDir = viper.GetString("uploaddir")
	cfg.LogLevel = viper.GetString("loglevel")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeConvert {
		return errors.New("mode must be either 'stdio' or 'convert'")
	}

	if c.Mode == ModeConvert {
		if c.File == "" {
			return errors.New("convert mode requires --file")
		}
		switch c.Strategy {
		case StrategyAI, StrategyDocAI, StrategyVision:
		default:
			return fmt.Errorf("invalid strategy: %s (must be one of: ai, docai, vision)", c.Strategy)
		}
	}

	if c.MaxPages <= 0 {
		return errors.New("page cap must be positive")
	}
	if c.VisionMaxPages <= 0 {
		return errors.New("vision page cap must be positive")
	}
	if c.VisionDPI < 36 || c.VisionDPI > 600 {
		return fmt.Errorf("rasterization DPI out of range: %d", c.VisionDPI)
	}
	if c.ValidatePages <= 0 {
		return errors.New("validation page count must be positive")
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

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsStdioMode returns true if the binary is running as an MCP stdio server
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, MaxPages: %d, VisionMaxPages: %d, VisionDPI: %d, Location: %s, LogLevel: %s}",
		c.Mode, c.MaxPages, c.VisionMaxPages, c.VisionDPI, c.Location, c.LogLevel)
}
