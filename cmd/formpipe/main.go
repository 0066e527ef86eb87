package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/anchorforms/formpipe/internal/config"
	"github.com/anchorforms/formpipe/internal/mcpserver"
	"github.com/anchorforms/formpipe/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logrus for the selected mode. In stdio mode all
// logging goes to stderr so the MCP protocol on stdout stays clean.
func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.IsStdioMode() && !cfg.IsDebug() {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// runStdioMode serves MCP over stdio until the transport closes or a signal
// arrives.
func runStdioMode(ctx context.Context, cancel context.CancelFunc, srv *mcpserver.Server) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logrus.WithField("signal", sig.String()).Info("shutting down")
		cancel()
		if err := <-serverErrCh; err != nil {
			logrus.WithError(err).Error("server shutdown with error")
			os.Exit(1)
		}
	case err := <-serverErrCh:
		if err != nil {
			logrus.WithError(err).Error("server error")
			os.Exit(1)
		}
	}
}

// runConvertMode performs a one-shot conversion and prints the artifact JSON
// to stdout.
func runConvertMode(ctx context.Context, cfg *config.Config, svc *pipeline.Service) {
	pdfBytes, err := os.ReadFile(cfg.File)
	if err != nil {
		logrus.WithError(err).Fatal("reading input file")
	}

	art, err := svc.Convert(ctx, cfg.Strategy, pipeline.Request{
		PDF:      pdfBytes,
		FileName: cfg.File,
	})
	if err != nil {
		logrus.WithError(err).Fatal("conversion failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(art); err != nil {
		logrus.WithError(err).Fatal("encoding artifact")
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		logrus.WithField("config", cfg.String()).Debug("starting")
	}

	svc := pipeline.NewService(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsStdioMode() {
		srv, err := mcpserver.NewServer(cfg, svc)
		if err != nil {
			logrus.WithError(err).Fatal("failed to create MCP server")
		}
		runStdioMode(ctx, cancel, srv)
		return
	}

	runConvertMode(ctx, cfg, svc)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("formpipe - PDF form ingestion and generation pipeline\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
