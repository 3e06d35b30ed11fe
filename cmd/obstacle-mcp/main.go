package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/obstacle-mcp/internal/config"
	"github.com/ironsheep/obstacle-mcp/internal/feedback"
	"github.com/ironsheep/obstacle-mcp/internal/frame"
	"github.com/ironsheep/obstacle-mcp/internal/imaging"
	"github.com/ironsheep/obstacle-mcp/internal/logging"
	"github.com/ironsheep/obstacle-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("obstacle-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "obstacle-mcp: %v\n", err)
		os.Exit(2)
	}

	// Logs go to stderr (stdout is for MCP protocol)
	log, logFile, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "obstacle-mcp: %v\n", err)
		os.Exit(2)
	}
	defer logFile.Close()

	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("obstacle MCP server starting")

	if err := run(cfg, log, logFile); err != nil {
		log.WithError(err).Error("server error")
		logFile.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logrus.Logger, logFile io.Closer) error {
	prefs := cfg.Preferences()
	cache := imaging.NewImageCache()

	var source frame.Source
	if cfg.FrameDir != "" {
		dir, err := frame.NewDirSource(cfg.FrameDir, cfg.FrameMaxWidth, log)
		if err != nil {
			return err
		}
		source = dir
		log.WithField("frame_dir", cfg.FrameDir).Info("reading frames from directory")
	}

	sinks := []feedback.Sink{feedback.NewLogSink(log, prefs)}

	var hub *feedback.Hub
	var httpSrv *http.Server
	if cfg.WSAddr != "" {
		hub = feedback.NewHub(prefs, log)
		mux := http.NewServeMux()
		mux.Handle("/feedback", hub)
		httpSrv = &http.Server{
			Addr:              cfg.WSAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("feedback listener failed")
			}
		}()
		log.WithField("addr", cfg.WSAddr).Info("feedback websocket listening on /feedback")
		sinks = append(sinks, hub)
	}

	srv := server.New(server.Config{
		Logger:       log,
		Source:       source,
		Sink:         feedback.Multi(sinks...),
		Cache:        cache,
		Defaults:     cfg.SessionOptions(),
		Preferences:  prefs,
		OverlayColor: cfg.OverlayColor,
		MaxWidth:     cfg.FrameMaxWidth,
		Version:      Version,
	})

	shutdown := func() {
		srv.Controller().Stop()
		if hub != nil {
			hub.Close()
		}
		if httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(ctx)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go onSignal(sigs, log, shutdown, logFile, os.Exit)

	err := srv.Run()
	shutdown()
	return err
}

// onSignal waits for a signal, shuts down and exits. Deferred calls in main
// do not run after exit, so the log file is closed here.
func onSignal(sigs <-chan os.Signal, log logrus.FieldLogger, shutdown func(), logFile io.Closer, exit func(int)) {
	sig := <-sigs
	log.WithField("signal", sig.String()).Info("shutting down")
	shutdown()
	if err := logFile.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "obstacle-mcp: closing log file: %v\n", err)
	}
	exit(0)
}

func printHelp() {
	fmt.Println("obstacle-mcp - MCP server for camera obstacle detection")
	fmt.Println()
	fmt.Println("Usage: obstacle-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from ./.env):")
	fmt.Println("  OBSTACLE_MCP_LOG_LEVEL=info         debug, info, warn or error")
	fmt.Println("  OBSTACLE_MCP_LOG_FILE=path          Also write logs to a rotated file")
	fmt.Println("  OBSTACLE_MCP_INTERVAL_MS=1000       Detection interval")
	fmt.Println("  OBSTACLE_MCP_SENSITIVITY=50         Default edge sensitivity (0-100)")
	fmt.Println("  OBSTACLE_MCP_FRAME_DIR=path         Read frames from a directory")
	fmt.Println("  OBSTACLE_MCP_FRAME_MAX_WIDTH=0      Downscale frames wider than this")
	fmt.Println("  OBSTACLE_MCP_VOICE=true             Speak warnings")
	fmt.Println("  OBSTACLE_MCP_VIBRATION=true         Vibration patterns in cues")
	fmt.Println("  OBSTACLE_MCP_VOLUME=high            high, medium or low")
	fmt.Println("  OBSTACLE_MCP_WS_ADDR=host:port      Serve cues on ws://host:port/feedback")
	fmt.Println("  OBSTACLE_MCP_OVERLAY_COLOR=#ff0000  Region highlight colour")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
