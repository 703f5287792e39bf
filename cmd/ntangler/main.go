// Command ntangler watches a set of local git working copies, drafts
// a Conventional Commits message for each modified file with an LLM,
// and commits that file on its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GovCraft/ntangler/internal/buildinfo"
	"github.com/GovCraft/ntangler/internal/config"
	"github.com/GovCraft/ntangler/internal/llm"
	"github.com/GovCraft/ntangler/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println(buildinfo.String())
		return
	}

	logger, rotator, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ntangler: %v\n", err)
		os.Exit(1)
	}
	defer rotator.Close()

	fmt.Fprintf(os.Stderr, "ntangler %s starting\n", buildinfo.Version)

	cfgPath, err := config.FindConfig(*configPath)
	if err != nil {
		fatal(logger, "config", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(logger, "failed to load config", err)
	}

	// Reconfigure the logger with the config-driven level now that it's
	// known; the bootstrap logger above only ever logs at info or above.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			fatal(logger, "invalid log_level in config", err)
		}
		logger = slog.New(slog.NewTextHandler(rotator, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}
	logger.Info("config loaded", "path", cfgPath, "repositories", len(cfg.Repositories), "model", cfg.Model)

	apiToken := firstNonEmpty(os.Getenv("NTANGLER_API_TOKEN"), os.Getenv("OPENAI_API_KEY"))
	if apiToken == "" {
		fatal(logger, "startup", fmt.Errorf("no API token set (expected NTANGLER_API_TOKEN or OPENAI_API_KEY)"))
	}
	endpoint := os.Getenv("NTANGLER_ENDPOINT")

	client := llm.NewAnthropicClient(apiToken, endpoint, logger)

	orch, err := orchestrator.New(cfg, client, logger)
	if err != nil {
		fatal(logger, "failed to start orchestrator", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "ntangler shutting down")
		logger.Info("shutdown signal received")
		cancel()
	}()

	orch.Run(ctx)
	cancel()
	logger.Info("stopped")
}

// newLogger opens the rolling daily log file under the user cache
// directory (§6.6) and returns a bootstrap logger writing to it (level
// fixed at info until the config-driven level is known) along with the
// rotator itself, so the handler can be rebuilt against the same
// writer once config.Load resolves log_level.
func newLogger() (*slog.Logger, *lumberjack.Logger, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, nil, fmt.Errorf("locate user cache directory: %w", err)
	}
	logDir := filepath.Join(cacheDir, "ntangler")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename: filepath.Join(logDir, "ntangler.log"),
		MaxAge:   1, // days; rotated backups older than this are removed
		MaxSize:  50,
		Compress: true,
	}

	// lumberjack rotates on size alone; roll the file over once a day too.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			_ = rotator.Rotate()
		}
	}()

	handler := slog.NewTextHandler(rotator, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})
	return slog.New(handler), rotator, nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "ntangler: %s: %v\n", msg, err)
	os.Exit(1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
