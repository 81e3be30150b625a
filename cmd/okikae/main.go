// Package main is the Okikae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/okikae/internal/archive"
	"github.com/hyperjump/okikae/internal/batch"
	"github.com/hyperjump/okikae/internal/config"
	"github.com/hyperjump/okikae/internal/models"
	"github.com/hyperjump/okikae/internal/replace"
	"github.com/hyperjump/okikae/internal/server"
	"github.com/hyperjump/okikae/internal/storage"
	"github.com/hyperjump/okikae/internal/watcher"
	"github.com/hyperjump/okikae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/okikae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "okikae server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "run":
		runBatch()
	case "server":
		runServer()
	case "watch":
		runWatch()
	case "history":
		runHistory()
	case "version", "--version", "-v":
		fmt.Printf("okikae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// readDocuments loads each path into memory. The base name, not the full
// path, identifies the file in outcomes and in the archive.
func readDocuments(paths []string) ([]*models.SourceDocument, error) {
	docs := make([]*models.SourceDocument, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		docs = append(docs, &models.SourceDocument{Name: filepath.Base(p), Content: content})
	}
	return docs, nil
}

func runBatch() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	find := fs.String("find", "", "text to find (default from config)")
	repl := fs.String("replace", "", "replacement text (default from config)")
	caseSensitive := fs.Bool("case-sensitive", false, "match case exactly")
	workers := fs.Int("workers", 0, "files processed concurrently (default from config)")
	output := fs.String("output", archive.DefaultName, "output archive path")
	dryRun := fs.Bool("dry-run", false, "print the report without writing the archive")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: okikae run [flags] <file>...")
		os.Exit(1)
	}

	req := models.ReplacementRequest{Find: *find, Replace: *repl, CaseSensitive: *caseSensitive}
	nWorkers := *workers
	if cfg, _, err := loadConfig(*configPath); err == nil {
		if req.Find == "" {
			req = models.ReplacementRequest{
				Find:          cfg.Replace.Find,
				Replace:       cfg.Replace.Replace,
				CaseSensitive: cfg.Replace.CaseSensitive,
			}
		}
		if nWorkers == 0 {
			nWorkers = cfg.Batch.Workers
		}
	}
	if nWorkers < 1 {
		nWorkers = 1
	}

	docs, err := readDocuments(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	orch := batch.New(replace.NewRegistry(), batch.WithWorkers(nWorkers))
	summary, err := orch.Run(context.Background(), req, docs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}

	if err := archive.WriteReport(os.Stdout, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Report failed: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		return
	}
	if summary.Succeeded() == 0 {
		fmt.Println("No files succeeded; archive not written")
		os.Exit(1)
	}
	if err := archive.WriteFile(*output, summary); err != nil {
		fmt.Fprintf(os.Stderr, "Archive failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Archive written: %s\n", *output)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	orch := batch.New(replace.NewRegistry(),
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithLogger(logger),
	)
	srv := server.NewServer(orch, store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Watch.InputDir == "" || cfg.Watch.OutputDir == "" {
		fmt.Println("watch requires watch.input_dir and watch.output_dir in config")
		os.Exit(1)
	}
	req := models.ReplacementRequest{
		Find:          cfg.Replace.Find,
		Replace:       cfg.Replace.Replace,
		CaseSensitive: cfg.Replace.CaseSensitive,
	}
	if err := req.Validate(); err != nil {
		fmt.Printf("watch requires replace.find in config: %v\n", err)
		os.Exit(1)
	}

	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.Watch.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	orch := batch.New(replace.NewRegistry(), batch.WithLogger(logger))
	logger.Info("watch mode",
		zap.String("config_path", resolvedConfigPath),
		zap.String("input_dir", cfg.Watch.InputDir),
		zap.String("output_dir", cfg.Watch.OutputDir),
		zap.String("find", utils.Truncate(req.Find, 64)),
	)

	onFile := func(path string) {
		if err := processWatchedFile(orch, store, req, path, cfg.Watch.OutputDir); err != nil {
			logger.Warn("watch processing failed", zap.String("path", path), zap.Error(err))
		} else {
			logger.Info("watch processed file", zap.String("path", path))
		}
	}
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	w := watcher.NewWatcher(cfg.Watch.InputDir, orch.Registry().Supported(), onFile, watchOpts...)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := w.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	if err := w.ProcessExisting(); err != nil {
		logger.Warn("failed to process existing files", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down...")
}

// processWatchedFile runs one hot-folder file through the batch and writes
// the modified document to outputDir under its original name. The run is
// recorded in history like an API run.
func processWatchedFile(orch *batch.Orchestrator, store storage.Storage, req models.ReplacementRequest, path, outputDir string) error {
	docs, err := readDocuments([]string{path})
	if err != nil {
		return err
	}
	summary, err := orch.Run(context.Background(), req, docs)
	if err != nil {
		return err
	}
	if store != nil {
		_ = store.SaveRun(context.Background(), summary)
	}
	outcome := summary.Outcomes[0]
	if !outcome.Succeeded() {
		return fmt.Errorf("%s: %s", outcome.Status, outcome.Error)
	}
	return os.WriteFile(filepath.Join(outputDir, outcome.Filename), outcome.Output, 0644)
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the database directly)")
	limit := fs.Int("limit", 20, "number of runs to show")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var runs []*models.BatchSummary
	if *serverURL != "" {
		res, err := historyViaHTTP(*serverURL, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
		runs = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		runs, err = store.ListRuns(context.Background(), *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for _, run := range runs {
			fmt.Printf("%s  %s  %q -> %q  %d file(s), %d replacement(s)\n",
				run.ID,
				run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				utils.Truncate(run.Request.Find, 32),
				utils.Truncate(run.Request.Replace, 32),
				len(run.Outcomes),
				run.TotalReplacements(),
			)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded")
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func historyViaHTTP(serverURL string, limit int) ([]*models.BatchSummary, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/runs?limit=%d", serverURL, limit))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Runs []*models.BatchSummary `json:"runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Runs, nil
}

func printUsage() {
	fmt.Println(`okikae - Batch find-and-replace for documents

Usage:
  okikae run [flags] <file>...    Replace text in files, write the archive
  okikae server [flags]           Start the HTTP API
  okikae watch [flags]            Process files dropped into the input folder
  okikae history [flags]          Show recent runs
  okikae version                  Show version
  okikae help                     Show this help

Run Flags:
  --config string      Config file path (default: /usr/local/etc/okikae/config.yaml)
  --find string        Text to find (default from config)
  --replace string     Replacement text (default from config)
  --case-sensitive     Match case exactly (default: false)
  --workers int        Files processed concurrently (default from config)
  --output string      Archive path (default: modified_files.zip)
  --dry-run            Print the report without writing the archive

Server Flags:
  --config string      Config file path
  --debug              Enable debug logging

Watch Flags:
  --config string      Config file path (watch.input_dir, watch.output_dir
                       and replace.find must be set)
  --debug              Enable debug logging

History Flags:
  --config string      Config file path (for direct database access)
  --server string      Server URL (empty = read the database directly)
  --limit int          Number of runs to show (default: 20)
  --output string      Output format: text or json (default: text)

Examples:
  okikae run --find draft --replace final report.pdf data.csv
  okikae run --find "Q1 2026" --replace "Q2 2026" --case-sensitive *.xlsx
  okikae server
  okikae watch
  okikae history --limit 5`)
}
