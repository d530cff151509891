// Package main is the ocrdown CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/ocrdown/internal/cli"
	"github.com/hyperjump/ocrdown/internal/config"
	"github.com/hyperjump/ocrdown/internal/inbox"
	"github.com/hyperjump/ocrdown/internal/mistral"
	"github.com/hyperjump/ocrdown/internal/ocr"
	"github.com/hyperjump/ocrdown/internal/server"
	"github.com/hyperjump/ocrdown/internal/session"
	"github.com/hyperjump/ocrdown/internal/storage"
	"github.com/hyperjump/ocrdown/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ocrdown/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When the default path
// does not exist either, built-in defaults are used and the returned path is "".
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	var err error
	switch command {
	case "server":
		err = runServer(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:], os.Stdout)
	case "watch":
		err = runWatch(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("ocrdown version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocrdown %s: %v\n", command, err)
		os.Exit(1)
	}
}

// setup loads and validates configuration and creates the logger.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", debugMode),
		zap.String("storage_backend", cfg.Storage.Backend),
	)
	return cfg, logger, nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, logger, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := storage.NewResultStore(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize result store: %w", err)
	}
	defer store.Close()

	sessions, err := session.NewCodec(cfg.Server.SessionSecret)
	if err != nil {
		return err
	}
	if cfg.Server.SessionSecret == "" {
		logger.Info("no session secret configured, sessions will not survive a restart",
			zap.String("env", config.EnvSessionSecret))
	}

	proc := newProcessor(cfg, logger, ocr.WithStore(store))
	srv := server.NewServer(proc, store, sessions, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func runConvert(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	output := fs.String("o", "", "output file (default: stdout)")
	format := fs.String("format", "markdown", "output format: markdown, html or json")
	if err := fs.Parse(flagsFirst(args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: ocrdown convert [flags] <file>")
	}
	outFormat, err := cli.ParseOutputFormat(*format)
	if err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	proc := newProcessor(cfg, logger)
	md, err := proc.Convert(context.Background(), name, data)
	if err != nil {
		return err
	}
	conv := cli.NewConversion(path, md)
	if ocr.NewClassifier(cfg.Upload).Classify(name) == ocr.KindDocument {
		if n, err := ocr.PageCount(data); err == nil {
			conv.Pages = n
		}
	}

	w := stdout
	if *output != "" && *output != "-" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return cli.WriteConversion(w, conv, outFormat)
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, logger, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if len(cfg.Inbox.Directories) == 0 {
		return errors.New("no inbox directories configured (inbox.directories)")
	}

	proc := newProcessor(cfg, logger)
	in := inbox.New(cfg.Inbox, cfg.Upload.AllExtensions(), proc, logger.Named("inbox"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := in.Start(ctx); err != nil {
		return err
	}
	logger.Info("watching inbox",
		zap.Strings("directories", cfg.Inbox.Directories),
		zap.String("output_dir", cfg.Inbox.OutputDir),
	)
	<-ctx.Done()
	logger.Info("Shutting down...")
	in.Stop()
	return nil
}

func newProcessor(cfg *config.Config, logger *zap.Logger, opts ...ocr.ProcessorOption) *ocr.Processor {
	client := mistral.NewClient(cfg.OCR.APIKey,
		mistral.WithBaseURL(cfg.OCR.BaseURL),
		mistral.WithModel(cfg.OCR.Model),
		mistral.WithLogger(logger.Named("mistral")),
	)
	opts = append([]ocr.ProcessorOption{
		ocr.WithTimeout(cfg.OCR.Timeout),
		ocr.WithSignedURLExpiry(cfg.OCR.SignedURLExpiry),
		ocr.WithLogger(logger.Named("ocr")),
	}, opts...)
	return ocr.NewProcessor(client, ocr.NewClassifier(cfg.Upload), opts...)
}

// flagsFirst moves any flags (and their values) that appear after the file
// argument to the front, since flag.Parse stops at the first non-flag.
func flagsFirst(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`ocrdown - Convert images and PDFs to Markdown with Mistral OCR

Usage:
  ocrdown server [flags]           Start the web interface
  ocrdown convert [flags] <file>   Convert one file and print the Markdown
  ocrdown watch [flags]            Convert files dropped into the inbox directories
  ocrdown version                  Show version
  ocrdown help                     Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/ocrdown/config.yaml)
  --debug            Enable debug logging

Convert Flags:
  -o string          Output file (default: stdout)
  --format string    Output format: markdown, html or json (default: markdown)

Environment:
  MISTRAL_API_KEY         API key for the OCR service (required)
  OCRDOWN_SESSION_SECRET  Secret for signing session cookies (default: random per process)

Examples:
  ocrdown server
  ocrdown convert scan.pdf -o scan.md
  ocrdown convert --format json receipt.jpg
  ocrdown watch --config ./config.yaml`)
}
