package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opencurricula/courseminer/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load .env before flag parsing so env-backed flag defaults see it.
	// A missing file is fine.
	_ = godotenv.Load()

	var (
		configPath  string
		inputPath   string
		outputPath  string
		xlsxPath    string
		pdfPath     string
		sourceName  string
		llmBaseURL  string
		llmModel    string
		llmKey      string
		rangeStart  int
		rangeEnd    int
		batchPages  int
		maxAttempts int
		baseBackoff time.Duration
		cacheDir    string
		cacheMaxAge time.Duration
		cacheMaxN   int
		cacheClear  bool
		cacheStrict bool
		verbose     bool
	)

	flag.StringVar(&configPath, "config", "", "Path to YAML or JSON config file (flags and env take precedence)")
	flag.StringVar(&inputPath, "input", "", "Path to the document: JSON page array, plain text with form feeds, or HTML")
	flag.StringVar(&outputPath, "output", "courses.json", "Path to write extracted courses as JSON")
	flag.StringVar(&xlsxPath, "output.xlsx", "", "Optional path to also write an XLSX workbook")
	flag.StringVar(&pdfPath, "output.pdf", "", "Optional path to also write a PDF summary")
	flag.StringVar(&sourceName, "source", "", "Source label stored on every record (defaults to the input file name)")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.IntVar(&rangeStart, "pages.start", 0, "First page to process (1-based; 0 means first)")
	flag.IntVar(&rangeEnd, "pages.end", 0, "Last page to process (0 means last)")
	flag.IntVar(&batchPages, "pages.perBatch", 0, "Pages per completion call (0 means default)")
	flag.IntVar(&maxAttempts, "retry.maxAttempts", 0, "Attempts per batch on rate limiting, including the first (0 means default)")
	flag.DurationVar(&baseBackoff, "retry.baseBackoff", 0, "First retry delay; doubles per retry (0 means default)")
	flag.StringVar(&cacheDir, "cache.dir", ".courseminer-cache", "Cache directory path; empty disables the on-disk cache")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	flag.IntVar(&cacheMaxN, "cache.maxEntries", 0, "Max cache entries to keep, oldest evicted first; 0 disables")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Clear cache directory before run")
	flag.BoolVar(&cacheStrict, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := app.Config{
		InputPath:        inputPath,
		OutputPath:       outputPath,
		XLSXPath:         xlsxPath,
		PDFPath:          pdfPath,
		SourceName:       sourceName,
		LLMBaseURL:       llmBaseURL,
		LLMModel:         llmModel,
		LLMAPIKey:        llmKey,
		RangeStart:       rangeStart,
		RangeEnd:         rangeEnd,
		BatchPages:       batchPages,
		MaxAttempts:      maxAttempts,
		BaseBackoff:      baseBackoff,
		CacheDir:         cacheDir,
		CacheMaxAge:      cacheMaxAge,
		CacheMaxEntries:  cacheMaxN,
		CacheClear:       cacheClear,
		CacheStrictPerms: cacheStrict,
		Verbose:          verbose,
	}

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("config", configPath).Msg("load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)

	if err := app.ValidateConfig(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		// Exit code policy: 2 when the run halted with partial results already
		// written (quota exhaustion, interrupt), 1 for everything else.
		if errors.Is(err, app.ErrIncomplete) {
			log.Warn().Err(err).Msg("run incomplete; partial results written")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
