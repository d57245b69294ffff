package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/opencurricula/courseminer/internal/cache"
	"github.com/opencurricula/courseminer/internal/course"
	"github.com/opencurricula/courseminer/internal/export"
	"github.com/opencurricula/courseminer/internal/extractor"
	"github.com/opencurricula/courseminer/internal/llm"
	"github.com/opencurricula/courseminer/internal/pagetext"
	"github.com/opencurricula/courseminer/internal/pipeline"
)

// ErrIncomplete is returned when a run halted before covering the requested
// range (quota exhaustion or caller abort). Partial records are still merged
// into the cache and written to the outputs before this is returned, so the
// CLI can surface the condition through its exit code without losing work.
var ErrIncomplete = errors.New("extraction incomplete")

type App struct {
	cfg     Config
	ai      llm.Client
	catalog *cache.Catalog
}

func New(ctx context.Context, cfg Config) (*App, error) {
	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	transportCfg.HTTPClient = newHTTPClient()
	client := &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}

	a := &App{cfg: cfg, ai: client}

	var store cache.Store
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			// Ignore errors to avoid failing startup on cache hygiene.
			_, _ = cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
		}
		if cfg.CacheMaxEntries > 0 {
			_, _ = cache.EnforceLimit(cfg.CacheDir, 0, cfg.CacheMaxEntries)
		}
		store = &cache.FileStore{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	} else {
		store = cache.NewMemStore()
	}
	a.catalog = cache.NewCatalog(store)

	// Quick connectivity check by listing models. Best-effort: warn and
	// continue so downstream submission surfaces real errors.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if lister, ok := a.ai.(llm.ModelLister); ok {
		models, err := lister.ListModels(pctx)
		if err != nil {
			log.Warn().Err(err).Msg("LLM model list failed; continuing")
		} else if len(models.Models) > 0 {
			log.Info().Int("count", len(models.Models)).Msg("LLM models available")
		} else {
			log.Warn().Msg("LLM returned zero models")
		}
	}

	return a, nil
}

func (a *App) Close() {
	// nothing yet
}

// Run executes one extraction pass over the configured input: load pages,
// consult the cache, submit the uncovered batches, merge, and write outputs.
func (a *App) Run(ctx context.Context) error {
	data, err := os.ReadFile(a.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	fp := cache.Fingerprint(data)

	pages, err := pagetext.Load(a.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("load pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("input %s produced no pages", a.cfg.InputPath)
	}

	start := a.cfg.RangeStart
	if start < 1 {
		start = 1
	}
	end := a.cfg.RangeEnd
	if end <= 0 || end > len(pages) {
		end = len(pages)
	}
	if start > end {
		return fmt.Errorf("page range %d-%d is outside the document (%d pages)", start, end, len(pages))
	}

	source := a.cfg.SourceName
	if source == "" {
		source = filepath.Base(a.cfg.InputPath)
	}

	hit, err := a.catalog.Lookup(ctx, fp, end)
	if err != nil {
		return fmt.Errorf("cache lookup: %w", err)
	}
	if hit.Hit == cache.HitFull {
		log.Info().
			Int("records", len(hit.Records)).
			Int("cachedThrough", hit.Entry.CachedThrough).
			Msg("cache covers requested range, skipping extraction")
		return a.write(hit.Records)
	}
	if hit.Hit == cache.HitPartial && hit.ResumeFrom > start {
		log.Info().
			Int("resumeFrom", hit.ResumeFrom).
			Int("cached", len(hit.Records)).
			Msg("resuming from cached progress")
		start = hit.ResumeFrom
	}

	res, runErr := a.process(ctx, pages, start, end, source)
	if runErr != nil {
		return runErr
	}

	// CachedThrough must stay contiguous from page 1. A run that starts
	// beyond the cached frontier leaves a gap of unprocessed pages: keep its
	// records, but hold the resume point at the frontier so a later run
	// still covers the gap.
	prev := 0
	if hit.Entry != nil {
		prev = hit.Entry.CachedThrough
	}
	through := res.CachedThrough
	if start > prev+1 {
		through = prev
	}
	merged, err := a.catalog.Merge(ctx, fp, res.Courses, through, len(pages))
	if err != nil {
		return fmt.Errorf("cache merge: %w", err)
	}

	if err := a.write(merged); err != nil {
		return err
	}

	if res.Halted {
		log.Warn().
			Err(res.HaltCause).
			Int("pagesProcessed", res.PagesProcessed).
			Int("pagesRequested", end-start+1).
			Int("records", len(merged)).
			Msg("run halted before covering the requested range")
		return fmt.Errorf("%w: %v", ErrIncomplete, res.HaltCause)
	}
	log.Info().
		Int("pagesProcessed", res.PagesProcessed).
		Int("records", len(merged)).
		Msg("extraction complete")
	return nil
}

func (a *App) process(ctx context.Context, pages []string, start, end int, source string) (pipeline.Result, error) {
	ex := &extractor.Extractor{
		Client:      a.ai,
		Model:       a.cfg.LLMModel,
		SourceFile:  source,
		MaxAttempts: a.cfg.MaxAttempts,
		BaseBackoff: a.cfg.BaseBackoff,
	}

	events := make(chan pipeline.Event, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			switch ev.Kind {
			case pipeline.EventBatchError:
				log.Warn().
					Err(ev.Err).
					Int("batch", ev.Progress.BatchIndex+1).
					Int("totalBatches", ev.Progress.TotalBatches).
					Msg("batch failed")
			default:
				log.Info().
					Int("batch", ev.Progress.BatchIndex).
					Int("totalBatches", ev.Progress.TotalBatches).
					Int("pages", ev.Progress.PagesProcessed).
					Int("totalPages", ev.Progress.TotalPages).
					Int("courses", ev.Progress.CoursesFound).
					Msg("progress")
			}
		}
	}()

	proc := &pipeline.Processor{
		Submit:     ex.Submit,
		BatchPages: a.cfg.BatchPages,
		Events:     events,
	}
	res, err := proc.Process(ctx, pages, start, end)
	close(events)
	wg.Wait()
	return res, err
}

func (a *App) write(records []course.Course) error {
	if err := export.WriteJSON(a.cfg.OutputPath, records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().Str("out", a.cfg.OutputPath).Int("records", len(records)).Msg("wrote JSON output")
	if a.cfg.XLSXPath != "" {
		if err := export.WriteXLSX(a.cfg.XLSXPath, records); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		log.Info().Str("out", a.cfg.XLSXPath).Msg("wrote XLSX output")
	}
	if a.cfg.PDFPath != "" {
		if err := export.WritePDF(a.cfg.PDFPath, records); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.PDFPath).Msg("wrote PDF output")
	}
	return nil
}
