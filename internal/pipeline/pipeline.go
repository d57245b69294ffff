// Package pipeline drives batch-by-batch extraction across one document run.
// Batches are processed strictly sequentially: the completion service's daily
// quota and 429 behavior make concurrent calls counter-productive, and
// progress must reflect true completion order.
package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/opencurricula/courseminer/internal/batch"
	"github.com/opencurricula/courseminer/internal/course"
	"github.com/opencurricula/courseminer/internal/extractor"
)

// SubmitFunc submits one batch and returns the extracted records. It is the
// seam between the processor and the extraction client.
type SubmitFunc func(ctx context.Context, b batch.Batch) ([]course.Course, error)

// EventKind discriminates pipeline events.
type EventKind int

const (
	// EventProgress is emitted after every batch, in batch order.
	EventProgress EventKind = iota
	// EventBatchError reports a non-terminal per-batch failure. The run
	// continues with the next batch.
	EventBatchError
)

// Progress describes how far the run has come. It is informational only;
// correctness never depends on it.
type Progress struct {
	BatchIndex     int `json:"batchIndex"`
	TotalBatches   int `json:"totalBatches"`
	PagesProcessed int `json:"pagesProcessed"`
	TotalPages     int `json:"totalPages"`
	CoursesFound   int `json:"coursesFound"`
}

// Event is one entry in the ordered progress/error stream consumed by the
// caller.
type Event struct {
	Kind     EventKind
	Progress Progress
	Err      error
}

// Result is the outcome of one document run. Partial success is a normal,
// expected outcome, not an error.
type Result struct {
	// Courses is the deduplicated record accumulation, first-seen wins.
	Courses []course.Course
	// CachedThrough is the highest page index with all batches up to and
	// including it successful; the resume point for a later run.
	CachedThrough int
	// PagesProcessed counts pages of completed batches, successful or
	// failed; a batch that halted the run is excluded.
	PagesProcessed int
	// Halted is true when the run stopped early: quota exhaustion or caller
	// abort. Accumulated records are preserved either way.
	Halted bool
	// HaltCause carries the terminal condition when Halted.
	HaltCause error
}

// Processor orchestrates planning, submission, and accumulation for one
// document.
type Processor struct {
	Submit SubmitFunc
	// BatchPages bounds pages per batch; zero means batch.DefaultPages.
	BatchPages int
	// Events, when non-nil, receives the ordered event stream. Sends block,
	// so the caller must consume until Process returns.
	Events chan<- Event
}

// Process runs extraction over pages[start-1:end]. Only an invalid range is
// returned as an error, before any submission; every other failure is either
// absorbed at batch granularity or recorded as the halt cause.
func (p *Processor) Process(ctx context.Context, pages []string, start, end int) (Result, error) {
	batches, err := batch.Plan(pages, start, end, p.BatchPages)
	if err != nil {
		return Result{}, err
	}

	var res Result
	seen := map[string]struct{}{}
	contiguous := true

	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			res.Halted = true
			res.HaltCause = err
			log.Warn().Int("batch", b.Seq).Msg("run aborted before batch submission")
			break
		}

		records, err := p.Submit(ctx, b)
		switch {
		case err == nil:
			for _, c := range records {
				if _, dup := seen[c.Key()]; dup {
					continue
				}
				seen[c.Key()] = struct{}{}
				res.Courses = append(res.Courses, c)
			}
			if contiguous {
				res.CachedThrough = b.EndPage
			}
		case errors.Is(err, extractor.ErrQuotaExhausted):
			res.Halted = true
			res.HaltCause = err
			log.Warn().Err(err).Int("batch", b.Seq).Msg("quota exhausted, halting run")
		default:
			contiguous = false
			log.Warn().Err(err).Int("batch", b.Seq).Msg("batch failed, continuing")
			p.emit(Event{Kind: EventBatchError, Err: err, Progress: p.progress(i, batches, pages, len(seen))})
		}

		// A batch that halted the run yielded nothing; its pages do not
		// count as processed.
		if res.Halted {
			p.emit(Event{Kind: EventProgress, Progress: p.progress(i, batches, pages, len(seen))})
			break
		}
		res.PagesProcessed += b.PageCount()
		p.emit(Event{Kind: EventProgress, Progress: p.progress(i+1, batches, pages, len(seen))})
	}
	return res, nil
}

func (p *Processor) progress(done int, batches []batch.Batch, pages []string, found int) Progress {
	processed := 0
	for _, b := range batches[:done] {
		processed += b.PageCount()
	}
	return Progress{
		BatchIndex:     done,
		TotalBatches:   len(batches),
		PagesProcessed: processed,
		TotalPages:     len(pages),
		CoursesFound:   found,
	}
}

func (p *Processor) emit(ev Event) {
	if p.Events == nil {
		return
	}
	p.Events <- ev
}
