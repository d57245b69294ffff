// Package extractor performs one completion-service call per batch and turns
// the raw response into clean course records.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/opencurricula/courseminer/internal/batch"
	"github.com/opencurricula/courseminer/internal/course"
	"github.com/opencurricula/courseminer/internal/llm"
	"github.com/opencurricula/courseminer/internal/parse"
)

// ErrQuotaExhausted is the terminal error signature: the daily request quota
// is spent and no further batches should be submitted this run.
var ErrQuotaExhausted = errors.New("completion service quota exhausted")

// DefaultMaxAttempts bounds the retry loop for transient rate limiting,
// including the initial attempt.
const DefaultMaxAttempts = 3

const systemMessage = "You extract course records from school curriculum documents. " +
	"Respond with a strict JSON array only, no narration and no markdown fences. " +
	"Each element is an object with the string fields: " +
	`"Category", "CourseName", "CourseCode", "GradeLevel", "Length", "Prerequisite", "Credit", "CourseDescription". ` +
	"Omit fields you cannot find. Return [] when the pages contain no course listings."

// Extractor submits batches against an OpenAI-compatible completion endpoint
// with bounded retry on rate limiting.
type Extractor struct {
	Client llm.Client
	Model  string
	// SourceFile tags every extracted record for provenance and dedup.
	SourceFile string
	// MaxAttempts includes the initial attempt. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// BaseBackoff is the first retry delay; each further retry doubles it.
	// Zero means one second.
	BaseBackoff time.Duration

	// sleep is replaced in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Submit runs one batch through the model and returns the surviving records.
// Rate limits are retried with exponential backoff up to MaxAttempts; quota
// exhaustion returns an error wrapping ErrQuotaExhausted; every other failure
// (network, server, unparseable response) is non-terminal and yields zero
// records for this batch only.
func (e *Extractor) Submit(ctx context.Context, b batch.Batch) ([]course.Course, error) {
	if e.Client == nil || strings.TrimSpace(e.Model) == "" {
		return nil, errors.New("extractor not configured")
	}
	req := openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(b)},
		},
		Temperature: 0,
		N:           1,
	}

	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := e.Client.CreateChatCompletion(ctx, req)
		if err == nil {
			return e.records(b, resp)
		}
		if llm.IsQuotaExhausted(err) {
			return nil, fmt.Errorf("batch %d: %w", b.Seq, ErrQuotaExhausted)
		}
		if !llm.IsRateLimited(err) {
			return nil, fmt.Errorf("batch %d (pages %d-%d): %w", b.Seq, b.StartPage, b.EndPage, err)
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := e.backoff(attempt)
		log.Debug().Int("batch", b.Seq).Int("attempt", attempt).Dur("backoff", delay).Msg("rate limited, backing off")
		if serr := e.doSleep(ctx, delay); serr != nil {
			return nil, fmt.Errorf("batch %d: %w", b.Seq, serr)
		}
	}
	return nil, fmt.Errorf("batch %d: rate limited after %d attempts: %w", b.Seq, attempts, lastErr)
}

func (e *Extractor) records(b batch.Batch, resp openai.ChatCompletionResponse) ([]course.Course, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("batch %d: empty completion", b.Seq)
	}
	raw, err := parse.Array(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("batch %d: %w", b.Seq, err)
	}
	out := make([]course.Course, 0, len(raw))
	for _, m := range raw {
		if c, ok := course.Clean(m, e.SourceFile); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// backoff returns the delay before retry attempt+1: base, 2*base, 4*base, ...
func (e *Extractor) backoff(attempt int) time.Duration {
	base := e.BaseBackoff
	if base <= 0 {
		base = time.Second
	}
	return base << (attempt - 1)
}

func (e *Extractor) doSleep(ctx context.Context, d time.Duration) error {
	if e.sleep != nil {
		return e.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func userMessage(b batch.Batch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pages %d-%d of a curriculum document. Extract every course listed:\n\n", b.StartPage, b.EndPage)
	sb.WriteString(b.Text())
	return sb.String()
}
