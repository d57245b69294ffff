package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/opencurricula/courseminer/internal/batch"
	"github.com/opencurricula/courseminer/internal/llm"
	"github.com/opencurricula/courseminer/internal/parse"
)

type fakeClient struct {
	calls     int
	responses []func() (openai.ChatCompletionResponse, error)
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i]()
}

func ok(content string) func() (openai.ChatCompletionResponse, error) {
	return func() (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		}}, nil
	}
}

func fail(err error) func() (openai.ChatCompletionResponse, error) {
	return func() (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, err
	}
}

func testBatch() batch.Batch {
	return batch.Batch{Seq: 1, StartPage: 1, EndPage: 2, Pages: []string{"a", "b"}}
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestSubmit_Success(t *testing.T) {
	fc := &fakeClient{responses: []func() (openai.ChatCompletionResponse, error){
		ok("Here you go:\n```json\n[{\"CourseName\":\"Algebra I\"},{\"CourseName\":\"X\"}]\n```"),
	}}
	e := &Extractor{Client: fc, Model: "m", SourceFile: "catalog.pdf", sleep: noSleep}
	got, err := e.Submit(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// "X" is below the minimum name length and must be dropped.
	if len(got) != 1 || got[0].CourseName != "Algebra I" {
		t.Fatalf("got %+v", got)
	}
	if got[0].SourceFile != "catalog.pdf" {
		t.Fatalf("source = %q", got[0].SourceFile)
	}
}

func TestSubmit_BackoffBound(t *testing.T) {
	fc := &fakeClient{responses: []func() (openai.ChatCompletionResponse, error){
		fail(llm.RateLimitError()),
	}}
	slept := []time.Duration{}
	e := &Extractor{Client: fc, Model: "m", MaxAttempts: 3, BaseBackoff: time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}}
	_, err := e.Submit(context.Background(), testBatch())
	if err == nil {
		t.Fatal("expected failure")
	}
	if errors.Is(err, ErrQuotaExhausted) {
		t.Fatal("rate limit exhaustion must stay non-terminal")
	}
	if fc.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", fc.calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("backoff schedule = %v", slept)
	}
}

func TestSubmit_RateLimitThenSuccess(t *testing.T) {
	fc := &fakeClient{responses: []func() (openai.ChatCompletionResponse, error){
		fail(llm.RateLimitError()),
		ok(`[{"CourseName":"Biology"}]`),
	}}
	e := &Extractor{Client: fc, Model: "m", sleep: noSleep}
	got, err := e.Submit(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(got) != 1 || got[0].CourseName != "Biology" {
		t.Fatalf("got %+v", got)
	}
}

func TestSubmit_QuotaTerminal(t *testing.T) {
	fc := &fakeClient{responses: []func() (openai.ChatCompletionResponse, error){
		fail(llm.QuotaError()),
	}}
	e := &Extractor{Client: fc, Model: "m", sleep: noSleep}
	_, err := e.Submit(context.Background(), testBatch())
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	if fc.calls != 1 {
		t.Fatalf("quota errors must not be retried, calls = %d", fc.calls)
	}
}

func TestSubmit_ServerErrorNonTerminal(t *testing.T) {
	fc := &fakeClient{responses: []func() (openai.ChatCompletionResponse, error){
		fail(&openai.APIError{HTTPStatusCode: 500, Message: "upstream exploded"}),
	}}
	e := &Extractor{Client: fc, Model: "m", sleep: noSleep}
	_, err := e.Submit(context.Background(), testBatch())
	if err == nil || errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected non-terminal error, got %v", err)
	}
	if fc.calls != 1 {
		t.Fatalf("5xx is not retried, calls = %d", fc.calls)
	}
}

func TestSubmit_ParseFailureNonTerminal(t *testing.T) {
	fc := &fakeClient{responses: []func() (openai.ChatCompletionResponse, error){
		ok("I found no structured data on these pages, sorry."),
	}}
	e := &Extractor{Client: fc, Model: "m", sleep: noSleep}
	_, err := e.Submit(context.Background(), testBatch())
	if !errors.Is(err, parse.ErrNoArray) {
		t.Fatalf("expected ErrNoArray, got %v", err)
	}
}
