package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/opencurricula/courseminer/internal/cache"
	"github.com/opencurricula/courseminer/internal/course"
)

// countingClient returns one fabricated course per call, named after the call
// number, so tests can tell exactly which submissions happened.
type countingClient struct {
	calls int
}

func (c *countingClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	content := fmt.Sprintf(`[{"CourseName":"Course %d","Credit":"1.0"}]`, c.calls)
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}, nil
}

func writePagesFile(t *testing.T, dir string, n int) string {
	t.Helper()
	var pages []string
	for i := 1; i <= n; i++ {
		pages = append(pages, fmt.Sprintf("catalog page %d", i))
	}
	path := filepath.Join(dir, "catalog.txt")
	if err := os.WriteFile(path, []byte(strings.Join(pages, "\f")), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func newTestApp(t *testing.T, cfg Config, ai *countingClient) *App {
	t.Helper()
	return &App{cfg: cfg, ai: ai, catalog: cache.NewCatalog(cache.NewMemStore())}
}

func readOutput(t *testing.T, path string) []course.Course {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var out []course.Course
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	return out
}

func TestRun_FullRangeRerunHitsCache(t *testing.T) {
	dir := t.TempDir()
	input := writePagesFile(t, dir, 10)
	cfg := Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "courses.json"),
		LLMModel:   "test-model",
		BatchPages: 5,
	}
	ai := &countingClient{}
	a := newTestApp(t, cfg, ai)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if ai.calls != 2 {
		t.Fatalf("first run calls = %d, want 2", ai.calls)
	}
	first := readOutput(t, cfg.OutputPath)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if ai.calls != 2 {
		t.Fatalf("rerun made %d total calls, want 2 (cache should cover the range)", ai.calls)
	}
	second := readOutput(t, cfg.OutputPath)
	if len(second) != len(first) {
		t.Fatalf("rerun output has %d records, first run had %d", len(second), len(first))
	}
}

func TestRun_IncrementalExtensionSubmitsOnlyNewPages(t *testing.T) {
	dir := t.TempDir()
	input := writePagesFile(t, dir, 10)
	cfg := Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "courses.json"),
		LLMModel:   "test-model",
		BatchPages: 5,
		RangeEnd:   5,
	}
	ai := &countingClient{}
	a := newTestApp(t, cfg, ai)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("short run: %v", err)
	}
	if ai.calls != 1 {
		t.Fatalf("short run calls = %d, want 1", ai.calls)
	}

	a.cfg.RangeEnd = 10
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("extended run: %v", err)
	}
	if ai.calls != 2 {
		t.Fatalf("extended run made %d total calls, want 2 (pages 1-5 cached)", ai.calls)
	}

	out := readOutput(t, cfg.OutputPath)
	if len(out) != 2 {
		t.Fatalf("extended output has %d records, want 2", len(out))
	}
}

func TestRun_MidRangeStartDoesNotMarkSkippedPagesCached(t *testing.T) {
	dir := t.TempDir()
	input := writePagesFile(t, dir, 10)
	cfg := Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "courses.json"),
		LLMModel:   "test-model",
		BatchPages: 5,
		RangeStart: 6,
	}
	ai := &countingClient{}
	a := newTestApp(t, cfg, ai)

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("mid-range run: %v", err)
	}
	if ai.calls != 1 {
		t.Fatalf("mid-range run calls = %d, want 1", ai.calls)
	}

	// Pages 1-5 were never processed, so a full-range run must still
	// extract; the earlier run must not have claimed them as cached.
	a.cfg.RangeStart = 0
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("full-range run: %v", err)
	}
	if ai.calls == 1 {
		t.Fatal("full-range run made no calls; pages 1-5 were marked cached without being processed")
	}

	out := readOutput(t, cfg.OutputPath)
	if len(out) < 2 {
		t.Fatalf("full-range output has %d records, want records from both runs", len(out))
	}
}

func TestRun_WritesOptionalExports(t *testing.T) {
	dir := t.TempDir()
	input := writePagesFile(t, dir, 3)
	cfg := Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "courses.json"),
		XLSXPath:   filepath.Join(dir, "courses.xlsx"),
		PDFPath:    filepath.Join(dir, "courses.pdf"),
		LLMModel:   "test-model",
	}
	a := newTestApp(t, cfg, &countingClient{})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, p := range []string{cfg.OutputPath, cfg.XLSXPath, cfg.PDFPath} {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if st.Size() == 0 {
			t.Fatalf("%s is empty", p)
		}
	}
}

func TestRun_RangeOutsideDocument(t *testing.T) {
	dir := t.TempDir()
	input := writePagesFile(t, dir, 3)
	cfg := Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "courses.json"),
		LLMModel:   "test-model",
		RangeStart: 7,
		RangeEnd:   9,
	}
	a := newTestApp(t, cfg, &countingClient{})

	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected error for range beyond document end")
	}
}
