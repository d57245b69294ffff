package app

import "time"

// Config holds runtime configuration for one extraction run.
type Config struct {
	// InputPath is the document to process: pre-extracted page texts as
	// JSON, plain text with form-feed page breaks, or HTML.
	InputPath  string
	OutputPath string
	// XLSXPath and PDFPath enable the optional exports when non-empty.
	XLSXPath string
	PDFPath  string
	// SourceName tags extracted records for provenance; defaults to the
	// input file's base name.
	SourceName string

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Page range and batching
	RangeStart  int
	RangeEnd    int
	BatchPages  int
	MaxAttempts int
	BaseBackoff time.Duration

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxEntries  int
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}
