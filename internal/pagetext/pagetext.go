// Package pagetext turns an on-disk document into the ordered per-page text
// slice the pipeline consumes. Heavy formats (PDF, Word) are extracted
// upstream; this package handles the interchange forms the CLI accepts.
package pagetext

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads path and returns one text string per page.
//
//	.json        — a JSON array of page strings (canonical interchange form)
//	.html, .htm  — readable text of the document, a single page
//	anything else — plain text; form feeds (\f) separate pages when present
func Load(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FromJSON(b)
	case ".html", ".htm":
		return []string{FromHTML(b)}, nil
	default:
		return FromText(string(b)), nil
	}
}

// FromJSON decodes a JSON array of page strings.
func FromJSON(b []byte) ([]string, error) {
	var pages []string
	if err := json.Unmarshal(b, &pages); err != nil {
		return nil, fmt.Errorf("parse pages json: %w", err)
	}
	return pages, nil
}

// FromText splits plain text into pages on form feeds. Text without form
// feeds is one page.
func FromText(s string) []string {
	parts := strings.Split(s, "\f")
	pages := make([]string, 0, len(parts))
	for _, p := range parts {
		pages = append(pages, strings.TrimRight(p, "\r\n"))
	}
	// A trailing form feed produces an empty final page; drop it.
	for len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
