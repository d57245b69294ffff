package cache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/opencurricula/courseminer/internal/course"
)

// Hit classifies a cache lookup.
type Hit int

const (
	// HitNone: no entry; the caller processes the full requested range.
	HitNone Hit = iota
	// HitPartial: an entry covers a prefix; resume from ResumeFrom.
	HitPartial
	// HitFull: the entry covers the whole requested range; no extraction
	// is performed.
	HitFull
)

// Lookup is the result of consulting the cache before a run.
type Lookup struct {
	Hit        Hit
	Records    []course.Course
	ResumeFrom int
	Entry      *Entry
}

// Catalog owns cache entries. Callers read through Lookup and request
// updates through Merge; they never mutate the store directly.
type Catalog struct {
	store Store
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// Lookup consults the entry for fingerprint against the requested range end.
func (c *Catalog) Lookup(ctx context.Context, fingerprint string, rangeEnd int) (Lookup, error) {
	e, ok, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		return Lookup{}, fmt.Errorf("cache lookup: %w", err)
	}
	if !ok {
		return Lookup{Hit: HitNone, ResumeFrom: 1}, nil
	}
	if rangeEnd <= 0 && e.TotalPages > 0 {
		rangeEnd = e.TotalPages
	}
	if e.CachedThrough >= rangeEnd && rangeEnd > 0 {
		return Lookup{Hit: HitFull, Records: e.Records, Entry: e}, nil
	}
	return Lookup{Hit: HitPartial, Records: e.Records, ResumeFrom: e.CachedThrough + 1, Entry: e}, nil
}

// Merge folds newly extracted records into the cached set for fingerprint
// and returns the merged, deduplicated list. First-seen wins: cached-entry
// ordering is preserved, new unique records are appended.
//
// A run that yielded zero records never creates or modifies an entry; an
// empty result must not masquerade as a legitimate full cache. CachedThrough
// only ever moves forward.
func (c *Catalog) Merge(ctx context.Context, fingerprint string, newRecords []course.Course, newCachedThrough, totalPages int) ([]course.Course, error) {
	e, ok, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("cache read: %w", err)
	}

	var cached []course.Course
	if ok {
		cached = e.Records
	}
	merged, added := mergeRecords(cached, newRecords)

	if len(newRecords) == 0 {
		log.Debug().Str("fingerprint", short(fingerprint)).Msg("zero-record run, cache untouched")
		return merged, nil
	}

	next := &Entry{
		Fingerprint:   fingerprint,
		CachedThrough: newCachedThrough,
		TotalPages:    totalPages,
		Records:       merged,
	}
	if ok {
		if e.CachedThrough > next.CachedThrough {
			next.CachedThrough = e.CachedThrough
		}
		if e.TotalPages > next.TotalPages {
			next.TotalPages = e.TotalPages
		}
	}
	if err := c.store.Put(ctx, fingerprint, next); err != nil {
		return nil, fmt.Errorf("cache write: %w", err)
	}
	log.Debug().
		Str("fingerprint", short(fingerprint)).
		Int("cachedThrough", next.CachedThrough).
		Int("records", len(merged)).
		Int("added", added).
		Msg("cache entry updated")
	return merged, nil
}

// mergeRecords appends records from extra whose dedup key is not already
// present in base. Returns the merged list and the number appended.
func mergeRecords(base, extra []course.Course) ([]course.Course, int) {
	seen := make(map[string]struct{}, len(base))
	out := make([]course.Course, 0, len(base)+len(extra))
	for _, r := range base {
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	added := 0
	for _, r := range extra {
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
		added++
	}
	return out, added
}

func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
