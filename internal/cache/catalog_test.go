package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/opencurricula/courseminer/internal/course"
)

func rec(name string) course.Course {
	return course.Course{CourseName: name, SourceFile: "catalog.pdf"}
}

func TestLookup_NoEntry(t *testing.T) {
	c := NewCatalog(NewMemStore())
	got, err := c.Lookup(context.Background(), "fp", 10)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Hit != HitNone || got.ResumeFrom != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestLookup_FullAndPartial(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(NewMemStore())
	if _, err := c.Merge(ctx, "fp", []course.Course{rec("Algebra I")}, 5, 20); err != nil {
		t.Fatalf("merge: %v", err)
	}

	full, err := c.Lookup(ctx, "fp", 5)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if full.Hit != HitFull || len(full.Records) != 1 {
		t.Fatalf("full = %+v", full)
	}

	partial, err := c.Lookup(ctx, "fp", 10)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if partial.Hit != HitPartial || partial.ResumeFrom != 6 {
		t.Fatalf("partial = %+v", partial)
	}
	if len(partial.Records) != 1 {
		t.Fatalf("partial records = %d", len(partial.Records))
	}
}

func TestMerge_Idempotent(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(NewMemStore())
	records := []course.Course{rec("Algebra I"), rec("Biology")}
	first, err := c.Merge(ctx, "fp", records, 5, 10)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	second, err := c.Merge(ctx, "fp", records, 5, 10)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("sizes %d then %d, want 2", len(first), len(second))
	}
	// Cached ordering is preserved, appended uniques follow.
	if second[0].CourseName != "Algebra I" || second[1].CourseName != "Biology" {
		t.Fatalf("order = %+v", second)
	}
}

func TestMerge_CachedThroughMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	c := NewCatalog(store)
	if _, err := c.Merge(ctx, "fp", []course.Course{rec("Algebra I")}, 10, 10); err != nil {
		t.Fatalf("merge: %v", err)
	}
	// A later run that processed fewer pages must not move the entry back.
	if _, err := c.Merge(ctx, "fp", []course.Course{rec("Biology")}, 3, 10); err != nil {
		t.Fatalf("merge: %v", err)
	}
	e, ok, _ := store.Get(ctx, "fp")
	if !ok || e.CachedThrough != 10 {
		t.Fatalf("entry = %+v", e)
	}
	if len(e.Records) != 2 {
		t.Fatalf("records = %d", len(e.Records))
	}
}

func TestMerge_ZeroRecordGuard(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	c := NewCatalog(store)

	// Zero records for an unknown fingerprint: no entry is created.
	if _, err := c.Merge(ctx, "fp", nil, 7, 10); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "fp"); ok {
		t.Fatal("zero-record run must not create an entry")
	}

	// Zero records for an existing fingerprint: entry is untouched.
	if _, err := c.Merge(ctx, "fp", []course.Course{rec("Algebra I")}, 5, 10); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := c.Merge(ctx, "fp", nil, 9, 10); err != nil {
		t.Fatalf("merge: %v", err)
	}
	e, ok, _ := store.Get(ctx, "fp")
	if !ok || e.CachedThrough != 5 {
		t.Fatalf("entry = %+v", e)
	}
}

func TestMerge_DistinctFingerprintsConcurrently(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog(NewMemStore())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp := fmt.Sprintf("fp-%d", i)
			for j := 0; j < 20; j++ {
				if _, err := c.Merge(ctx, fp, []course.Course{rec(fmt.Sprintf("Course %d-%d", i, j))}, j+1, 20); err != nil {
					t.Errorf("merge %s: %v", fp, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	for i := 0; i < 8; i++ {
		got, err := c.Lookup(ctx, fmt.Sprintf("fp-%d", i), 20)
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if got.Hit != HitFull || len(got.Records) != 20 {
			t.Fatalf("fp-%d = %+v", i, got.Hit)
		}
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint([]byte("curriculum"))
	b := Fingerprint([]byte("curriculum"))
	if a != b || len(a) != 64 {
		t.Fatalf("fingerprints %q vs %q", a, b)
	}
	if a == Fingerprint([]byte("other")) {
		t.Fatal("distinct content must produce distinct fingerprints")
	}
}
