// Package batch splits an ordered sequence of page texts into bounded units
// of work for the extraction client.
package batch

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPages is the default number of pages per batch. Small enough to keep
// each request payload well under model limits, large enough to not burn the
// daily call quota on tiny requests.
const DefaultPages = 5

// ErrInvalidRange is returned when the requested page range is empty or
// inverted after clamping. It fails fast before any network call.
var ErrInvalidRange = errors.New("invalid page range")

// Batch is one unit of work: a contiguous run of pages with 1-based bounds
// and a stable 1-based sequence number.
type Batch struct {
	Seq       int
	StartPage int
	EndPage   int
	Pages     []string
}

// Text joins the batch pages with page markers so the model can attribute
// records to pages when a course spans a boundary.
func (b Batch) Text() string {
	var sb strings.Builder
	for i, p := range b.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- page %d ---\n", b.StartPage+i)
		sb.WriteString(p)
	}
	return sb.String()
}

// PageCount returns the number of pages in the batch.
func (b Batch) PageCount() int {
	return b.EndPage - b.StartPage + 1
}

// Plan produces contiguous ascending batches of up to perBatch pages covering
// pages[start-1:end]. Bounds are clamped to the available pages, with end<=0
// meaning through the last page; an empty or inverted range after clamping is
// an error.
func Plan(pages []string, start, end, perBatch int) ([]Batch, error) {
	if perBatch <= 0 {
		perBatch = DefaultPages
	}
	if start < 1 {
		start = 1
	}
	if end > len(pages) || end <= 0 {
		end = len(pages)
	}
	if start > end {
		return nil, fmt.Errorf("%w: pages %d-%d of %d", ErrInvalidRange, start, end, len(pages))
	}

	batches := make([]Batch, 0, (end-start)/perBatch+1)
	seq := 1
	for lo := start; lo <= end; lo += perBatch {
		hi := lo + perBatch - 1
		if hi > end {
			hi = end
		}
		batches = append(batches, Batch{
			Seq:       seq,
			StartPage: lo,
			EndPage:   hi,
			Pages:     pages[lo-1 : hi],
		})
		seq++
	}
	return batches, nil
}
