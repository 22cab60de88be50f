// Package extractor produces the ordered word tokens of a statement document.
package extractor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TokenSource yields the words of a document grouped by page, in reading order.
type TokenSource interface {
	Pages(path string) ([][]string, error)
}

// Flatten concatenates pages in document order into one token stream.
func Flatten(pages [][]string) []string {
	n := 0
	for _, p := range pages {
		n += len(p)
	}
	tokens := make([]string, 0, n)
	for _, p := range pages {
		tokens = append(tokens, p...)
	}
	return tokens
}

// defaultGap is the horizontal distance, in points, above which two text runs
// on the same row belong to different words.
const defaultGap = 3.0

// PDF reads word tokens from a text-based PDF.
type PDF struct {
	// Gap overrides defaultGap when positive.
	Gap float64
}

// Pages opens the PDF at path and returns the words of each page.
func (p *PDF) Pages(path string) (pages [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed on %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf %s has no pages", path)
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading page %d of %s: %w", i, path, err)
		}
		var words []string
		for _, row := range rows {
			words = append(words, p.rowWords(row.Content)...)
		}
		pages = append(pages, words)
	}
	return pages, nil
}

func (p *PDF) gap() float64 {
	if p.Gap > 0 {
		return p.Gap
	}
	return defaultGap
}

// rowWords joins the text runs of one row into words. Runs closer than the gap
// are glued together; wider gaps and embedded whitespace split words.
func (p *PDF) rowWords(texts []pdf.Text) []string {
	runs := make([]run, 0, len(texts))
	for _, t := range texts {
		runs = append(runs, run{x: t.X, w: t.W, s: t.S})
	}
	return joinRuns(runs, p.gap())
}

type run struct {
	x, w float64
	s    string
}

func joinRuns(runs []run, gap float64) []string {
	sort.SliceStable(runs, func(a, b int) bool { return runs[a].x < runs[b].x })

	var b strings.Builder
	end := math.Inf(-1)
	for _, r := range runs {
		if b.Len() > 0 && r.x-end > gap {
			b.WriteByte(' ')
		}
		b.WriteString(r.s)
		end = r.x + r.w
	}
	return strings.Fields(b.String())
}
