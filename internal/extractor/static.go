package extractor

import "fmt"

// Static is a TokenSource over pre-extracted pages keyed by path.
type Static map[string][][]string

// Pages returns the pages registered for path.
func (s Static) Pages(path string) ([][]string, error) {
	pages, ok := s[path]
	if !ok {
		return nil, fmt.Errorf("no pages for %s", path)
	}
	return pages, nil
}
