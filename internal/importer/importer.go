// Package importer turns statement documents into ledger entries.
package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cleared-dev/beancmb/internal/model"
)

// Importer types understood by New.
const (
	TypePDF        = "cmb-pdf"
	TypeDailyEmail = "cmb-daily-email"
)

// Types lists every importer type in registration order.
var Types = []string{TypePDF, TypeDailyEmail}

// Importer handles one family of statement documents for one account.
type Importer interface {
	Name() string
	Account() string
	CanHandle(path string) bool
	Extract(path string) ([]model.Entry, error)
}

// Dater is implemented by importers that can date a document without the
// caller extracting it first.
type Dater interface {
	FileDate(path string) (time.Time, error)
}

// Namer is implemented by importers that pick the archived file name.
type Namer interface {
	FileName(path string) string
}

// Registry holds named importers.
type Registry struct {
	importers []Importer
	byName    map[string]Importer
}

// FileInfo describes a candidate document found by Scan.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Importer)}
}

// Register adds an importer. Panics on duplicate name.
func (r *Registry) Register(imp Importer) {
	key := strings.ToLower(imp.Name())
	if _, ok := r.byName[key]; ok {
		panic("duplicate importer name: " + key)
	}
	r.byName[key] = imp
	r.importers = append(r.importers, imp)
}

// Get returns the importer registered under name, or nil.
func (r *Registry) Get(name string) Importer {
	return r.byName[strings.ToLower(name)]
}

// All returns importers in registration order.
func (r *Registry) All() []Importer {
	return r.importers
}

// Match returns the first registered importer that can handle path, or nil.
func (r *Registry) Match(path string) Importer {
	for _, imp := range r.importers {
		if imp.CanHandle(path) {
			return imp
		}
	}
	return nil
}

// Scan expands paths into the files beneath them. Files are returned as given;
// directories are walked, skipping hidden entries. Results are sorted by path.
func Scan(paths ...string) ([]FileInfo, error) {
	var files []FileInfo
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, FileInfo{Name: info.Name(), Path: p, Size: info.Size()})
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			files = append(files, FileInfo{Name: d.Name(), Path: path, Size: info.Size()})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", p, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// FileDate dates a document: the importer's own date when it is a Dater,
// otherwise the file's modification day.
func FileDate(imp Importer, path string) (time.Time, error) {
	if d, ok := imp.(Dater); ok {
		return d.FileDate(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	y, m, day := info.ModTime().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
}

// ArchivePath returns where Archive moves path: root, then one directory per
// account component, then "<date>.<name>".
func ArchivePath(imp Importer, root, path string) (string, error) {
	date, err := FileDate(imp, path)
	if err != nil {
		return "", fmt.Errorf("dating %s: %w", path, err)
	}
	name := filepath.Base(path)
	if n, ok := imp.(Namer); ok {
		name = n.FileName(path)
	}
	parts := append([]string{root}, strings.Split(imp.Account(), ":")...)
	return filepath.Join(append(parts, date.Format("2006-01-02")+"."+name)...), nil
}

// Archive moves an imported document into the account's folder under root.
func Archive(imp Importer, root, path string) (string, error) {
	dst, err := ArchivePath(imp, root, path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("archiving %s: %s already exists", path, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("moving %s to archive: %w", path, err)
	}
	return dst, nil
}
