// Package book models a comic book as an ordered page list with
// per-book detection state: automatic results, manual overrides and the
// identity hash that keys the result cache.
package book

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/panelworks/panel-detect/internal/detect"
	"github.com/panelworks/panel-detect/internal/store"
)

// Metadata describes a book independently of any detection run.
type Metadata struct {
	Title     string                  `json:"title"`
	Direction detect.ReadingDirection `json:"direction"`
	PageCount int                     `json:"page_count"`
}

// Page is one page image of a book.
type Page struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
}

// Book is an ordered set of page images plus metadata. The identity hash
// is derived from the page file contents, so re-scanning the same book
// reuses cached results and a modified page invalidates only itself at
// the cache-key level.
type Book struct {
	Hash     string   `json:"hash"`
	Metadata Metadata `json:"metadata"`
	Pages    []Page   `json:"pages"`
}

var pageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Open scans a directory for page images, sorted by filename, and
// computes the book hash. The directory name becomes the title unless
// the caller sets one later.
func Open(dir string) (*Book, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read book directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no page images in %s", dir)
	}
	sort.Strings(paths)

	hash, err := HashFiles(paths)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, len(paths))
	for i, p := range paths {
		pages[i] = Page{Index: i, Path: p}
	}
	return &Book{
		Hash: hash,
		Metadata: Metadata{
			Title:     filepath.Base(dir),
			Direction: detect.LTR,
			PageCount: len(pages),
		},
		Pages: pages,
	}, nil
}

// LoadPage decodes one page image. EXIF orientation is applied so
// detection sees the page the way a reader would.
func (b *Book) LoadPage(index int) (image.Image, error) {
	if index < 0 || index >= len(b.Pages) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", index, len(b.Pages))
	}
	img, err := imaging.Open(b.Pages[index].Path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detect.ErrInvalidImage, err)
	}
	return img, nil
}

// ToolVersion tags saved book data with the detector generation that
// produced it.
const ToolVersion = "1.0.0"

// Data is the serializable detection state of one book: the automatic
// results and the manual overrides, kept in separate layers.
type Data struct {
	Hash        string                    `json:"hash"`
	ToolVersion string                    `json:"tool_version"`
	Metadata    Metadata                  `json:"metadata"`
	Results     map[int]detect.PageResult `json:"results"`
	Overrides   map[int]store.Override    `json:"overrides,omitempty"`
}

// NewData returns an empty Data for a book.
func NewData(b *Book) *Data {
	return &Data{
		Hash:        b.Hash,
		ToolVersion: ToolVersion,
		Metadata:    b.Metadata,
		Results:     make(map[int]detect.PageResult),
		Overrides:   make(map[int]store.Override),
	}
}

// Effective returns the result a reader sees for one page: the automatic
// result with any override applied. The stored result is not modified.
func (d *Data) Effective(page int) (detect.PageResult, bool) {
	res, ok := d.Results[page]
	if !ok {
		return detect.PageResult{}, false
	}
	ov, ok := d.Overrides[page]
	if !ok {
		return store.MergeResult(res, store.Override{}, d.Metadata.Direction), true
	}
	return store.MergeResult(res, ov, d.Metadata.Direction), true
}

// Save writes the data as JSON.
func (d *Data) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode book data: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write book data: %w", err)
	}
	return nil
}

// LoadData reads previously saved book data.
func LoadData(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read book data: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse book data: %w", err)
	}
	if d.Results == nil {
		d.Results = make(map[int]detect.PageResult)
	}
	if d.Overrides == nil {
		d.Overrides = make(map[int]store.Override)
	}
	return &d, nil
}
