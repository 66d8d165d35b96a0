package crawler

import (
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"annotext/internal/document"
	"annotext/internal/extractor"
)

// Crawler scans a directory for HTML documents.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor) *Crawler {
	return &Crawler{
		extractor: ext,
		ignored:   []string{".git", "vendor", "node_modules"},
	}
}

// IsDocument reports whether path names a file the crawler would process.
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// ScanProject walks the root directory and extracts every HTML document.
// Documents are streamed to onDocument one at a time.
func (c *Crawler) ScanProject(root string, onDocument func(path string, tree *document.Tree)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !IsDocument(d.Name()) {
			return nil
		}

		tree, err := c.extractor.ExtractFromFile(path)
		if err != nil {
			// Log and continue instead of failing the whole scan
			log.Printf("crawler: skipping %s: %v", path, err)
			return nil
		}

		onDocument(path, tree)
		return nil
	})
}
