package drive

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalDir reads spreadsheets from a directory on disk. The folderID
// argument is ignored; the directory is fixed at construction.
type LocalDir struct {
	Dir string
}

func (l LocalDir) Fetch(ctx context.Context, folderID string) ([]File, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsSpreadsheet(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []File
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err != nil {
			log.Printf("local source: read %s failed: %v", name, err)
			continue
		}
		out = append(out, File{Name: name, Content: content})
	}
	return out, nil
}

// IsSpreadsheet reports whether a filename carries a supported
// spreadsheet extension.
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls", ".csv":
		return true
	default:
		return false
	}
}
