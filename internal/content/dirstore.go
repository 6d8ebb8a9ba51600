package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"ndi_desktop/internal/domain"
)

const documentPattern = "**/*.{json,yaml,yml}"

// DirStore reads content documents from a directory. Keys are paths relative
// to the root and may not escape it.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve content root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat content root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content root %s is not a directory", absRoot)
	}
	return &DirStore{root: absRoot}, nil
}

func (d *DirStore) Root() string {
	return d.root
}

func (d *DirStore) Fetch(ctx context.Context, key string) (domain.Content, error) {
	if err := ctx.Err(); err != nil {
		return domain.Content{}, err
	}
	data, err := d.Read(key)
	if err != nil {
		return domain.Content{}, err
	}
	c, err := Decode(data)
	if err != nil {
		return domain.Content{}, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}

// Read returns the raw bytes of a document.
func (d *DirStore) Read(key string) ([]byte, error) {
	absPath, _, err := d.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", key, err)
	}
	return data, nil
}

// List returns the keys of every document under the root, sorted.
func (d *DirStore) List() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(d.root), documentPattern)
	if err != nil {
		return nil, fmt.Errorf("list content documents: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func (d *DirStore) resolve(key string) (absolute string, normalized string, err error) {
	normalized = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	normalized = strings.TrimPrefix(normalized, "./")
	normalized = strings.TrimPrefix(normalized, "/")
	if normalized == "" || normalized == "." {
		return "", "", fmt.Errorf("invalid content key %q", key)
	}

	absClean := filepath.Clean(filepath.Join(d.root, filepath.FromSlash(normalized)))
	rel, err := filepath.Rel(d.root, absClean)
	if err != nil {
		return "", "", fmt.Errorf("resolve content key: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == "." {
		return "", "", fmt.Errorf("%w: %q", ErrOutsideRoot, key)
	}
	return absClean, filepath.ToSlash(rel), nil
}
