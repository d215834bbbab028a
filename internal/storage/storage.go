package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrOutsideRoot = errors.New("path outside storage root")
)

// Dir serves files from the host filesystem by absolute path.
// A non-empty Root confines every lookup to that directory.
type Dir struct {
	Root string
}

// NewDir creates a filesystem accessor confined to root.
func NewDir(root string) *Dir {
	return &Dir{Root: filepath.Clean(root)}
}

func (d *Dir) check(p string) error {
	if d.Root == "" {
		return nil
	}
	if !paths.Within(d.Root, filepath.Clean(p)) {
		return fmt.Errorf("%s: %w", p, ErrOutsideRoot)
	}
	return nil
}

// Exists reports whether p names a regular file.
func (d *Dir) Exists(p string) bool {
	if d.check(p) != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Open opens p read-only.
func (d *Dir) Open(p string) (io.ReadCloser, error) {
	if err := d.check(p); err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

// Bundle serves resources packaged with the application.
// Paths are slash-separated and relative to the bundle root.
type Bundle struct {
	fsys fs.FS
}

// NewBundle wraps a packaged resource tree, typically an embed.FS.
func NewBundle(fsys fs.FS) *Bundle {
	return &Bundle{fsys: fsys}
}

// NewBundleDir serves packaged resources unpacked at dir.
func NewBundleDir(dir string) *Bundle {
	return &Bundle{fsys: os.DirFS(dir)}
}

func bundleName(rel string) (string, bool) {
	name := path.Clean(strings.TrimPrefix(rel, "/"))
	if name == "." || !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}

// Exists reports whether rel names a regular file in the bundle.
func (b *Bundle) Exists(rel string) bool {
	name, ok := bundleName(rel)
	if !ok {
		return false
	}
	info, err := fs.Stat(b.fsys, name)
	return err == nil && info.Mode().IsRegular()
}

// Open opens rel inside the bundle.
func (b *Bundle) Open(rel string) (io.ReadCloser, error) {
	name, ok := bundleName(rel)
	if !ok {
		return nil, fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}
	f, err := b.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", rel, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	return f, nil
}
