package paths

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// InternalScheme marks URLs backed by sandboxed storage.
const InternalScheme = "internal:"

// Default on-device roots
const (
	// SandboxRoot is the app-private writable storage
	SandboxRoot = "/data/storage/sandbox"

	// UpdateRoot holds downloaded update bundles
	UpdateRoot = "/data/storage/update"

	// BundleRoot holds resources shipped inside the application package
	BundleRoot = "resources/rawfile"
)

// Update root layout
const (
	VersionsDir = "versions"
	StateFile   = "state.json"
	StagingDir  = ".staging"
)

// ErrInvalidVersion rejects version labels that are not a single path element.
var ErrInvalidVersion = errors.New("invalid version label")

// Translator maps internal-scheme URLs onto a sandbox directory.
type Translator struct {
	Root   string
	Scheme string
}

// NewTranslator returns a translator for the default internal scheme.
func NewTranslator(root string) Translator {
	return Translator{Root: root, Scheme: InternalScheme}
}

func (t Translator) scheme() string {
	if t.Scheme == "" {
		return InternalScheme
	}
	return t.Scheme
}

// IsInternal reports whether url uses the translator's scheme.
func (t Translator) IsInternal(url string) bool {
	return strings.HasPrefix(url, t.scheme())
}

// Translate returns the sandbox path for url.
//
// The transform never fails. Query strings and fragments are dropped, percent
// escapes are decoded and the remainder is cleaned as an absolute path, so
// "internal://../../etc" still lands under Root. Whether the result exists is
// for the caller to check.
func (t Translator) Translate(rawURL string) string {
	rest := strings.TrimPrefix(rawURL, t.scheme())
	rest = Unescape(StripQuery(rest))
	rest = strings.TrimLeft(rest, "/")
	rel := path.Clean("/" + rest)
	return filepath.Join(t.Root, filepath.FromSlash(rel))
}

// StripQuery removes any query string or fragment from a URL or path.
func StripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

// Unescape decodes percent escapes in a URL path. Malformed escapes leave s
// unchanged.
func Unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// CleanRelative normalizes a slash-separated relative resource path.
// It returns "" when nothing addressable remains.
func CleanRelative(rel string) string {
	cleaned := strings.TrimPrefix(path.Clean("/"+Unescape(StripQuery(rel))), "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// VersionDir returns the directory of an installed update bundle.
func VersionDir(updateRoot, version string) string {
	return filepath.Join(updateRoot, VersionsDir, version)
}

// Within reports whether target is root or inside it.
func Within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ValidateVersion checks if a version label is safe for path construction
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("%w: empty", ErrInvalidVersion)
	}
	if filepath.IsAbs(version) {
		return fmt.Errorf("%w: absolute path", ErrInvalidVersion)
	}
	if strings.ContainsAny(version, `/\`) || version == "." || version == ".." {
		return fmt.Errorf("%w: path components", ErrInvalidVersion)
	}
	if strings.HasPrefix(version, ".") {
		return fmt.Errorf("%w: leading dot", ErrInvalidVersion)
	}
	return nil
}
