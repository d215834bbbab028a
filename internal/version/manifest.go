package version

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
	"golang.org/x/crypto/blake2b"
)

// ManifestName is the optional manifest at the root of an update bundle.
const ManifestName = "manifest.yaml"

var ErrChecksumMismatch = errors.New("checksum mismatch")

// Algorithm names a digest function used in manifests.
type Algorithm string

const (
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b"
)

func (a Algorithm) new() (hash.Hash, error) {
	switch a {
	case SHA256, "":
		return sha256.New(), nil
	case BLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", a)
	}
}

// Sum returns the hex digest of r.
func (a Algorithm) Sum(r io.Reader) (string, error) {
	h, err := a.new()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile returns the hex digest of the file at p.
func (a Algorithm) SumFile(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return a.Sum(f)
}

// Manifest describes the expected contents of an update bundle.
//
//	version: v7
//	algorithm: sha256
//	files:
//	  assets/app.js: 9f86d0...
type Manifest struct {
	Version   string            `yaml:"version"`
	Algorithm Algorithm         `yaml:"algorithm,omitempty"`
	Files     map[string]string `yaml:"files"`
}

// ReadManifest loads dir/manifest.yaml. A missing manifest yields an error
// matching fs.ErrNotExist.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if _, err := m.Algorithm.new(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Verify checks that every file listed in the manifest exists under dir
// with the listed digest.
func (m *Manifest) Verify(ctx context.Context, dir string) error {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		clean := path.Clean(name)
		if !safeEntry(clean) {
			return fmt.Errorf("manifest entry %q: %w", name, ErrUnsafeArchivePath)
		}

		got, err := m.Algorithm.SumFile(filepath.Join(dir, filepath.FromSlash(clean)))
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("verify %s: %w: %w", name, ErrChecksumMismatch, err)
		}
		if err != nil {
			return fmt.Errorf("verify %s: %w", name, err)
		}
		if got != m.Files[name] {
			return fmt.Errorf("verify %s: %w", name, ErrChecksumMismatch)
		}
	}
	return nil
}

// BuildManifest computes a manifest for every file under dir.
func BuildManifest(ctx context.Context, dir, version string, algo Algorithm) (*Manifest, error) {
	files, err := indexDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Version: version, Algorithm: algo, Files: make(map[string]string, len(files))}
	for _, rel := range files {
		if rel == ManifestName {
			continue
		}
		sum, err := algo.SumFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("digest %s: %w", rel, err)
		}
		m.Files[rel] = sum
	}
	return m, nil
}

// Write stores the manifest as dir/manifest.yaml.
func (m *Manifest) Write(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
