package version

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/shared/paths"
)

var (
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrUnsafeArchivePath  = errors.New("archive entry escapes bundle root")
	ErrVersionMismatch    = errors.New("manifest version does not match")
)

// Format is an update bundle archive format.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
)

// DetectFormat infers the archive format from its file name.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZst, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrUnsupportedArchive)
}

// Installer extracts downloaded update bundles into a Manager's root.
// Installing never activates; call Manager.Activate afterwards.
type Installer struct {
	manager *Manager
	logger  *zap.Logger
}

// NewInstaller creates an installer for m.
func NewInstaller(m *Manager, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{manager: m, logger: logger.Named("installer")}
}

// Install extracts archive as version. Extraction happens in a staging
// directory that is renamed into place only after the bundle verifies, so
// a failed install leaves nothing behind. Bundles without a manifest get a
// sha256 one written at install time.
func (i *Installer) Install(ctx context.Context, version, archive string) error {
	if err := paths.ValidateVersion(version); err != nil {
		return fmt.Errorf("invalid version: %w", err)
	}
	if i.manager.Installed(version) {
		return fmt.Errorf("%s: %w", version, ErrVersionExists)
	}
	format, err := DetectFormat(archive)
	if err != nil {
		return err
	}

	installID := id.NewInstallID()
	log := i.logger.With(zap.String("install_id", installID.String()), zap.String("version", version))
	log.Info("installing update bundle", zap.String("archive", archive), zap.String("format", string(format)))

	staging := filepath.Join(i.manager.Root(), paths.StagingDir+"-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging: %w", err)
	}
	defer os.RemoveAll(staging)

	var count int
	switch format {
	case FormatZip:
		count, err = extractZip(ctx, archive, staging)
	case FormatTarGz:
		count, err = extractTar(ctx, archive, staging, func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		})
	case FormatTarZst:
		count, err = extractTar(ctx, archive, staging, func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		})
	}
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return fmt.Errorf("extract %s: %w", archive, err)
	}

	if err := verifyStaging(ctx, staging, version); err != nil {
		log.Warn("verification failed", zap.Error(err))
		return err
	}

	if err := i.promote(staging, version); err != nil {
		log.Warn("install lost to a concurrent install", zap.Error(err))
		return err
	}

	log.Info("update bundle installed", zap.Int("files", count))
	return nil
}

// promote moves a verified staging directory to its version directory.
func (i *Installer) promote(staging, version string) error {
	err := os.Rename(staging, i.manager.Dir(version))
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) || i.manager.Installed(version) {
		return fmt.Errorf("%s: %w", version, ErrVersionExists)
	}
	return fmt.Errorf("install %s: %w", version, err)
}

// verifyStaging checks a bundle's manifest, or writes one when the bundle
// ships without it so later Verify calls can detect tampering.
func verifyStaging(ctx context.Context, dir, version string) error {
	manifest, err := ReadManifest(dir)
	if errors.Is(err, fs.ErrNotExist) {
		sealed, err := BuildManifest(ctx, dir, version, SHA256)
		if err != nil {
			return fmt.Errorf("seal bundle: %w", err)
		}
		return sealed.Write(dir)
	}
	if err != nil {
		return err
	}
	if manifest.Version != "" && manifest.Version != version {
		return fmt.Errorf("%s != %s: %w", manifest.Version, version, ErrVersionMismatch)
	}
	return manifest.Verify(ctx, dir)
}

// safeEntry reports whether a cleaned slash path stays inside its root.
func safeEntry(clean string) bool {
	return clean != "" && clean != ".." && !path.IsAbs(clean) && !strings.HasPrefix(clean, "../")
}

// entryPath maps an archive entry name onto a path under root.
func entryPath(root, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if !safeEntry(clean) {
		return "", fmt.Errorf("%q: %w", name, ErrUnsafeArchivePath)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func writeEntry(target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func extractZip(ctx context.Context, archive, dest string) (int, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	count := 0
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		target, err := entryPath(dest, f.Name)
		if err != nil {
			return count, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return count, err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return count, err
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func extractTar(ctx context.Context, archive, dest string, decompress func(io.Reader) (io.ReadCloser, error)) (int, error) {
	file, err := os.Open(archive)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	dr, err := decompress(file)
	if err != nil {
		return 0, err
	}
	defer dr.Close()

	tr := tar.NewReader(dr)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return count, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return count, err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, fs.FileMode(hdr.Mode)); err != nil {
				return count, err
			}
			count++
		}
	}
}
