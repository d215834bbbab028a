package version

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bundleFiles = map[string]string{
	"index.html":    "<html>v7</html>",
	"assets/app.js": "console.log('v7')",
}

func sortedNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeZip(t *testing.T, dst string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedNames(files) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(dst, buf.Bytes(), 0o644))
}

func writeTar(t *testing.T, w io.Writer, files map[string]string) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, name := range sortedNames(files) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(files[name])),
			Typeflag: tar.TypeReg,
		}))
		_, err := io.WriteString(tw, files[name])
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func writeTarGz(t *testing.T, dst string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	writeTar(t, gz, files)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(dst, buf.Bytes(), 0o644))
}

func writeTarZst(t *testing.T, dst string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	writeTar(t, enc, files)
	require.NoError(t, enc.Close())
	require.NoError(t, os.WriteFile(dst, buf.Bytes(), 0o644))
}

func assertInstalled(t *testing.T, m *Manager, version string, files map[string]string) {
	t.Helper()
	require.True(t, m.Installed(version))
	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(m.Dir(version), filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(got), name)
	}
}

func assertNoStaging(t *testing.T, m *Manager) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(m.Root(), ".staging-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"bundle.zip":     FormatZip,
		"bundle.ZIP":     FormatZip,
		"bundle.tar.gz":  FormatTarGz,
		"bundle.tgz":     FormatTarGz,
		"bundle.tar.zst": FormatTarZst,
		"bundle.tzst":    FormatTarZst,
	}
	for name, want := range cases {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := DetectFormat("bundle.rar")
	assert.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestInstallArchiveFormats(t *testing.T) {
	writers := map[string]func(*testing.T, string, map[string]string){
		"bundle.zip":     writeZip,
		"bundle.tar.gz":  writeTarGz,
		"bundle.tar.zst": writeTarZst,
	}
	for name, write := range writers {
		t.Run(name, func(t *testing.T) {
			m := newManager(t)
			archive := filepath.Join(t.TempDir(), name)
			write(t, archive, bundleFiles)

			require.NoError(t, NewInstaller(m, nil).Install(context.Background(), "v7", archive))

			assertInstalled(t, m, "v7", bundleFiles)
			assertNoStaging(t, m)
			assert.Empty(t, m.Active(), "install must not activate")
		})
	}
}

func TestInstallRejectsExistingVersion(t *testing.T) {
	m := newManager(t, "v7")
	archive := filepath.Join(t.TempDir(), "bundle.zip")
	writeZip(t, archive, bundleFiles)

	err := NewInstaller(m, nil).Install(context.Background(), "v7", archive)
	assert.ErrorIs(t, err, ErrVersionExists)
}

func TestInstallRejectsEscapingEntries(t *testing.T) {
	for _, name := range []string{"../evil.js", "/abs/evil.js", "a/../../evil.js"} {
		t.Run(name, func(t *testing.T) {
			m := newManager(t)
			archive := filepath.Join(t.TempDir(), "bundle.zip")
			writeZip(t, archive, map[string]string{name: "evil", "index.html": "ok"})

			err := NewInstaller(m, nil).Install(context.Background(), "v7", archive)

			assert.ErrorIs(t, err, ErrUnsafeArchivePath)
			assert.False(t, m.Installed("v7"))
			assertNoStaging(t, m)
		})
	}
}

func TestInstallVerifiesManifest(t *testing.T) {
	sum, err := SHA256.Sum(bytes.NewReader([]byte(bundleFiles["index.html"])))
	require.NoError(t, err)

	good := map[string]string{
		"index.html":  bundleFiles["index.html"],
		ManifestName: "version: v7\nalgorithm: sha256\nfiles:\n  index.html: " + sum + "\n",
	}
	bad := map[string]string{
		"index.html":  "tampered",
		ManifestName: good[ManifestName],
	}

	t.Run("valid", func(t *testing.T) {
		m := newManager(t)
		archive := filepath.Join(t.TempDir(), "bundle.tar.gz")
		writeTarGz(t, archive, good)

		require.NoError(t, NewInstaller(m, nil).Install(context.Background(), "v7", archive))
		assert.True(t, m.Installed("v7"))
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		m := newManager(t)
		archive := filepath.Join(t.TempDir(), "bundle.tar.gz")
		writeTarGz(t, archive, bad)

		err := NewInstaller(m, nil).Install(context.Background(), "v7", archive)
		assert.ErrorIs(t, err, ErrChecksumMismatch)
		assert.False(t, m.Installed("v7"))
		assertNoStaging(t, m)
	})

	t.Run("version mismatch", func(t *testing.T) {
		m := newManager(t)
		archive := filepath.Join(t.TempDir(), "bundle.tar.gz")
		writeTarGz(t, archive, good)

		err := NewInstaller(m, nil).Install(context.Background(), "v8", archive)
		assert.ErrorIs(t, err, ErrVersionMismatch)
		assert.False(t, m.Installed("v8"))
	})
}

func TestInstallHonorsCancellation(t *testing.T) {
	m := newManager(t)
	archive := filepath.Join(t.TempDir(), "bundle.zip")
	writeZip(t, archive, bundleFiles)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewInstaller(m, nil).Install(ctx, "v7", archive)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.Installed("v7"))
}

func TestInstallSealsBundleWithoutManifest(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	archive := filepath.Join(t.TempDir(), "bundle.zip")
	writeZip(t, archive, bundleFiles)

	require.NoError(t, NewInstaller(m, nil).Install(ctx, "v7", archive))

	manifest, err := ReadManifest(m.Dir("v7"))
	require.NoError(t, err)
	assert.Equal(t, "v7", manifest.Version)
	assert.Equal(t, SHA256, manifest.Algorithm)
	assert.Equal(t, []string{"assets/app.js", "index.html"}, sortedNames(manifest.Files))
	require.NoError(t, m.Verify(ctx, "v7"))

	require.NoError(t, os.WriteFile(filepath.Join(m.Dir("v7"), "index.html"), []byte("tampered"), 0o644))
	assert.ErrorIs(t, m.Verify(ctx, "v7"), ErrChecksumMismatch)
}

func TestPromoteOntoInstalledVersionConflicts(t *testing.T) {
	m := newManager(t, "v7")
	staging := filepath.Join(m.Root(), ".staging-test")
	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "index.html"), []byte("late"), 0o644))

	err := NewInstaller(m, nil).promote(staging, "v7")

	assert.ErrorIs(t, err, ErrVersionExists)
	got, err := os.ReadFile(filepath.Join(m.Dir("v7"), "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "v7", string(got))
}

func TestConcurrentInstallsOfSameVersion(t *testing.T) {
	m := newManager(t)
	installer := NewInstaller(m, nil)

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		archive := filepath.Join(t.TempDir(), "bundle.zip")
		writeZip(t, archive, bundleFiles)
		wg.Add(1)
		go func(i int, archive string) {
			defer wg.Done()
			errs[i] = installer.Install(context.Background(), "v7", archive)
		}(i, archive)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrVersionExists)
	}
	assert.Equal(t, 1, succeeded)
	assertInstalled(t, m, "v7", bundleFiles)
	assertNoStaging(t, m)
}
