package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/webshell/internal/testutil"
	"github.com/GriffinCanCode/AgentOS/webshell/internal/version"
)

func (f *bridgeFixture) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	f := newBridgeFixture(t, nil)

	w := f.get("/_shell/health")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["bound"])
	assert.Equal(t, "", body["active"])
}

func TestActivateAndDeactivate(t *testing.T) {
	f := newBridgeFixture(t, nil)
	testutil.WriteFiles(t, f.manager.Dir("v7"), map[string]string{"index.html": "v7"})

	w := f.post("/_shell/version/activate", `{"version":"v7"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v7", f.manager.Active())

	w = f.get("/_shell/version")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "v7", body["active"])
	assert.Equal(t, []interface{}{"v7"}, body["installed"])

	w = f.post("/_shell/version/deactivate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.manager.Active())
}

func TestActivateErrors(t *testing.T) {
	f := newBridgeFixture(t, nil)

	assert.Equal(t, http.StatusBadRequest, f.post("/_shell/version/activate", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, f.post("/_shell/version/activate", `{"version":"v9"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, f.post("/_shell/version/activate", `{"version":".."}`).Code)
}

func TestInstallDisabledWithoutFetcher(t *testing.T) {
	f := newBridgeFixture(t, nil)

	w := f.post("/_shell/version/install", `{"version":"v7","url":"http://example.com/v7.zip"}`)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestInstallDownloadsAndActivates(t *testing.T) {
	archive := zipBytes(t, map[string]string{"assets/app.js": "from-download"})
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer origin.Close()

	f := newBridgeFixture(t, version.NewDownloader(version.DefaultDownloadConfig(), nil))

	w := f.post("/_shell/version/install", `{"version":"v8","url":"`+origin.URL+`/bundles/v8.zip","activate":true}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "v8", f.manager.Active())
	assert.Equal(t, "from-download", f.get("/_cache/assets/app.js").Body.String())

	w = f.post("/_shell/version/install", `{"version":"v8","url":"`+origin.URL+`/bundles/v8.zip"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInstallRejectsBadRequests(t *testing.T) {
	f := newBridgeFixture(t, version.NewDownloader(version.DefaultDownloadConfig(), nil))

	assert.Equal(t, http.StatusBadRequest, f.post("/_shell/version/install", `{"version":"v8"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.post("/_shell/version/install", `{"version":"v8","url":"ftp://x/v8.zip"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.post("/_shell/version/install", `{"version":"v8","url":"http://x/v8.rar"}`).Code)
}

func TestMetricsRoutes(t *testing.T) {
	f := newBridgeFixture(t, nil)
	f.get("/somewhere/else.js")

	w := f.get("/_shell/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "webshell_intercept_total")

	w = f.get("/_shell/metrics/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["fell_through"])
}

func (f *bridgeFixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRemoveVersion(t *testing.T) {
	f := newBridgeFixture(t, nil)
	testutil.WriteFiles(t, f.manager.Dir("v6"), map[string]string{"index.html": "v6"})
	testutil.WriteFiles(t, f.manager.Dir("v7"), map[string]string{"index.html": "v7"})
	require.NoError(t, f.manager.Activate("v7"))

	assert.Equal(t, http.StatusConflict, f.do(http.MethodDelete, "/_shell/version/v7").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/_shell/version/v9").Code)

	w := f.do(http.MethodDelete, "/_shell/version/v6")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "v6", decode(t, w)["removed"])
	assert.False(t, f.manager.Installed("v6"))
	assert.True(t, f.manager.Installed("v7"))
}

func TestListVersionFiles(t *testing.T) {
	f := newBridgeFixture(t, nil)
	testutil.WriteFiles(t, f.manager.Dir("v7"), map[string]string{
		"index.html":    "v7",
		"assets/app.js": "js",
	})

	w := f.get("/_shell/version/v7/files")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, []interface{}{"assets/app.js", "index.html"}, body["files"])
	assert.EqualValues(t, 2, body["count"])

	assert.Equal(t, http.StatusNotFound, f.get("/_shell/version/v9/files").Code)
}

func TestVerifyInstalledVersion(t *testing.T) {
	archive := zipBytes(t, map[string]string{"index.html": "from-download"})
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer origin.Close()

	f := newBridgeFixture(t, version.NewDownloader(version.DefaultDownloadConfig(), nil))
	w := f.post("/_shell/version/install", `{"version":"v8","url":"`+origin.URL+`/v8.zip"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/_shell/version/v8/verify")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["valid"])

	testutil.WriteFiles(t, f.manager.Dir("v8"), map[string]string{"index.html": "tampered"})
	w = f.do(http.MethodPost, "/_shell/version/v8/verify")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, false, decode(t, w)["valid"])

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/_shell/version/v9/verify").Code)
}
