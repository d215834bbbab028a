package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tr := NewTranslator("/sandbox")

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"authority form", "internal://img/logo.png", "/sandbox/img/logo.png"},
		{"single slash", "internal:/img/logo.png", "/sandbox/img/logo.png"},
		{"bare", "internal:img/logo.png", "/sandbox/img/logo.png"},
		{"query and fragment dropped", "internal://a/b.js?v=3#top", "/sandbox/a/b.js"},
		{"traversal stays in root", "internal://../../etc/passwd", "/sandbox/etc/passwd"},
		{"empty remainder", "internal:", "/sandbox"},
		{"escaped space", "internal://my%20file.html", "/sandbox/my file.html"},
		{"escaped non-ascii", "internal://%E9%A6%96%E9%A1%B5.html", "/sandbox/首页.html"},
		{"escaped traversal stays in root", "internal://%2E%2E/%2E%2E/etc", "/sandbox/etc"},
		{"malformed escape kept", "internal://100%.html", "/sandbox/100%.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), tr.Translate(tt.url))
		})
	}
}

func TestTranslateCustomScheme(t *testing.T) {
	tr := Translator{Root: "/root", Scheme: "app-data:"}

	assert.True(t, tr.IsInternal("app-data://x"))
	assert.False(t, tr.IsInternal("internal://x"))
	assert.Equal(t, filepath.FromSlash("/root/x"), tr.Translate("app-data://x"))
}

func TestIsInternal(t *testing.T) {
	tr := NewTranslator("/sandbox")

	assert.True(t, tr.IsInternal("internal://a"))
	assert.False(t, tr.IsInternal("https://cdn.example.com/internal:"))
	assert.False(t, tr.IsInternal(""))
}

func TestCleanRelative(t *testing.T) {
	assert.Equal(t, "assets/app.js", CleanRelative("assets/app.js"))
	assert.Equal(t, "assets/app.js", CleanRelative("/assets//app.js?x=1"))
	assert.Equal(t, "app.js", CleanRelative("../../app.js"))
	assert.Equal(t, "", CleanRelative(""))
	assert.Equal(t, "", CleanRelative("?q"))
	assert.Equal(t, "fonts/my font.woff2", CleanRelative("fonts/my%20font.woff2"))
	assert.Equal(t, "a%3Fb.js", CleanRelative("a%253Fb.js"))
	assert.Equal(t, "x.js", CleanRelative("%2E%2E/x.js"))
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "my file.html", Unescape("my%20file.html"))
	assert.Equal(t, "plain.html", Unescape("plain.html"))
	assert.Equal(t, "bad%zz", Unescape("bad%zz"))
}

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/data/update")

	assert.True(t, Within(root, root))
	assert.True(t, Within(root, filepath.Join(root, "versions", "v1")))
	assert.False(t, Within(root, filepath.FromSlash("/data/updates")))
	assert.False(t, Within(root, filepath.FromSlash("/data")))
}

func TestValidateVersion(t *testing.T) {
	valid := []string{"v7", "1.2.3", "2024-01-01_rc1"}
	for _, v := range valid {
		assert.NoError(t, ValidateVersion(v), v)
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "/abs", ".hidden"}
	for _, v := range invalid {
		assert.Error(t, ValidateVersion(v), v)
	}
}
