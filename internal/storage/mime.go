package storage

import (
	"bufio"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMIME is used when neither the extension nor the content is recognised.
const DefaultMIME = "application/octet-stream"

// sniffLimit bounds how much of a payload is read for content detection.
const sniffLimit = 3072

var extensionTypes = map[string]string{
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".json":  "application/json",
	".map":   "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".wasm":  "application/wasm",
	".txt":   "text/plain",
	".xml":   "application/xml",
}

// MIMEByExtension returns the content type implied by name's extension.
func MIMEByExtension(name string) (string, bool) {
	t, ok := extensionTypes[strings.ToLower(path.Ext(name))]
	return t, ok
}

// Encoding returns the character encoding to report for a content type.
func Encoding(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch {
	case strings.HasPrefix(base, "text/"),
		base == "application/javascript",
		base == "application/json",
		base == "application/xml",
		base == "image/svg+xml":
		return "utf-8"
	}
	return ""
}

type sniffed struct {
	io.Reader
	io.Closer
}

// DetectMIME resolves the content type of a payload named name.
//
// The extension table is consulted first. Otherwise a prefix of body is
// sniffed and the returned ReadCloser replays it, so callers must use the
// returned reader in place of body.
func DetectMIME(name string, body io.ReadCloser) (string, io.ReadCloser) {
	if t, ok := MIMEByExtension(name); ok {
		return t, body
	}

	br := bufio.NewReaderSize(body, sniffLimit)
	head, _ := br.Peek(sniffLimit)
	mtype := DefaultMIME
	if len(head) > 0 {
		// Parameters such as charset are reported through Encoding.
		mtype, _, _ = strings.Cut(mimetype.Detect(head).String(), ";")
	}
	return mtype, sniffed{Reader: br, Closer: body}
}
