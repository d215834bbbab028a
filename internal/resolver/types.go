package resolver

import (
	"io"
	"net/http"
)

// Request is the host's handle on one outgoing resource fetch.
type Request interface {
	// URL returns the request URL, or false when the host supplied none.
	URL() (string, bool)
}

type urlRequest string

func (r urlRequest) URL() (string, bool) { return string(r), r != "" }

// NewRequest wraps a raw URL. An empty URL is reported as absent.
func NewRequest(rawURL string) Request {
	return urlRequest(rawURL)
}

// Response is a synthetic reply handed back to the web-view in place of a
// network fetch. The caller owns Body once Dispatch returns and must Close it.
type Response struct {
	Body       io.ReadCloser
	StatusCode int
	StatusText string
	MimeType   string
	Encoding   string

	// Ready is set once Body can be read. A response that matched a resolver
	// but has nothing to serve is returned with Ready false.
	Ready bool
}

// Close releases the payload handle.
func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

func served(body io.ReadCloser, mimeType, encoding string) *Response {
	return &Response{
		Body:       body,
		StatusCode: http.StatusOK,
		StatusText: http.StatusText(http.StatusOK),
		MimeType:   mimeType,
		Encoding:   encoding,
		Ready:      true,
	}
}

// NotReady returns the "matched but no content" sentinel.
func NotReady() *Response {
	return &Response{}
}

// Resolver turns a request into a response, or declines with nil.
type Resolver interface {
	Resolve(req Request) *Response
}

// Func adapts a plain function to Resolver.
type Func func(req Request) *Response

// Resolve calls f(req).
func (f Func) Resolve(req Request) *Response { return f(req) }

// Store is the existence/open pair every resolver reads through.
type Store interface {
	Exists(path string) bool
	Open(path string) (io.ReadCloser, error)
}

// UpdateSource reports the root of the active update bundle, or "" when
// no update is active.
type UpdateSource interface {
	ActivePath() string
}

// UpdateSourceFunc adapts a function to UpdateSource.
type UpdateSourceFunc func() string

// ActivePath calls f().
func (f UpdateSourceFunc) ActivePath() string { return f() }
