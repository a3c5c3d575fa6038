package webcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// placeholderSVG is served with a 200 for image requests that fail at the
// network layer, so broken-image icons never appear in cached pages.
const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="150" viewBox="0 0 200 150">` +
	`<rect width="200" height="150" fill="#e2e8f0"/>` +
	`<text x="100" y="80" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#64748b">offline</text>` +
	`</svg>`

var now = time.Now

// fallback resolves a failed same-origin GET to a typed substitute response.
func (i *Interceptor) fallback(req *http.Request, netErr error) (*http.Response, error) {
	if isNavigation(req) {
		for _, p := range []string{"/offline/", "/"} {
			target := i.origin.ResolveReference(&url.URL{Path: p}).String()
			if cached, _ := i.lookup(http.MethodGet, target); cached != nil {
				return synthesize(req, cached), nil
			}
		}
		return nil, fmt.Errorf("offline with no cached fallback page: %w", netErr)
	}

	if isImageRequest(req) {
		header := http.Header{}
		header.Set("Content-Type", "image/svg+xml")
		return &http.Response{
			Status:        "200 OK",
			StatusCode:    http.StatusOK,
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        header,
			Body:          io.NopCloser(bytes.NewReader([]byte(placeholderSVG))),
			ContentLength: int64(len(placeholderSVG)),
			Request:       req,
		}, nil
	}

	body := []byte("Service Unavailable")
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	return &http.Response{
		Status:        "503 Service Unavailable",
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}
