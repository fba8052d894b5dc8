// Package gzippedhttp compresses JSON responses for clients that advertise
// gzip support. Request-body decompression is not needed here: the browser
// client never sends compressed bodies.
package gzippedhttp

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(nil)
	},
}

// CompressedHTTPResponseWriter wraps http.ResponseWriter and compresses
// the response body using gzip.
type CompressedHTTPResponseWriter struct {
	w  http.ResponseWriter
	zw *gzip.Writer
}

// NewCompressedHTTPResponseWriter returns a writer that gzips everything
// written through it.
func NewCompressedHTTPResponseWriter(w http.ResponseWriter) *CompressedHTTPResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)
	return &CompressedHTTPResponseWriter{
		w:  w,
		zw: zw,
	}
}

// Header returns the header map of the underlying writer.
func (c *CompressedHTTPResponseWriter) Header() http.Header {
	return c.w.Header()
}

// Write compresses b into the underlying response.
func (c *CompressedHTTPResponseWriter) Write(b []byte) (int, error) {
	return c.zw.Write(b)
}

// WriteHeader sends the status code and marks the response as gzip encoded.
func (c *CompressedHTTPResponseWriter) WriteHeader(statusCode int) {
	c.w.Header().Set("Content-Encoding", "gzip")
	c.w.WriteHeader(statusCode)
}

// Close flushes the gzip stream and returns the writer to the pool.
func (c *CompressedHTTPResponseWriter) Close() error {
	err := c.zw.Close()
	gzipWriterPool.Put(c.zw)
	return err
}

// WithGzipResponseMiddleware wraps h so that responses are gzip compressed
// when the client accepts it.
func WithGzipResponseMiddleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressed := NewCompressedHTTPResponseWriter(response)
		defer func() {
			_ = compressed.Close()
		}()

		h.ServeHTTP(compressed, request)
	}

	return http.HandlerFunc(middleware)
}
