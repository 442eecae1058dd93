// Package http implements a minimal HTTP/1.1 server directly over raw TCP
// sockets. A non-blocking epoll loop accepts connections and either hands
// each one to a worker pool for blocking request handling, or keeps framing
// state itself and advances it on readiness events. Every connection carries
// exactly one request and is closed after the response is written.
package http

const (
	// MaxRequestSize bounds the bytes buffered for a single request,
	// independent of any declared Content-Length.
	MaxRequestSize = 64 * 1024

	// DefaultReadBufferSize is the per-read chunk size.
	DefaultReadBufferSize = 4096

	// DefaultMaxEvents caps how many readiness events one epoll wait
	// may return.
	DefaultMaxEvents = 1000

	listenBacklog = 1024

	// maxBodyReserve caps the capacity pre-reserved for a declared
	// Content-Length, so a hostile header cannot trigger a huge
	// allocation up front.
	maxBodyReserve = 100 * 1024 * 1024
)

// Handler produces the complete response bytes (status line, headers, blank
// line, body) for a routed request. It is invoked exactly once per completed
// request and never concurrently for the same connection.
type Handler func(method, path string) string

var (
	crlf         = []byte("\r\n")
	headerSep    = []byte("\r\n\r\n")
	chunkEnd     = []byte("0\r\n\r\n")
	crlfChunkEnd = []byte("\r\n0\r\n\r\n")
	tokenChunked = []byte("chunked")
)
