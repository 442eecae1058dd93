package http

import (
	"bytes"
	"errors"
)

// FramingMode describes how a request's body is delimited. Once a
// connection's mode leaves FramingUnknown it never changes again.
type FramingMode uint8

const (
	FramingUnknown FramingMode = iota
	FramingNone
	FramingFixed
	FramingChunked
)

var (
	ErrRequestTooLarge  = errors.New("http: buffered request exceeds maximum size")
	ErrBadContentLength = errors.New("http: content-length is not a non-negative integer")
	ErrBadChunkSize     = errors.New("http: chunk size line is not hexadecimal")
	ErrTruncatedChunk   = errors.New("http: chunked body ends mid-chunk")
	ErrPeerClosed       = errors.New("http: peer closed before request was complete")
)

// Framer accumulates the raw bytes of one request and tracks how far framing
// has progressed. Bytes are only ever appended; nothing already classified
// as header or body is discarded before teardown. A Framer is owned by a
// single goroutine at any moment and needs no locking.
type Framer struct {
	buf       []byte
	maxSize   int
	headerEnd int // offset just past CRLFCRLF, -1 until known
	mode      FramingMode
	need      int // body bytes declared by Content-Length
	scanned   int // high-water mark of the separator search
	complete  bool
	err       error
}

func NewFramer(maxSize int) *Framer {
	if maxSize <= 0 {
		maxSize = MaxRequestSize
	}
	return &Framer{maxSize: maxSize, headerEnd: -1}
}

// Complete reports whether the buffered bytes form one whole request.
func (f *Framer) Complete() bool { return f.complete }

// Mode returns the detected body framing mode.
func (f *Framer) Mode() FramingMode { return f.mode }

// HeaderEnd returns the offset of the first body byte, or -1 while the
// header block is still incomplete.
func (f *Framer) HeaderEnd() int { return f.headerEnd }

// Bytes returns the full buffered request, headers included.
func (f *Framer) Bytes() []byte { return f.buf }

// Body returns the body bytes buffered so far.
func (f *Framer) Body() []byte {
	if f.headerEnd < 0 {
		return nil
	}
	return f.buf[f.headerEnd:]
}

// Advance appends newly received bytes and moves the framing state machine
// forward. A non-nil return means framing failed for good; the connection
// must be torn down without invoking a handler.
func (f *Framer) Advance(p []byte) error {
	if f.err != nil {
		return f.err
	}
	if len(f.buf)+len(p) > f.maxSize {
		return f.fail(ErrRequestTooLarge)
	}
	f.buf = append(f.buf, p...)

	if f.mode == FramingUnknown {
		if err := f.detect(); err != nil {
			return err
		}
		if f.mode == FramingUnknown {
			return nil // separator not seen yet
		}
	}

	switch f.mode {
	case FramingNone:
		f.complete = true
	case FramingFixed:
		f.complete = len(f.buf) >= f.headerEnd+f.need
	case FramingChunked:
		f.complete = chunkedTerminated(f.buf, f.headerEnd)
	}
	return nil
}

// detect searches the newly arrived region for the header/body separator,
// with 3 bytes of overlap so a separator split across reads is still found,
// and fixes the framing mode from Transfer-Encoding or Content-Length.
func (f *Framer) detect() error {
	from := f.scanned - (len(headerSep) - 1)
	if from < 0 {
		from = 0
	}
	i := bytes.Index(f.buf[from:], headerSep)
	if i < 0 {
		f.scanned = len(f.buf)
		return nil
	}
	f.headerEnd = from + i + len(headerSep)

	// The block handed to FindHeader keeps the last header line's CRLF
	// but not the blank line.
	headers := f.buf[:f.headerEnd-2]

	if te, ok := FindHeader(headers, "Transfer-Encoding"); ok && containsFold(te, tokenChunked) {
		f.mode = FramingChunked
		return nil
	}
	if cl, ok := FindHeader(headers, "Content-Length"); ok {
		n, err := atoi(cl)
		if err != nil {
			return f.fail(ErrBadContentLength)
		}
		f.mode = FramingFixed
		f.need = n
		f.reserve(f.headerEnd + n)
		return nil
	}
	f.mode = FramingNone
	return nil
}

func (f *Framer) reserve(total int) {
	if total > maxBodyReserve || total <= cap(f.buf) {
		return
	}
	grown := make([]byte, len(f.buf), total)
	copy(grown, f.buf)
	f.buf = grown
}

func (f *Framer) fail(err error) error {
	f.err = err
	return err
}

// chunkedTerminated reports whether the body region contains the final
// zero-size chunk: either the body is exactly "0\r\n\r\n" from its first
// byte, or "\r\n0\r\n\r\n" occurs anywhere after the headers. The scan does
// not exclude terminator-like bytes inside raw chunk payload; a payload
// containing that exact sequence completes early. Known limitation.
func chunkedTerminated(buf []byte, headerEnd int) bool {
	if headerEnd < 0 || len(buf) < headerEnd {
		return false
	}
	body := buf[headerEnd:]
	if bytes.HasPrefix(body, chunkEnd) {
		return true
	}
	return bytes.Contains(body, crlfChunkEnd)
}

// DecodeChunked reassembles a chunked transfer-encoded body: a hexadecimal
// size line, that many payload bytes, a trailing CRLF, repeated until the
// zero-size chunk. Trailer headers are not supported.
func DecodeChunked(body []byte) ([]byte, error) {
	var out []byte
	pos := 0
	for {
		nl := bytes.Index(body[pos:], crlf)
		if nl < 0 {
			return nil, ErrTruncatedChunk
		}
		size, ok := parseHex(body[pos : pos+nl])
		if !ok {
			return nil, ErrBadChunkSize
		}
		pos += nl + len(crlf)

		if size == 0 {
			if !bytes.HasPrefix(body[pos:], crlf) {
				return nil, ErrTruncatedChunk
			}
			return out, nil
		}

		if pos+size+len(crlf) > len(body) {
			return nil, ErrTruncatedChunk
		}
		out = append(out, body[pos:pos+size]...)
		pos += size
		if !bytes.Equal(body[pos:pos+len(crlf)], crlf) {
			return nil, ErrTruncatedChunk
		}
		pos += len(crlf)
	}
}
