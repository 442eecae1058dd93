package http

import (
	"bytes"
	"errors"
)

// ErrMalformedRequestLine is returned when the first line of a request does
// not split into method, path and version.
var ErrMalformedRequestLine = errors.New("http: malformed request line")

// FindHeader scans a CRLF-delimited header block for the named header,
// case-insensitively, and returns its value with leading spaces and tabs
// stripped. The first matching line wins. A line that carries the candidate
// name but no colon directly after it is a non-match, not an error.
func FindHeader(headers []byte, name string) ([]byte, bool) {
	pos := 0
	for pos < len(headers) {
		end := bytes.Index(headers[pos:], crlf)
		if end < 0 {
			break
		}
		end += pos

		if end-pos > len(name) && equalFold(headers[pos:pos+len(name)], name) && headers[pos+len(name)] == ':' {
			val := pos + len(name) + 1
			for val < end && (headers[val] == ' ' || headers[val] == '\t') {
				val++
			}
			return headers[val:end], true
		}

		pos = end + 2
	}
	return nil, false
}

// Request is the ephemeral parsed form of a buffered request. It borrows
// from the connection's buffer and must not outlive it.
type Request struct {
	Method  string
	Path    string
	Version string
	Body    []byte
}

// ParseRequestLine splits the first line of raw into its three tokens and
// locates the start of the body. bodyStart is -1 while the CRLFCRLF
// separator has not arrived yet; callers must then wait for more bytes.
func ParseRequestLine(raw []byte) (method, path, version []byte, bodyStart int, err error) {
	methodEnd := bytes.IndexByte(raw, ' ')
	if methodEnd < 0 {
		return nil, nil, nil, -1, ErrMalformedRequestLine
	}
	pathEnd := bytes.IndexByte(raw[methodEnd+1:], ' ')
	if pathEnd < 0 {
		return nil, nil, nil, -1, ErrMalformedRequestLine
	}
	pathEnd += methodEnd + 1

	version = raw[pathEnd+1:]
	if i := bytes.Index(version, crlf); i >= 0 {
		version = version[:i]
	}

	bodyStart = -1
	if i := bytes.Index(raw, headerSep); i >= 0 {
		bodyStart = i + len(headerSep)
	}

	return raw[:methodEnd], raw[methodEnd+1 : pathEnd], version, bodyStart, nil
}

// ParseRequest derives a Request from a fully buffered message. The body
// slice is empty when the separator is absent or nothing follows it.
func ParseRequest(raw []byte) (Request, error) {
	method, path, version, bodyStart, err := ParseRequestLine(raw)
	if err != nil {
		return Request{}, err
	}

	var body []byte
	if bodyStart >= 0 {
		body = raw[bodyStart:]
	}

	return Request{
		Method:  string(method),
		Path:    string(path),
		Version: string(version),
		Body:    body,
	}, nil
}
