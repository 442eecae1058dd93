package http

import "strconv"

const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusInternalServerError = 500
)

var statusText = map[int]string{
	StatusOK:                  "OK",
	StatusBadRequest:          "Bad Request",
	StatusNotFound:            "Not Found",
	StatusInternalServerError: "Internal Server Error",
}

// NotFoundResponse is written when no route matches a completed request.
const NotFoundResponse = "HTTP/1.1 404 Not Found\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 13\r\n" +
	"\r\n" +
	"404 Not Found"

// BuildResponse assembles a complete one-shot response for handlers that do
// not want to spell out the status line and headers themselves. The
// Connection: close header reflects the one-request-then-close contract.
func BuildResponse(status int, contentType, body string) string {
	text, ok := statusText[status]
	if !ok {
		text = "OK"
	}
	return "HTTP/1.1 " + strconv.Itoa(status) + " " + text + "\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		body
}
