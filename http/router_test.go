package http

import (
	"strings"
	"testing"

	"github.com/flinthq/flint/test"
)

func TestRouterFirstMatchWins(t *testing.T) {
	router := NewRouter()
	router.GET("/status", func(method, path string) string { return "first" })
	router.GET("/status", func(method, path string) string { return "second" })

	handler, found := router.Lookup("GET", "/status")
	test.True(t, found)
	test.Equal(t, "first", handler("GET", "/status"))
}

func TestRouterExactMatch(t *testing.T) {
	router := NewRouter()
	router.POST("/echo", func(method, path string) string { return "echo" })

	if _, found := router.Lookup("GET", "/echo"); found {
		t.Error("method mismatch should not match")
	}
	if _, found := router.Lookup("POST", "/echo/"); found {
		t.Error("path mismatch should not match")
	}
	if _, found := router.Lookup("POST", "/Echo"); found {
		t.Error("path comparison must be case sensitive")
	}

	handler, found := router.Lookup("POST", "/echo")
	test.True(t, found)
	test.Equal(t, "echo", handler("POST", "/echo"))
}

func TestNotFoundResponseBytes(t *testing.T) {
	want := "HTTP/1.1 404 Not Found\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		"404 Not Found"
	test.Equal(t, want, NotFoundResponse)
}

func TestBuildResponse(t *testing.T) {
	resp := BuildResponse(StatusOK, "text/plain", "Status: OK")

	test.True(t, strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n"))
	test.True(t, strings.Contains(resp, "Content-Length: 10\r\n"))
	test.True(t, strings.Contains(resp, "Connection: close\r\n"))
	test.True(t, strings.HasSuffix(resp, "\r\n\r\nStatus: OK"))
}
