package main

import (
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/flinthq/flint/http"
)

func main() {
	srv := http.NewServer(http.Config{Port: 8080})

	srv.AddEndpoint("GET", "/status", func(method, path string) string {
		return http.BuildResponse(http.StatusOK, "text/plain", "Status: OK")
	})

	// Simulates a heavy task; with the worker pool it must not starve
	// /status requests on other connections.
	srv.AddEndpoint("GET", "/slow", func(method, path string) string {
		time.Sleep(500 * time.Millisecond)
		return http.BuildResponse(http.StatusOK, "text/plain", "Task complete after 500ms delay.")
	})

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt)
		<-sigc
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
