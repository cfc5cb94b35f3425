// Command mockserver runs the in-memory JusticIA backend used for local
// development and integration tests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"justicia-client/internal/mockapi"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	warmupFailures := flag.Int("warmup-failures", 0, "number of 503s the search endpoint returns before serving")
	token := flag.String("token", "", "when set, require this bearer token")
	flag.Parse()

	backend := mockapi.New()
	if *warmupFailures > 0 {
		backend.SetWarmupFailures(*warmupFailures)
	}
	if *token != "" {
		backend.RequireToken(*token)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: backend.Router(),
	}

	go func() {
		slog.Info("mock backend listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
