package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// NewHTTPServer creates a configured HTTP server
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// GracefulShutdown performs graceful shutdown of the HTTP server
func GracefulShutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return srv.Shutdown(ctx)
}

// SetupSignalHandler sets up OS signal handling for SIGINT and SIGTERM
func SetupSignalHandler() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

// WaitForSignal waits for termination signals and returns the received signal
func WaitForSignal(ch chan os.Signal) os.Signal {
	return <-ch
}

// Shutdownable is anything that participates in graceful shutdown.
type Shutdownable interface {
	Shutdown(ctx context.Context) error
}

// ShutdownWithComponents shuts down the server and then each component,
// splitting the remaining timeout between them.
func ShutdownWithComponents(srv *http.Server, timeout time.Duration, components []Shutdownable) error {
	if err := GracefulShutdown(srv, timeout); err != nil {
		return err
	}

	for _, comp := range components {
		ctx, cancel := context.WithTimeout(context.Background(), timeout/time.Duration(len(components)+1))
		if err := comp.Shutdown(ctx); err != nil {
			cancel()
			return err
		}
		cancel()
	}
	return nil
}
