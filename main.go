package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartoza/tileserve/internal/config"
	"github.com/kartoza/tileserve/internal/filesource"
	"github.com/kartoza/tileserve/internal/httpserver"
	"github.com/kartoza/tileserve/internal/render"
	"github.com/kartoza/tileserve/internal/style"
)

var version = "dev"

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	configFile := flag.String("config", "./config.json", "Path to the JSON configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tileserve v%s\n", version)
		os.Exit(0)
	}

	fs := config.OSFs()
	cfg, err := config.LoadConfig(fs, *configFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	availablePort, err := findAvailablePort(*port, 10)
	if err != nil {
		log.Fatalf("Failed to find available port: %v", err)
	}
	if availablePort != *port {
		log.Printf("Port %d in use, using port %d instead", *port, availablePort)
	}

	ctx := context.Background()

	src, err := filesource.New(ctx)
	if err != nil {
		log.Fatalf("filesource: %v", err)
	}
	defer src.Close()

	catalog, err := style.LoadAll(ctx, cfg, fs, src)
	if err != nil {
		log.Fatalf("style: %v", err)
	}

	icons := render.NewIconLoader(fs, cfg.Options.Paths.Icons)

	srv := httpserver.NewServer(cfg, catalog, src, icons, render.NewEngine)

	log.Printf("tileserve v%s starting on port %d", version, availablePort)
	log.Printf("styles root: %s", cfg.Options.Paths.Root)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", availablePort))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received %v signal, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		addr := fmt.Sprintf(":%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
