package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/cnc-relay/internal/api"
	"github.com/banshee-data/cnc-relay/internal/config"
	"github.com/banshee-data/cnc-relay/internal/serialport"
	"github.com/banshee-data/cnc-relay/internal/session"
	"github.com/banshee-data/cnc-relay/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Relay to a simulated controller instead of real serial ports")
	listen      = flag.String("listen", "", "Listen address (overrides the config file, default :8080)")
	configFile  = flag.String("config", "", "Path to a JSON config file")
	port        = flag.String("port", "", "Default serial port for /get_val_from/ (overrides the config file)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// devPorts are the ports exposed by the simulated controller in dev mode.
var devPorts = []string{"COM3", "/dev/ttyUSB0"}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(path)
}

// applyFlags lets non-empty command line values win over the file.
func applyFlags(cfg *config.Config, listenAddr, defaultPort string) {
	if listenAddr != "" {
		cfg.Listen = &listenAddr
	}
	if defaultPort != "" {
		cfg.DefaultPort = &defaultPort
	}
}

func newBackend(dev bool) (serialport.Factory, serialport.Lister) {
	if dev {
		sim := serialport.NewSimulator(serialport.GRBLResponder, devPorts...)
		sim.SetLatency(5 * time.Millisecond)
		return sim, sim
	}
	return serialport.NewRealFactory(), serialport.SystemLister{}
}

// newHandler builds the session manager and the full HTTP handler around it.
func newHandler(cfg *config.Config, factory serialport.Factory, lister serialport.Lister) (http.Handler, *session.Manager) {
	manager := session.NewManager(factory, cfg.SessionOptions())

	srv := api.NewServer(manager, lister, cfg.GetDefaultPort())
	srv.SetReleaseTimeout(cfg.GetReadWindow() + time.Second)

	mux := srv.ServeMux()
	manager.AttachAdminRoutes(mux)
	return api.LoggingMiddleware(mux), manager
}

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg, *listen, *port)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	factory, lister := newBackend(*devMode)
	if *devMode {
		log.Printf("dev mode: simulated controller on %v", devPorts)
	}
	handler, manager := newHandler(cfg, factory, lister)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:              cfg.GetListen(),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.Printf("%s listening on %s", version.String(), server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("failed to start server: %v", err)
				os.Exit(1)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// in-flight sends finish within the read window
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetReadWindow()+time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		if err := manager.Release(shutdownCtx); err != nil {
			log.Printf("failed to release serial port: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
