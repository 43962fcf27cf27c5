// ABOUTME: Entry point for the keyscope analyzer server
// ABOUTME: Parses CLI flags, wires config and logging, and starts the server
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyscope/keyscope-go/internal/config"
	"github.com/keyscope/keyscope-go/internal/server"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, watched for changes)")
	port       = flag.Int("port", 0, "Listen port (overrides config)")
	name       = flag.String("name", "", "Service name (overrides config)")
	apiKey     = flag.String("api-key", "", "Pre-shared key for the one-shot endpoint (overrides config)")
	logFile    = flag.String("log-file", "", "Log file path (default: stdout only)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	enableMDNS = flag.Bool("mdns", false, "Advertise the service via mDNS")
)

func main() {
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	var hot *config.HotConfig
	cfg := config.Default()
	if *configPath != "" {
		var err error
		hot, err = config.NewHotConfig(*configPath)
		if err != nil {
			log.Fatalf("error loading config: %v", err)
		}
		cfg = hot.Get()
	}

	// Flags beat the file.
	if *port != 0 {
		cfg.Port = *port
	}
	if *name != "" {
		cfg.Name = *name
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if *debug {
		cfg.Debug = true
	}
	if *enableMDNS {
		cfg.EnableMDNS = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if cfg.APIKey == "" {
		log.Printf("Warning: no API key configured, the one-shot endpoint will reject all requests")
	}

	log.Printf("Starting keyscope server %q on port %d", cfg.Name, cfg.Port)

	srv := server.New(cfg)

	if hot != nil {
		hot.OnReload(srv.UpdateConfig)
		if err := hot.Watch(); err != nil {
			log.Printf("Config watch disabled: %v", err)
		}
		defer hot.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
