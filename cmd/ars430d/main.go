// Command ars430d receives ARS430 radar telemetry over UDP, decodes it, and
// fans the results out to SQLite, an optional Redis cache, an optional plot
// directory, and an HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/ars430.report/internal/api"
	"github.com/banshee-data/ars430.report/internal/ars430/network"
	"github.com/banshee-data/ars430.report/internal/ars430/pipeline"
	"github.com/banshee-data/ars430.report/internal/ars430/plot"
	"github.com/banshee-data/ars430.report/internal/ars430/publish"
	"github.com/banshee-data/ars430.report/internal/ars430/store"
	"github.com/banshee-data/ars430.report/internal/config"
	"github.com/banshee-data/ars430.report/internal/db"
	"github.com/banshee-data/ars430.report/internal/monitoring"
	"github.com/banshee-data/ars430.report/internal/units"
	"github.com/banshee-data/ars430.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config file (optional)")
	listen      = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbFile      = flag.String("db", "", "Path to the SQLite database file (overrides config)")
	pcapFile    = flag.String("pcap", "", "Replay packets from a PCAP capture instead of listening (requires -tags=pcap build)")
	speedUnits  = flag.String("units", units.MPS, "Speed units for API output (mps, mph, kmph, kph)")
	noDB        = flag.Bool("no-db", false, "Disable SQLite persistence")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("ars430d %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := config.EmptyConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	httpListen := cfg.GetHTTPListen()
	if *listen != "" {
		httpListen = *listen
	}
	dbPath := cfg.GetDBPath()
	if *dbFile != "" {
		dbPath = *dbFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Assemble the publisher fan-out. The in-memory cache always runs; the
	// rest depends on configuration.
	cache := api.NewLatest()
	publishers := publish.Multi{cache}

	var database *db.DB
	if !*noDB {
		var err error
		database, err = db.NewDB(dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(cfg.GetMigrationsDir()); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		publishers = append(publishers, db.NewRecorder(database))
	}

	if addr := cfg.GetRedisAddr(); addr != "" {
		redisStore, err := store.NewStore(ctx, addr, cfg.GetRedisDB())
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisStore.Close()
		publishers = append(publishers, redisStore)
	}

	if dir := cfg.GetPlotDir(); dir != "" {
		plotter, err := plot.NewBatchPlotter(dir, 10*time.Second)
		if err != nil {
			log.Fatalf("failed to create batch plotter: %v", err)
		}
		publishers = append(publishers, plotter)
	}

	pipe := pipeline.New(pipeline.Config{
		Publisher: publishers,
		Immediate: cfg.GetImmediate(),
	})

	if *pcapFile != "" {
		// Offline mode: replay the capture through the same pipeline,
		// flush the trailing batches, and report.
		port := udpPortFromListen(cfg.GetUDPListen())
		if err := network.ReplayPCAPFile(ctx, *pcapFile, port, pipe); err != nil {
			log.Fatalf("PCAP replay failed: %v", err)
		}
		pipe.Flush()
		pipe.Stats().LogStats()
		return
	}

	var forwarder *network.PacketForwarder
	if addr := cfg.GetForwardAddr(); addr != "" {
		var err error
		forwarder, err = network.NewPacketForwarder(addr, cfg.GetLogInterval())
		if err != nil {
			log.Fatalf("failed to create packet forwarder: %v", err)
		}
		defer forwarder.Close()
	}

	listener := network.NewUDPListener(network.UDPListenerConfig{
		Address:     cfg.GetUDPListen(),
		SensorIP:    cfg.GetSensorIP(),
		RcvBuf:      cfg.GetRcvBuf(),
		LogInterval: cfg.GetLogInterval(),
		Handler:     pipe,
		Stats:       pipe.Stats(),
		Forwarder:   forwarder,
	})

	var wg sync.WaitGroup

	// UDP receive loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			monitoring.Logf("UDP listener failed: %v", err)
			stop()
		}
		monitoring.Logf("UDP listener routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(database, pipe.Stats(), cache, *speedUnits)

		server := &http.Server{
			Addr:    httpListen,
			Handler: api.LoggingMiddleware(apiServer.ServeMux()),
		}

		go func() {
			monitoring.Logf("HTTP API listening on %s", httpListen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
		}

		monitoring.Logf("HTTP server routine stopped")
	}()

	wg.Wait()

	// Drain partially filled batches before exit so a capture session
	// doesn't lose its tail.
	pipe.Flush()
	pipe.Stats().LogStats()
	monitoring.Logf("Graceful shutdown complete")
}

// udpPortFromListen extracts the port number from a listen address like
// ":31122" or "0.0.0.0:31122".
func udpPortFromListen(addr string) int {
	port := 31122
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			fmt.Sscanf(addr[i+1:], "%d", &port)
			break
		}
	}
	return port
}
