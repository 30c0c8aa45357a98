// Command dropfour starts the real-time Connect Four server.
//
// It exposes a WebSocket gameplay endpoint, a small REST API for health and
// the leaderboard, and optionally an ngrok tunnel for easy external access
// during development. MongoDB persistence is enabled when MONGO_URI is set;
// without it the server still plays games but keeps no records.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/dropfour/dropfour/api"
	"github.com/dropfour/dropfour/config"
	"github.com/dropfour/dropfour/events"
	"github.com/dropfour/dropfour/game/service"
	"github.com/dropfour/dropfour/game/session"
	"github.com/dropfour/dropfour/logger"
	"github.com/dropfour/dropfour/storage"
	"github.com/dropfour/dropfour/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "DropFour Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	cmd := &cli.Command{
		Name:    "dropfour",
		Usage:   "real-time Connect Four server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "HTTP server host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP server port",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "ngrok",
				Usage: "Enable ngrok tunnel (requires NGROK_AUTHTOKEN)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// run wires the full server: config, logging, persistence, events, the
// session hub, transports, and graceful shutdown.
func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	// CLI flags override the environment.
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("ngrok") {
		cfg.NgrokEnabled = cmd.Bool("ngrok")
	}

	logger.Init(cfg.Debug)
	logger.InfoF("Starting %s v%s", AppName, Version)

	// Persistence is optional: without MONGO_URI the server plays games
	// but records nothing.
	var store *storage.MongoStore
	if cfg.MongoURI != "" {
		store, err = storage.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.ErrorF("database close failed: %v", err)
			}
		}()
	} else {
		logger.Warn("MONGO_URI not set, running without persistence")
	}

	sinks := []events.Sink{events.LogSink{}}
	var persistence service.PersistenceStore
	var standings service.StandingsReader
	if store != nil {
		sinks = append(sinks, store)
		persistence = store
		standings = store
	}

	publisher := events.NewAsyncPublisher(256, sinks...)
	defer publisher.Close()

	hub := session.New(session.Config{
		MatchmakingTimeout: cfg.MatchmakingTimeout,
		ReconnectGrace:     cfg.ReconnectGrace,
		BotMoveDelay:       cfg.BotMoveDelay,
	}, persistence, publisher)

	gateway := websocket.NewGateway(hub)
	apiServer := api.NewServer(hub, gateway, standings)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.InfoF("HTTP server listening on %s", cfg.Addr())
		logger.InfoF("WebSocket: ws://%s/ws", cfg.Addr())
		logger.InfoF("REST API: http://%s/api", cfg.Addr())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorF("HTTP server failed: %v", err)
			cancel()
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(runCtx, apiServer)
		}()
	}

	select {
	case sig := <-stop:
		logger.InfoF("Received signal: %v. Shutting down...", sig)
	case <-runCtx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorF("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	logger.Info("Server stopped")
	return nil
}

// runNgrokTunnel serves the API through a public ngrok endpoint until ctx
// is cancelled.
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := os.Getenv("NGROK_AUTHTOKEN")
	if authToken == "" {
		logger.Warn("Ngrok enabled but NGROK_AUTHTOKEN is not set")
		return
	}

	logger.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := os.Getenv("NGROK_DOMAIN"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.InfoF("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.ErrorF("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			logger.WarnF("Failed to close ngrok tunnel: %v", err)
		}
	}()

	logger.InfoF("Ngrok tunnel established: %s", tun.URL())

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		logger.WarnF("Ngrok server error: %v", err)
	}
	logger.Info("Ngrok tunnel closed")
}
