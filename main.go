package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"memscramble-server/api"
	"memscramble-server/audit"
	"memscramble-server/boardconfig"
	"memscramble-server/config"
	"memscramble-server/keepalive"
	"memscramble-server/loghandler"
	"memscramble-server/resetscheduler"
	"memscramble-server/simulate"
	"memscramble-server/watchhub"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("server/.env"); err2 != nil {
			log.Print("No .env file found; using environment variables. For local dev, run from server/ or set BOARD_FILE and HTTP_PORT.")
		}
	}

	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	cfg := config.Load()

	if cfg.AuthIssuerURL == "" {
		slog.Warn("AUTH_ISSUER_URL is not set; the command façade will accept unauthenticated requests", "tag", "main")
	} else {
		slog.Info("auth configured", "tag", "main", "issuer", cfg.AuthIssuerURL)
	}

	slog.Info("configuration loaded", "tag", "main",
		"board_file", cfg.BoardFile, "http_port", cfg.HTTPPort,
		"reset_interval_sec", cfg.ResetIntervalSec, "keep_alive_interval_sec", cfg.KeepAliveIntervalSec,
		"simulation_enabled", cfg.Simulation.Enabled)

	b, err := boardconfig.Load(cfg.BoardFile)
	if err != nil {
		log.Fatalf("loading board configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	auditStore, err := audit.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connecting audit store: %v", err)
	}
	if auditStore != nil {
		defer auditStore.Close()
	}

	if cfg.ResetIntervalSec > 0 {
		scheduler := resetscheduler.New(b, time.Duration(cfg.ResetIntervalSec)*time.Second)
		go scheduler.Run(ctx)
	}

	if cfg.KeepAliveIntervalSec > 0 {
		prober := keepalive.New(fmt.Sprintf("http://localhost:%d", cfg.HTTPPort), time.Duration(cfg.KeepAliveIntervalSec)*time.Second)
		go prober.Run(ctx)
	}

	hub := watchhub.NewHub(b)
	go hub.Run(ctx)

	if cfg.Simulation.Enabled {
		go simulate.Run(ctx, b, simulate.Params{
			Players:    cfg.Simulation.Players,
			Tries:      cfg.Simulation.Tries,
			MaxDelayMS: cfg.Simulation.MaxDelayMS,
		})
	}

	var auditStoreIface audit.Store
	if auditStore != nil {
		auditStoreIface = auditStore
	}
	h := api.NewHandler(cfg, b, auditStoreIface)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /look/{playerId}", h.Look)
	mux.HandleFunc("GET /flip/{playerId}/{row}/{column}", h.Flip)
	mux.HandleFunc("GET /replace/{playerId}/{from}/{to}", h.Replace)
	mux.HandleFunc("GET /watch/{playerId}", h.Watch)
	mux.HandleFunc("/ws/watch/{playerId}", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(r.PathValue("playerId"), w, r)
	})
	mux.HandleFunc("/ping", keepalive.Ping)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received", "tag", "main")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("memory scramble server listening", "tag", "main", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
