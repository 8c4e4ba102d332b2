package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinabrahms/atchess3d/internal/auth"
	"github.com/justinabrahms/atchess3d/internal/config"
	"github.com/justinabrahms/atchess3d/internal/session"
	"github.com/justinabrahms/atchess3d/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Parse command line flags
	var showHelp bool
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.Parse()

	if showHelp {
		showHelpMessage()
		return
	}

	// Setup logging
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(cfg.Development)

	signer := auth.NewSigner(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if signer == nil {
		log.Warn().Msg("auth.secret is empty, moves are accepted without seat tokens")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := web.NewHub()
	go hub.Run(ctx)

	service := web.NewService(session.NewManager(), hub, signer, cfg)

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      service.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Bool("selfCheckFiltering", cfg.Game.SelfCheckFiltering).
			Int("daysPerMove", cfg.Game.DaysPerMove).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	stop()

	log.Info().Msg("Server exited")
}

func setupLogging(dev config.DevelopmentConfig) {
	level, err := zerolog.ParseLevel(dev.LogLevel)
	if err != nil {
		log.Warn().Str("level", dev.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if dev.Debug {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	}
}

func showHelpMessage() {
	fmt.Println(`ATChess3D Server

DESCRIPTION:
    HTTP and WebSocket service for 8x8x8 three-dimensional chess.
    Hosts live games in memory, validates every move, pushes updates
    to viewers and exports games as CAR archives.

USAGE:
    atchess3d-server [OPTIONS]

OPTIONS:
    -h, --help    Show this help message

CONFIGURATION:
    The server is configured via config.yaml in the current directory
    or ./config, and ATCHESS3D_* environment variables.

    Example config.yaml:
        server:
          host: localhost
          port: 8080

        game:
          self_check_filtering: false   # reject moves that leave the king attacked
          days_per_move: 0              # correspondence clock, 0 disables

        auth:
          secret: ""                    # seat tokens are off when empty
          token_ttl: 720h

        development:
          debug: true
          log_level: debug

API ENDPOINTS:
    GET  /api/health                          - Service health check
    POST /api/games                           - Create a new game
    GET  /api/games                           - List games (?status=active)
    GET  /api/games/{id}                      - Game snapshot
    GET  /api/games/{id}/destinations?from=   - Legal destinations of a piece
    POST /api/games/{id}/moves                - Submit a move {"from","to"}
    GET  /api/games/{id}/moves                - Move history
    GET  /api/games/{id}/clock                - Time left for the side to move
    GET  /api/games/{id}/export               - Download the game as a CAR archive
    POST /api/games/import                    - Replay a CAR archive into a new game
    GET  /ws?gameId=                          - Live updates for a game

EXAMPLES:
    # Start with default configuration
    atchess3d-server

    # Create a game and move a pawn
    curl -X POST http://localhost:8080/api/games
    curl -X POST http://localhost:8080/api/games/<id>/moves \
      -H "Content-Type: application/json" \
      -d '{"from": "E21", "to": "5,4,1"}'`)
}
