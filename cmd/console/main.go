package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/justinabrahms/atchess3d/internal/chess"
	"github.com/justinabrahms/atchess3d/internal/record"
	"github.com/justinabrahms/atchess3d/internal/watch"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	selfCheck := flag.Bool("self-check", false, "Reject moves that leave the mover's king attacked")
	load := flag.String("load", "", "Resume a game from a CAR archive")
	verbose := flag.Bool("v", false, "Log engine activity to stderr")
	server := flag.String("watch", "", "Follow a game on a running server, e.g. http://localhost:8080")
	gameID := flag.String("game", "", "Game ID to follow with -watch")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level).With().Timestamp().Logger()

	if *server != "" {
		if err := watchGame(*server, *gameID, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("Watch stopped")
		}
		return
	}

	var opts []chess.Option
	if *selfCheck {
		opts = append(opts, chess.WithSelfCheckFiltering())
	}

	engine := chess.NewEngine(opts...)
	if *load != "" {
		var err error
		if engine, err = loadArchive(*load, opts); err != nil {
			log.Fatal().Err(err).Str("path", *load).Msg("Failed to load game")
		}
	}

	c := &console{engine: engine, out: os.Stdout}
	if err := c.run(os.Stdin); err != nil {
		log.Fatal().Err(err).Msg("Console stopped")
	}
}

func loadArchive(path string, opts []chess.Option) (*chess.Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, root, err := record.ReadCAR(f)
	if err != nil {
		return nil, err
	}
	log.Info().Str("root", root.String()).Int("moves", len(r.Moves)).Msg("Replaying archive")
	return record.Replay(r, opts...)
}

func watchGame(server, gameID string, out io.Writer) error {
	if gameID == "" {
		return fmt.Errorf("-game is required with -watch")
	}

	client, err := watch.NewClient(server, gameID, func(u watch.Update) error {
		return printUpdate(out, u)
	}, watch.WithLogger(log.Logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "watching %s, Ctrl-C to stop\n", gameID)
	return client.Run(ctx)
}

func printUpdate(out io.Writer, u watch.Update) error {
	switch u.Type {
	case "move":
		var result chess.MoveResult
		if err := json.Unmarshal(u.Data, &result); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d. %s %s %s -> %s (%s)\n", result.MoveNumber, result.Piece.Color, result.Piece.Kind,
			result.From.Algebraic(), result.To.Algebraic(), result.State)
	case "game_end":
		var end struct {
			State  chess.GameState `json:"state"`
			Winner string          `json:"winner"`
		}
		if err := json.Unmarshal(u.Data, &end); err != nil {
			return err
		}
		if end.Winner != "" {
			fmt.Fprintf(out, "game over: %s, %s wins\n", end.State, end.Winner)
		} else {
			fmt.Fprintf(out, "game over: %s\n", end.State)
		}
	default:
		fmt.Fprintf(out, "%s: %s\n", u.Type, u.Data)
	}
	return nil
}
