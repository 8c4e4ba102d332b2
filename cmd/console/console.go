package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/justinabrahms/atchess3d/internal/chess"
	"github.com/justinabrahms/atchess3d/internal/record"
	"github.com/rs/zerolog/log"
)

const helpText = `Commands:
  <from> <to>     move a piece, squares as x,y,z or A11..H88
  moves <square>  list where the piece on square may go
  board           list every piece
  history         list the moves so far
  save <file>     write the game to a CAR archive
  help            show this text
  quit            leave`

type console struct {
	engine *chess.Engine
	out    io.Writer
}

func (c *console) run(in io.Reader) error {
	fmt.Fprintln(c.out, "3D chess console. Type 'help' for commands.")
	c.prompt()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			c.prompt()
			continue
		}

		switch strings.ToLower(tokens[0]) {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(c.out, helpText)
		case "board":
			c.printBoard()
		case "history":
			c.printHistory()
		case "moves":
			if len(tokens) != 2 {
				fmt.Fprintln(c.out, "usage: moves <square>")
				break
			}
			c.printDestinations(tokens[1])
		case "save":
			if len(tokens) != 2 {
				fmt.Fprintln(c.out, "usage: save <file>")
				break
			}
			c.save(tokens[1])
		default:
			if len(tokens) != 2 {
				fmt.Fprintf(c.out, "unknown command %q\n", tokens[0])
				break
			}
			c.move(tokens[0], tokens[1])
		}
		c.prompt()
	}
	return scanner.Err()
}

func (c *console) prompt() {
	fmt.Fprintf(c.out, "%s (%s)> ", c.engine.Turn(), c.engine.State())
}

func (c *console) move(from, to string) {
	result, err := c.engine.MakeMove(from, to)
	if err != nil {
		fmt.Fprintf(c.out, "rejected: %v\n", err)
		return
	}
	log.Debug().Str("from", result.From.String()).Str("to", result.To.String()).Msg("Move applied")

	fmt.Fprintf(c.out, "%d. %s %s %s -> %s", result.MoveNumber, result.Piece.Color, result.Piece.Kind,
		result.From.Algebraic(), result.To.Algebraic())
	if result.Captured != nil {
		fmt.Fprintf(c.out, " takes %s", result.Captured.Kind)
	}
	fmt.Fprintln(c.out)

	switch {
	case result.Checkmate:
		fmt.Fprintf(c.out, "checkmate, %s wins\n", result.Winner)
	case result.Stalemate:
		fmt.Fprintln(c.out, "stalemate")
	case result.Check:
		fmt.Fprintf(c.out, "%s is in check\n", result.Turn)
	}
}

func (c *console) printDestinations(square string) {
	from, ok := chess.ParseSquare(square)
	if !ok {
		fmt.Fprintf(c.out, "invalid square %q\n", square)
		return
	}
	piece, ok := c.engine.PieceAt(from)
	if !ok {
		fmt.Fprintf(c.out, "no piece at %s\n", from)
		return
	}

	dests := c.engine.LegalDestinationsFor(from).Sorted()
	names := make([]string, 0, len(dests))
	for _, d := range dests {
		names = append(names, d.Algebraic())
	}
	fmt.Fprintf(c.out, "%s %s at %s: %d moves\n", piece.Color, piece.Kind, from.Algebraic(), len(dests))
	if len(names) > 0 {
		fmt.Fprintln(c.out, strings.Join(names, " "))
	}
}

func (c *console) printBoard() {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SQUARE\tCOORD\tCOLOR\tPIECE")
	for _, p := range c.engine.Pieces() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Position.Algebraic(), p.Position, p.Color, p.Kind)
	}
	tw.Flush()

	material := c.engine.GetMaterialCount()
	fmt.Fprintf(c.out, "material: white %d, black %d\n", material.White, material.Black)
}

func (c *console) printHistory() {
	moves := c.engine.Moves()
	if len(moves) == 0 {
		fmt.Fprintln(c.out, "no moves yet")
		return
	}
	for i, mv := range moves {
		fmt.Fprintf(c.out, "%d. %s %s -> %s\n", i+1, mv.Piece.Kind, mv.From.Algebraic(), mv.To.Algebraic())
	}
}

func (c *console) save(path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(c.out, "save failed: %v\n", err)
		return
	}
	defer f.Close()

	root, err := record.WriteCAR(f, record.FromGame("console", time.Now(), c.engine))
	if err != nil {
		fmt.Fprintf(c.out, "save failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "saved %s (%s)\n", path, root)
}
