package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/justinabrahms/atchess3d/internal/chess"
)

var ErrNoTimeControl = errors.New("no time control for this game")

// MaxDaysPerMove bounds the per-move allowance well inside time.Duration.
const MaxDaysPerMove = 3650

// TimeViolation represents a time control violation
type TimeViolation struct {
	Color         chess.Color `json:"color"`
	LastMoveAt    time.Time   `json:"lastMoveAt"`
	DeadlineAt    time.Time   `json:"deadlineAt"`
	ViolationType string      `json:"violationType"` // "timeout"
}

// Clock is a correspondence clock: each side has DaysPerMove days from the
// opponent's last move (or the start of the game) to reply. A zero
// DaysPerMove disables it.
type Clock struct {
	DaysPerMove int
	startedAt   time.Time
	lastMoves   map[chess.Color]time.Time
}

func NewClock(daysPerMove int, startedAt time.Time) *Clock {
	return &Clock{
		DaysPerMove: daysPerMove,
		startedAt:   startedAt,
		lastMoves:   make(map[chess.Color]time.Time),
	}
}

func (c *Clock) enabled() bool {
	return c.DaysPerMove > 0
}

func (c *Clock) allowance() time.Duration {
	days := c.DaysPerMove
	if days > MaxDaysPerMove {
		days = MaxDaysPerMove
	}
	return time.Duration(days) * 24 * time.Hour
}

// RecordMove records when a side made a move
func (c *Clock) RecordMove(color chess.Color, at time.Time) {
	c.lastMoves[color] = at
}

// deadline is measured from the opponent's last move, which handed the turn
// to color.
func (c *Clock) deadline(color chess.Color) (time.Time, time.Time) {
	since, ok := c.lastMoves[color.Opposite()]
	if !ok {
		since = c.startedAt
	}
	return since, since.Add(c.allowance())
}

// TimeRemaining returns the time left for color to move.
func (c *Clock) TimeRemaining(color chess.Color, now time.Time) (time.Duration, error) {
	if !c.enabled() {
		return 0, ErrNoTimeControl
	}

	_, deadline := c.deadline(color)
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// CheckTimeViolation checks if color has run out of time.
func (c *Clock) CheckTimeViolation(color chess.Color, now time.Time) *TimeViolation {
	if !c.enabled() {
		return nil
	}

	since, deadline := c.deadline(color)
	if !now.After(deadline) {
		return nil
	}
	return &TimeViolation{
		Color:         color,
		LastMoveAt:    since,
		DeadlineAt:    deadline,
		ViolationType: "timeout",
	}
}

// FormatTimeRemaining formats time remaining in a human-readable way
func FormatTimeRemaining(remaining time.Duration) string {
	if remaining <= 0 {
		return "Time expired"
	}

	days := int(remaining.Hours() / 24)
	hours := int(remaining.Hours()) % 24
	minutes := int(remaining.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%d days, %d hours", days, hours)
		}
		return fmt.Sprintf("%d days", days)
	}

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%d hours, %d minutes", hours, minutes)
		}
		return fmt.Sprintf("%d hours", hours)
	}

	return fmt.Sprintf("%d minutes", minutes)
}
