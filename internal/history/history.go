// Package history records finished hands as one PHH-style TOML file each.
// Recording is optional; the server only builds a Writer when a directory is
// configured.
package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Record is one complete hand. Player-indexed slices (Players, Blinds,
// StartingStacks, ...) run in seat order over the seats dealt into the hand;
// Seats maps each position back to its table seat index.
type Record struct {
	Variant         string   `toml:"variant"`
	HandID          string   `toml:"hand"`
	Time            string   `toml:"time,omitempty"`
	SeatCount       int      `toml:"seat_count"`
	Seats           []int    `toml:"seats"`
	Players         []string `toml:"players"`
	Blinds          []int    `toml:"blinds_or_straddles"`
	MinBet          int      `toml:"min_bet"`
	StartingStacks  []int    `toml:"starting_stacks"`
	FinishingStacks []int    `toml:"finishing_stacks,omitempty"`
	Winnings        []int    `toml:"winnings,omitempty"`
	Board           []string `toml:"board,omitempty"`
	Actions         []string `toml:"actions"`
}

// Position returns the 1-based player position for a table seat index, or 0
// when the seat was not dealt in.
func (r *Record) Position(seat int) int {
	for i, s := range r.Seats {
		if s == seat {
			return i + 1
		}
	}
	return 0
}

// AddFold appends a fold line for the seat.
func (r *Record) AddFold(seat int) {
	if p := r.Position(seat); p > 0 {
		r.Actions = append(r.Actions, fmt.Sprintf("p%d f", p))
	}
}

// AddCall appends a check-or-call line for the seat.
func (r *Record) AddCall(seat int) {
	if p := r.Position(seat); p > 0 {
		r.Actions = append(r.Actions, fmt.Sprintf("p%d cc", p))
	}
}

// AddRaise appends a bet-or-raise line for the seat, to the given street
// total.
func (r *Record) AddRaise(seat, total int) {
	if p := r.Position(seat); p > 0 {
		r.Actions = append(r.Actions, fmt.Sprintf("p%d cbr %d", p, total))
	}
}

// Encode renders the record as TOML.
func Encode(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("history: nil record")
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = "\t"
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("history: encoding hand %s: %w", rec.HandID, err)
	}
	return buf.Bytes(), nil
}

// Writer persists records under a directory, one file per hand.
type Writer struct {
	dir string
}

// NewWriter creates the directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Write stores the record as <hand id>.toml. The file appears atomically: it
// is written to a temp file in the same directory and renamed into place, so
// a reader never sees a half-written hand.
func (w *Writer) Write(rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	final := filepath.Join(w.dir, rec.HandID+".toml")
	tmp, err := os.CreateTemp(w.dir, rec.HandID+".tmp.*")
	if err != nil {
		return fmt.Errorf("history: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if tmp != nil {
			tmp.Close()
		}
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("history: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("history: syncing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: closing %s: %w", tmpPath, err)
	}
	tmp = nil

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("history: chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("history: renaming into %s: %w", final, err)
	}
	committed = true
	return nil
}
