// Package protocol defines the JSON frames exchanged with clients. Every
// frame carries a "kind" discriminator; payload fields are validated before
// the event reaches the table.
package protocol

import (
	"github.com/anarjbu15-star/poker-site/internal/deck"
	"github.com/anarjbu15-star/poker-site/internal/game"
)

// Frame kinds
const (
	// Client -> Server
	KindJoin   = "join"
	KindAction = "action"

	// Server -> Client
	KindSeated  = "seated"
	KindHole    = "hole"
	KindTable   = "table"
	KindTurn    = "turn"
	KindMessage = "message"
	KindResult  = "result"
	KindError   = "error"
)

// Client -> Server

// Join requests a seat (or resumes one) under the given name.
type Join struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Action submits a betting decision. Amount is the raise-to total and only
// meaningful for bet/raise.
type Action struct {
	Kind   string `json:"kind"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// Server -> Client

// Seated confirms a join, privately.
type Seated struct {
	Kind string `json:"kind"`
	Seat int    `json:"seat"`
}

// Hole carries a seat's two hole cards, privately, once per hand.
type Hole struct {
	Kind  string   `json:"kind"`
	Cards []string `json:"cards"`
}

// SeatState is one seat inside a Table snapshot. Hole cards never appear
// here; they travel only in private Hole frames.
type SeatState struct {
	Name   string `json:"name,omitempty"`
	Chips  int    `json:"chips"`
	InHand bool   `json:"inHand"`
	Folded bool   `json:"folded"`
	AllIn  bool   `json:"allIn"`
	Bet    int    `json:"bet"`
}

// Table is the public snapshot broadcast after every state change.
type Table struct {
	Kind   string      `json:"kind"`
	Seats  []SeatState `json:"seats"`
	Board  []string    `json:"board"`
	Pot    int         `json:"pot"`
	Stage  string      `json:"stage"`
	Dealer int         `json:"dealer"`
	Actor  int         `json:"actor"`
	MinBet int         `json:"minBet"`
	ToCall int         `json:"toCall"`
}

// Turn announces whose turn it is and how long they have left. Broadcast on
// every actor change and on every countdown tick.
type Turn struct {
	Kind    string `json:"kind"`
	Seat    int    `json:"seat"`
	Seconds int    `json:"seconds"`
}

// Message is a human-readable table log line.
type Message struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// WinnerShare is one seat's cut of one pot.
type WinnerShare struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Share int    `json:"share"`
	Hand  string `json:"hand,omitempty"`
}

// PotShare is one settled pot layer.
type PotShare struct {
	Amount  int           `json:"amount"`
	Winners []WinnerShare `json:"winners"`
}

// Result announces hand settlement, per pot.
type Result struct {
	Kind        string     `json:"kind"`
	Uncontested bool       `json:"uncontested,omitempty"`
	Pots        []PotShare `json:"pots"`
}

// Error reports a rejected request back to its sender.
type Error struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Constructors keep the kind tag and payload in one place.

func NewSeated(seat int) Seated {
	return Seated{Kind: KindSeated, Seat: seat}
}

func NewHole(cards []deck.Card) Hole {
	return Hole{Kind: KindHole, Cards: deck.Codes(cards)}
}

func NewTurn(seat, seconds int) Turn {
	return Turn{Kind: KindTurn, Seat: seat, Seconds: seconds}
}

func NewMessage(text string) Message {
	return Message{Kind: KindMessage, Text: text}
}

func NewError(code, message string) Error {
	return Error{Kind: KindError, Code: code, Message: message}
}

// NewTable snapshots the public view of a table.
func NewTable(t *game.Table) Table {
	seats := make([]SeatState, len(t.Seats))
	for i, s := range t.Seats {
		seats[i] = SeatState{
			Name:   s.Name,
			Chips:  s.Chips,
			InHand: s.InHand,
			Folded: s.Folded,
			AllIn:  s.AllIn,
			Bet:    s.Bet,
		}
	}
	return Table{
		Kind:   KindTable,
		Seats:  seats,
		Board:  deck.Codes(t.Board),
		Pot:    t.Pot,
		Stage:  t.Stage.String(),
		Dealer: t.Dealer,
		Actor:  t.Actor,
		MinBet: t.MinBet,
		ToCall: t.HighBet,
	}
}

// NewResult converts a settled hand into its wire form.
func NewResult(r *game.Result) Result {
	out := Result{Kind: KindResult, Uncontested: r.Uncontested}
	for _, pot := range r.Pots {
		share := PotShare{Amount: pot.Amount}
		for _, w := range pot.Winners {
			share.Winners = append(share.Winners, WinnerShare{
				Seat:  w.Seat,
				Name:  w.Name,
				Share: w.Share,
				Hand:  w.Hand,
			})
		}
		out.Pots = append(out.Pots, share)
	}
	return out
}
