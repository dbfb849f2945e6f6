package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/anarjbu15-star/poker-site/internal/deck"
	"github.com/anarjbu15-star/poker-site/internal/game"
	"github.com/anarjbu15-star/poker-site/internal/history"
	"github.com/anarjbu15-star/poker-site/internal/protocol"
	"github.com/anarjbu15-star/poker-site/internal/randutil"
)

// Room events. Connections, timers and the hand scheduler all enqueue onto
// one channel; the room goroutine is the only thing that ever mutates the
// table, so ticks and player actions cannot race.
type (
	joinEvent struct {
		conn *Connection
		name string
	}
	actionEvent struct {
		conn *Connection
		msg  protocol.Action
	}
	goneEvent struct {
		conn *Connection
	}
	tickEvent struct {
		seq int
	}
	startHandEvent struct{}
)

// Room runs one table: it owns the *game.Table, the per-actor turn timer and
// the seat-to-connection mapping.
type Room struct {
	table  *game.Table
	cfg    TableSettings
	clock  quartz.Clock
	logger *log.Logger

	events chan any
	seats  []*Connection // index = seat, nil when the occupant has no channel
	byConn map[*Connection]int

	// Turn timer. seq invalidates ticks from a superseded countdown.
	timerSeq  int
	remaining int
	turnTimer *quartz.Timer

	startPending bool

	// Hand history, nil when no directory is configured.
	history *history.Writer
	hand    *history.Record
}

// NewRoom creates a room around a fresh table. Pass quartz.NewReal() in
// production; tests inject a mock clock.
func NewRoom(cfg TableSettings, clock quartz.Clock, logger *log.Logger) *Room {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := &Room{
		table:  game.NewTable(cfg.Seats, cfg.MinBet, randutil.New(seed)),
		cfg:    cfg,
		clock:  clock,
		logger: logger.WithPrefix("room"),
		events: make(chan any, 256),
		seats:  make([]*Connection, cfg.Seats),
		byConn: make(map[*Connection]int),
	}
	if cfg.HistoryDir != "" {
		w, err := history.NewWriter(cfg.HistoryDir)
		if err != nil {
			r.logger.Error("Hand history disabled", "error", err)
		} else {
			r.history = w
		}
	}
	return r
}

// Table exposes the table for tests.
func (r *Room) Table() *game.Table {
	return r.table
}

// Enqueue feeds an event into the room loop.
func (r *Room) Enqueue(ev any) {
	select {
	case r.events <- ev:
	default:
		// Queue full means the loop is wedged; drop rather than block the
		// caller's read pump.
		r.logger.Warn("Event queue full, dropping event", "event", fmt.Sprintf("%T", ev))
	}
}

// Run processes events until the context is cancelled. This is the single
// goroutine that owns all table state.
func (r *Room) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			r.handle(ev)
		}
	}
}

func (r *Room) handle(ev any) {
	switch ev := ev.(type) {
	case joinEvent:
		r.handleJoin(ev.conn, ev.name)
	case actionEvent:
		r.handleAction(ev.conn, ev.msg)
	case goneEvent:
		r.handleGone(ev.conn)
	case tickEvent:
		r.handleTick(ev.seq)
	case startHandEvent:
		r.handleStartHand()
	default:
		r.logger.Warn("Unknown event", "event", fmt.Sprintf("%T", ev))
	}
}

func (r *Room) handleJoin(conn *Connection, name string) {
	seat, err := r.table.Join(name, r.cfg.StartChips)
	if err != nil {
		conn.Send(protocol.NewError("table_full", "no seats available"))
		return
	}

	// Detach any previous channel for this seat, then bind the new one. A
	// re-join with a seated name is how a dropped client resumes.
	if prev := r.seats[seat]; prev != nil && prev != conn {
		delete(r.byConn, prev)
	}
	if old, ok := r.byConn[conn]; ok && old != seat {
		r.seats[old] = nil
	}
	r.seats[seat] = conn
	r.byConn[conn] = seat

	r.logger.Info("Player seated", "name", name, "seat", seat)
	conn.Send(protocol.NewSeated(seat))

	s := r.table.Seats[seat]
	if s.InHand && len(s.HoleCards) == 2 {
		// Resuming mid-hand: re-deliver the private cards.
		conn.Send(protocol.NewHole(s.HoleCards))
	}

	r.broadcast(protocol.NewMessage(fmt.Sprintf("%s joined at seat %d", name, seat)))
	r.broadcastTable()

	if r.table.CanStart() {
		r.scheduleHandStart()
	}
}

func (r *Room) handleAction(conn *Connection, msg protocol.Action) {
	seat, ok := r.byConn[conn]
	if !ok {
		conn.Send(protocol.NewError("not_seated", "join the table first"))
		return
	}

	action, err := game.ParseAction(msg.Action)
	if err != nil {
		conn.Send(protocol.NewError("bad_action", err.Error()))
		return
	}

	// A genuine action from the current actor supersedes its countdown
	// before the table processes anything.
	if seat == r.table.Actor {
		r.stopTurnTimer()
	}

	// The street total for the history line has to be captured before the
	// table applies the action; settlement may sweep bets into the pot.
	total := r.raiseTotal(seat, action, msg.Amount)

	result, err := r.table.HandleAction(seat, action, msg.Amount)
	if err != nil {
		conn.Send(protocol.NewError(errorCode(err), err.Error()))
		// The rejection did not change state, but the actor still owes an
		// action; rearm their clock where it left off.
		if seat == r.table.Actor && r.turnTimer == nil && r.table.Stage.Betting() {
			r.resumeTurnTimer()
		}
		return
	}

	r.recordHandAction(seat, action, total)
	r.broadcast(protocol.NewMessage(actionLine(r.table.Seats[seat].Name, action, total)))
	r.afterTableChange(result)
}

// raiseTotal computes the street total an accepted bet, raise or all-in will
// leave the seat at.
func (r *Room) raiseTotal(seat int, action game.Action, amount int) int {
	s := r.table.Seats[seat]
	switch action {
	case game.AllIn:
		return s.Bet + s.Chips
	case game.Bet, game.Raise:
		if max := s.Bet + s.Chips; amount > max {
			return max
		}
		return amount
	default:
		return 0
	}
}

// afterTableChange publishes the new public state and either announces a
// finished hand or arms the next actor's timer.
func (r *Room) afterTableChange(result *game.Result) {
	r.broadcastTable()

	if result != nil {
		r.finishHandHistory(result)
		r.announceResult(result)
		if r.table.CanStart() {
			r.scheduleHandStart()
		}
		return
	}
	if r.table.Stage.Betting() {
		r.startTurnTimer()
	}
}

func (r *Room) handleGone(conn *Connection) {
	seat, ok := r.byConn[conn]
	if !ok {
		return
	}
	delete(r.byConn, conn)
	if r.seats[seat] == conn {
		r.seats[seat] = nil
	}
	// The seat keeps its stack and its place in the hand. If it is the
	// current actor the turn timer keeps running and will fold it on
	// expiry, same as a lagging client.
	r.logger.Info("Player channel dropped", "name", r.table.Seats[seat].Name, "seat", seat)
}

func (r *Room) handleTick(seq int) {
	if seq != r.timerSeq || !r.table.Stage.Betting() {
		return
	}
	r.remaining--
	actor := r.table.Actor

	if r.remaining > 0 {
		r.broadcast(protocol.NewTurn(actor, r.remaining))
		r.turnTimer = r.clock.AfterFunc(time.Second, func() {
			r.Enqueue(tickEvent{seq: seq})
		})
		return
	}

	// Countdown expired: synthesize a fold exactly as if the client sent
	// one.
	r.stopTurnTimer()
	name := r.table.Seats[actor].Name
	result, err := r.table.HandleAction(actor, game.Fold, 0)
	if err != nil {
		r.logger.Error("Timeout fold rejected", "seat", actor, "error", err)
		return
	}
	r.recordHandAction(actor, game.Fold, 0)
	r.broadcast(protocol.NewMessage(fmt.Sprintf("%s folds (time out)", name)))
	r.afterTableChange(result)
}

func (r *Room) handleStartHand() {
	r.startPending = false
	if !r.table.CanStart() {
		return
	}

	if err := r.table.StartHand(); err != nil {
		if !errors.Is(err, game.ErrCannotStart) {
			r.logger.Error("Hand start failed", "error", err)
		}
		return
	}

	r.logger.Info("Hand started", "dealer", r.table.Dealer, "pot", r.table.Pot)
	r.beginHandHistory()
	r.broadcast(protocol.NewMessage("New hand dealt"))
	for i, s := range r.table.Seats {
		if s.InHand && r.seats[i] != nil {
			r.seats[i].Send(protocol.NewHole(s.HoleCards))
		}
	}

	var result *game.Result
	if r.table.Actor == -1 {
		// Blinds put everyone all-in; the hand runs out with no action.
		var err error
		result, err = r.table.Runout()
		if err != nil {
			r.logger.Error("Runout failed", "error", err)
			return
		}
	}
	r.afterTableChange(result)
}

// scheduleHandStart arms the between-hands delay once.
func (r *Room) scheduleHandStart() {
	if r.startPending {
		return
	}
	r.startPending = true
	r.clock.AfterFunc(time.Duration(r.cfg.HandDelay)*time.Second, func() {
		r.Enqueue(startHandEvent{})
	})
}

// startTurnTimer begins a fresh countdown for the current actor and
// announces the turn.
func (r *Room) startTurnTimer() {
	r.stopTurnTimer()
	r.timerSeq++
	r.remaining = r.cfg.TurnSeconds
	r.broadcast(protocol.NewTurn(r.table.Actor, r.remaining))
	seq := r.timerSeq
	r.turnTimer = r.clock.AfterFunc(time.Second, func() {
		r.Enqueue(tickEvent{seq: seq})
	})
}

// resumeTurnTimer rearms the tick chain without resetting the countdown,
// used after a rejected action from the actor.
func (r *Room) resumeTurnTimer() {
	if r.remaining <= 0 {
		r.remaining = 1
	}
	seq := r.timerSeq
	r.turnTimer = r.clock.AfterFunc(time.Second, func() {
		r.Enqueue(tickEvent{seq: seq})
	})
}

// stopTurnTimer cancels the pending countdown, if any.
func (r *Room) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	r.timerSeq++
}

// broadcast fans a frame out to every connected seat.
func (r *Room) broadcast(v any) {
	for _, conn := range r.seats {
		if conn != nil {
			conn.Send(v)
		}
	}
}

func (r *Room) broadcastTable() {
	r.broadcast(protocol.NewTable(r.table))
}

// beginHandHistory opens a record for the hand just dealt, capturing
// pre-blind stacks and posted blinds per dealt-in seat.
func (r *Room) beginHandHistory() {
	if r.history == nil {
		return
	}
	rec := &history.Record{
		Variant:   "NT",
		HandID:    uuid.Must(uuid.NewV7()).String(),
		Time:      r.clock.Now().UTC().Format(time.RFC3339),
		SeatCount: len(r.table.Seats),
		MinBet:    r.table.MinBet,
	}
	for _, s := range r.table.Seats {
		if !s.InHand {
			continue
		}
		rec.Seats = append(rec.Seats, s.Index)
		rec.Players = append(rec.Players, s.Name)
		rec.Blinds = append(rec.Blinds, s.Bet)
		rec.StartingStacks = append(rec.StartingStacks, s.Chips+s.Bet)
	}
	r.hand = rec
}

func (r *Room) recordHandAction(seat int, action game.Action, total int) {
	if r.hand == nil {
		return
	}
	switch action {
	case game.Fold:
		r.hand.AddFold(seat)
	case game.Check, game.Call:
		r.hand.AddCall(seat)
	case game.Bet, game.Raise, game.AllIn:
		r.hand.AddRaise(seat, total)
	}
}

// finishHandHistory closes and persists the record for a settled hand.
func (r *Room) finishHandHistory(result *game.Result) {
	if r.hand == nil {
		return
	}
	rec := r.hand
	r.hand = nil

	rec.Board = deck.Codes(result.Board)
	winnings := make(map[int]int)
	for _, pot := range result.Pots {
		for _, w := range pot.Winners {
			winnings[w.Seat] += w.Share
		}
	}
	for _, seat := range rec.Seats {
		rec.FinishingStacks = append(rec.FinishingStacks, r.table.Seats[seat].Chips)
		rec.Winnings = append(rec.Winnings, winnings[seat])
	}

	if err := r.history.Write(rec); err != nil {
		r.logger.Error("Failed to write hand history", "hand", rec.HandID, "error", err)
	}
}

// announceResult emits the result frame plus a log line per winner.
func (r *Room) announceResult(result *game.Result) {
	r.broadcast(protocol.NewResult(result))
	for _, pot := range result.Pots {
		for _, w := range pot.Winners {
			if w.Hand != "" {
				r.broadcast(protocol.NewMessage(fmt.Sprintf("%s wins %d with %s", w.Name, w.Share, w.Hand)))
			} else {
				r.broadcast(protocol.NewMessage(fmt.Sprintf("%s wins %d", w.Name, w.Share)))
			}
		}
	}
}

// actionLine renders a table log line for an accepted action.
func actionLine(name string, action game.Action, amount int) string {
	switch action {
	case game.Bet, game.Raise:
		return fmt.Sprintf("%s raises to %d", name, amount)
	case game.AllIn:
		return fmt.Sprintf("%s is all-in", name)
	default:
		return fmt.Sprintf("%s %ss", name, action)
	}
}

// errorCode maps table errors to wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, game.ErrNotSeated):
		return "not_seated"
	case errors.Is(err, game.ErrNoHand):
		return "no_hand"
	case errors.Is(err, game.ErrCannotCheck):
		return "cannot_check"
	case errors.Is(err, game.ErrRaiseTooSmall):
		return "raise_too_small"
	default:
		return "rejected"
	}
}
