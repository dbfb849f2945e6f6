package server

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anarjbu15-star/poker-site/internal/game"
	"github.com/anarjbu15-star/poker-site/internal/protocol"
)

func actionMsg(action string, amount int) protocol.Action {
	return protocol.Action{Kind: protocol.KindAction, Action: action, Amount: amount}
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// newTestConn builds a connection with no websocket behind it; frames pile up
// in the send buffer where tests can inspect them.
func newTestConn() *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		id:     uuid.NewString(),
		send:   make(chan []byte, 256),
		logger: testLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// drainEvents runs the room loop body until the queue is empty.
func drainEvents(r *Room) {
	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
		default:
			return
		}
	}
}

// recvFrames empties a connection's send buffer.
func recvFrames(t *testing.T, c *Connection) []string {
	t.Helper()
	var frames []string
	for {
		select {
		case data := <-c.send:
			frames = append(frames, string(data))
		default:
			return frames
		}
	}
}

func kindsOf(t *testing.T, frames []string) []string {
	t.Helper()
	kinds := make([]string, len(frames))
	for i, f := range frames {
		var env struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal([]byte(f), &env))
		kinds[i] = env.Kind
	}
	return kinds
}

func testRoomSettings() TableSettings {
	return TableSettings{
		Seats:       6,
		MinBet:      20,
		StartChips:  1000,
		TurnSeconds: 5,
		HandDelay:   2,
		Seed:        7,
	}
}

// startHeadsUpHand joins two connections and advances the mock clock through
// the between-hands delay so the first hand is dealt.
func startHeadsUpHand(t *testing.T, mock *quartz.Mock) (*Room, *Connection, *Connection) {
	t.Helper()
	room := NewRoom(testRoomSettings(), mock, testLogger())

	c1, c2 := newTestConn(), newTestConn()
	room.handle(joinEvent{conn: c1, name: "alice"})
	room.handle(joinEvent{conn: c2, name: "bob"})
	require.True(t, room.startPending)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(2 * time.Second).MustWait(ctx)
	drainEvents(room)

	require.True(t, room.table.Stage.Betting())
	return room, c1, c2
}

func advanceSecond(t *testing.T, mock *quartz.Mock, room *Room) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(1 * time.Second).MustWait(ctx)
	drainEvents(room)
}

func TestRoomJoinDealsFirstHand(t *testing.T) {
	mock := quartz.NewMock(t)
	room := NewRoom(testRoomSettings(), mock, testLogger())

	c1 := newTestConn()
	room.handle(joinEvent{conn: c1, name: "alice"})
	kinds := kindsOf(t, recvFrames(t, c1))
	assert.Contains(t, kinds, "seated")
	assert.Contains(t, kinds, "table")
	assert.False(t, room.startPending, "one player is not enough to deal")

	c2 := newTestConn()
	room.handle(joinEvent{conn: c2, name: "bob"})
	require.True(t, room.startPending)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(2 * time.Second).MustWait(ctx)
	drainEvents(room)

	assert.Equal(t, game.Preflop, room.table.Stage)
	for _, c := range []*Connection{c1, c2} {
		kinds := kindsOf(t, recvFrames(t, c))
		assert.Contains(t, kinds, "hole")
		assert.Contains(t, kinds, "turn")
		assert.Contains(t, kinds, "table")
	}
	assert.Equal(t, room.cfg.TurnSeconds, room.remaining)
}

func TestRoomCountdownTicksAndFoldsOnExpiry(t *testing.T) {
	mock := quartz.NewMock(t)
	room, c1, c2 := startHeadsUpHand(t, mock)
	recvFrames(t, c1)
	recvFrames(t, c2)

	// Heads-up the small blind acts first; that is seat 1.
	require.Equal(t, 1, room.table.Actor)

	advanceSecond(t, mock, room)
	require.Equal(t, 4, room.remaining)
	frames := strings.Join(recvFrames(t, c1), "\n")
	assert.Contains(t, frames, `"seconds":4`)

	for i := 0; i < 3; i++ {
		advanceSecond(t, mock, room)
	}
	require.Equal(t, 1, room.remaining)
	recvFrames(t, c1)
	recvFrames(t, c2)

	// The last tick folds the actor and settles the hand uncontested.
	advanceSecond(t, mock, room)
	assert.Equal(t, game.Idle, room.table.Stage)
	assert.Equal(t, 1010, room.table.Seats[0].Chips)
	assert.Equal(t, 990, room.table.Seats[1].Chips)

	frames = strings.Join(recvFrames(t, c1), "\n")
	assert.Contains(t, frames, "(time out)")
	assert.Contains(t, frames, `"kind":"result"`)
	assert.True(t, room.startPending, "the next hand gets scheduled")
}

func TestRoomActionSupersedesCountdown(t *testing.T) {
	mock := quartz.NewMock(t)
	room, c1, c2 := startHeadsUpHand(t, mock)
	advanceSecond(t, mock, room)
	require.Equal(t, 4, room.remaining)
	recvFrames(t, c1)
	recvFrames(t, c2)

	// Seat 1 completes the small blind; the big blind gets a fresh clock.
	room.handle(actionEvent{conn: c2, msg: actionMsg("call", 0)})
	assert.Equal(t, 0, room.table.Actor)
	assert.Equal(t, room.cfg.TurnSeconds, room.remaining)

	frames := strings.Join(recvFrames(t, c1), "\n")
	assert.Contains(t, frames, "bob calls")
	assert.Contains(t, frames, `"kind":"table"`)
}

func TestRoomRejectedActionKeepsTurn(t *testing.T) {
	mock := quartz.NewMock(t)
	room, c1, c2 := startHeadsUpHand(t, mock)
	recvFrames(t, c1)
	recvFrames(t, c2)

	// Out of turn: only the sender hears about it.
	room.handle(actionEvent{conn: c1, msg: actionMsg("call", 0)})
	frames := strings.Join(recvFrames(t, c1), "\n")
	assert.Contains(t, frames, "not_your_turn")
	assert.Empty(t, recvFrames(t, c2))

	// Illegal check from the actor: rejected, still their turn, clock still
	// armed.
	room.handle(actionEvent{conn: c2, msg: actionMsg("check", 0)})
	frames = strings.Join(recvFrames(t, c2), "\n")
	assert.Contains(t, frames, "cannot_check")
	assert.Equal(t, 1, room.table.Actor)
	assert.NotNil(t, room.turnTimer)

	// Unknown action verb.
	room.handle(actionEvent{conn: c2, msg: actionMsg("shove", 0)})
	frames = strings.Join(recvFrames(t, c2), "\n")
	assert.Contains(t, frames, "bad_action")
}

func TestRoomActionFromUnseatedConnection(t *testing.T) {
	mock := quartz.NewMock(t)
	room := NewRoom(testRoomSettings(), mock, testLogger())

	c := newTestConn()
	room.handle(actionEvent{conn: c, msg: actionMsg("fold", 0)})
	frames := strings.Join(recvFrames(t, c), "\n")
	assert.Contains(t, frames, "not_seated")
}

func TestRoomDisconnectKeepsSeatForResume(t *testing.T) {
	mock := quartz.NewMock(t)
	room, c1, c2 := startHeadsUpHand(t, mock)
	recvFrames(t, c1)
	recvFrames(t, c2)

	room.handle(goneEvent{conn: c1})
	assert.Nil(t, room.seats[0])
	assert.Equal(t, "alice", room.table.Seats[0].Name, "the seat outlives its channel")
	assert.True(t, room.table.Seats[0].InHand)

	// A new connection under the same name resumes the seat and gets the
	// hole cards again.
	c3 := newTestConn()
	room.handle(joinEvent{conn: c3, name: "alice"})
	assert.Equal(t, 0, room.byConn[c3])
	assert.Same(t, c3, room.seats[0])

	kinds := kindsOf(t, recvFrames(t, c3))
	assert.Contains(t, kinds, "seated")
	assert.Contains(t, kinds, "hole")
}

func TestRoomWritesHandHistory(t *testing.T) {
	mock := quartz.NewMock(t)
	cfg := testRoomSettings()
	cfg.HistoryDir = filepath.Join(t.TempDir(), "hands")
	room := NewRoom(cfg, mock, testLogger())

	c1, c2 := newTestConn(), newTestConn()
	room.handle(joinEvent{conn: c1, name: "alice"})
	room.handle(joinEvent{conn: c2, name: "bob"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(2 * time.Second).MustWait(ctx)
	drainEvents(room)
	require.True(t, room.table.Stage.Betting())
	require.NotNil(t, room.hand)

	// Small blind folds, hand settles, record hits disk.
	room.handle(actionEvent{conn: c2, msg: actionMsg("fold", 0)})
	require.Equal(t, game.Idle, room.table.Stage)
	require.Nil(t, room.hand)

	entries, err := os.ReadDir(cfg.HistoryDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(cfg.HistoryDir, entries[0].Name()))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `variant = "NT"`)
	assert.Contains(t, text, "alice")
	assert.Contains(t, text, "p2 f")
}

func TestRoomBlindsAllInHandRunsOut(t *testing.T) {
	mock := quartz.NewMock(t)
	cfg := testRoomSettings()
	cfg.MinBet = 40
	cfg.StartChips = 20
	cfg.HistoryDir = filepath.Join(t.TempDir(), "hands")
	room := NewRoom(cfg, mock, testLogger())

	c1, c2 := newTestConn(), newTestConn()
	room.handle(joinEvent{conn: c1, name: "alice"})
	room.handle(joinEvent{conn: c2, name: "bob"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mock.Advance(2 * time.Second).MustWait(ctx)
	drainEvents(room)

	// Posting the blinds consumed both stacks: there is no betting round,
	// but each player still sees their hole cards before the board runs
	// out and the result lands.
	for _, c := range []*Connection{c1, c2} {
		kinds := kindsOf(t, recvFrames(t, c))
		assert.Contains(t, kinds, "hole")
		assert.Contains(t, kinds, "result")
	}
	assert.Equal(t, game.Idle, room.table.Stage)
	assert.Equal(t, 40, room.table.TotalChips())
	assert.Nil(t, room.hand)

	entries, err := os.ReadDir(cfg.HistoryDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(cfg.HistoryDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice")
}

func TestRoomAnnouncesCappedRaiseTotal(t *testing.T) {
	mock := quartz.NewMock(t)
	room, c1, c2 := startHeadsUpHand(t, mock)
	recvFrames(t, c1)
	recvFrames(t, c2)

	// The actor asks for far more than their stack; the table caps the
	// raise and the announced street total reports what actually went in.
	require.Equal(t, 1, room.table.Actor)
	room.handle(actionEvent{conn: c2, msg: actionMsg("raise", 99999)})

	frames := strings.Join(recvFrames(t, c1), "\n")
	assert.Contains(t, frames, "bob raises to 1000")
	assert.NotContains(t, frames, "99999")
}

func TestRoomTableFull(t *testing.T) {
	mock := quartz.NewMock(t)
	cfg := testRoomSettings()
	cfg.Seats = 2
	room := NewRoom(cfg, mock, testLogger())

	room.handle(joinEvent{conn: newTestConn(), name: "alice"})
	room.handle(joinEvent{conn: newTestConn(), name: "bob"})

	c := newTestConn()
	room.handle(joinEvent{conn: c, name: "carol"})
	frames := strings.Join(recvFrames(t, c), "\n")
	assert.Contains(t, frames, "table_full")
}
