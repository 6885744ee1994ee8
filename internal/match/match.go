// Package match is the per-game state machine: seats, turn ownership, the
// rules engine, the clock and event emission for one bonk chess game.
package match

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/clock"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"go.uber.org/zap"
)

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrNotSeated     = errors.New("connection is not seated in this match")
	ErrNotStarted    = errors.New("match has not started")
	ErrMatchOver     = errors.New("match is already over")
	ErrFull          = errors.New("match already has two players")
	ErrAlreadySeated = errors.New("connection is already seated in this match")
)

// Game-over reasons.
const (
	ReasonKingTaken    = "king taken"
	ReasonKingBonked   = "king bonked"
	ReasonResignation  = "resignation"
	ReasonTimeout      = "timeout"
	ReasonDisconnected = "opponent disconnected"
	ReasonAbandoned    = "abandoned"
)

// Event names emitted to seated connections.
const (
	EventState        = "state"
	EventMove         = "move"
	EventClockTick    = "clockTick"
	EventGameOver     = "gameOver"
	EventOpponentLeft = "opponentLeft"
)

// Emitter delivers a named event to one connection. Implementations must not
// block and must not call back into the match.
type Emitter interface {
	Emit(connID, event string, payload any)
}

// Status is the match lifecycle.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusOver    Status = "over"
)

// Seat is a filled player slot.
type Seat struct {
	ConnID   string
	Username string
}

// Entry is one accepted move in the history.
type Entry struct {
	From    bonk.Square    `json:"from"`
	To      bonk.Square    `json:"to"`
	UCI     string         `json:"uci"`
	Color   bonk.Color     `json:"color"`
	Removed []bonk.Removal `json:"removed,omitempty"`
}

type MovePayload struct {
	MatchID string `json:"matchId"`
	Entry
}

type ClockPayload struct {
	MatchID string `json:"matchId"`
	clock.Reading
}

type GameOverPayload struct {
	MatchID    string     `json:"matchId"`
	Winner     bonk.Color `json:"winner"`
	WinnerName string     `json:"winnerName"`
	Reason     string     `json:"reason"`
	Message    string     `json:"message"`
}

type OpponentLeftPayload struct {
	MatchID  string `json:"matchId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Texter renders player-facing text by catalog key. *msgcat.Catalog satisfies it.
type Texter interface {
	Text(key string, data any, fallback string) string
}

// Options configures a new Match. Zero values fall back to defaults.
type Options struct {
	ID           string
	TimeControl  TimeControl
	Emitter      Emitter
	Messages     Texter
	TickInterval time.Duration
	Now          func() time.Time
}

// Match owns one game. Every exported method runs to completion under the
// match lock, so concurrent intents are applied in arrival order.
type Match struct {
	id        string
	createdAt time.Time
	tc        TimeControl
	emit      Emitter
	text      Texter
	now       func() time.Time
	clock     *clock.Clock

	mu       sync.Mutex
	white    *Seat
	black    *Seat
	pos      bonk.Position
	history  []Entry
	status   Status
	winner   bonk.Color
	reason   string
	endedAt  time.Time
	lastMove *bonk.Move
}

func New(opts Options) *Match {
	tc := opts.TimeControl
	if tc.Validate() != nil {
		tc = DefaultTimeControl
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	emit := opts.Emitter
	if emit == nil {
		emit = discard{}
	}
	text := opts.Messages
	if text == nil {
		text = fallbackText{}
	}
	m := &Match{
		id:        opts.ID,
		createdAt: now(),
		tc:        tc,
		emit:      emit,
		text:      text,
		now:       now,
		pos:       bonk.NewPosition(),
		status:    StatusWaiting,
	}
	m.clock = clock.New(clock.Options{
		InitialSeconds:   tc.InitialSeconds,
		IncrementSeconds: tc.IncrementSeconds,
		Interval:         opts.TickInterval,
		OnTick:           m.handleTick,
		OnTimeout:        m.handleTimeout,
	})
	return m
}

func (m *Match) ID() string { return m.id }

func (m *Match) CreatedAt() time.Time { return m.createdAt }

func (m *Match) TimeControl() TimeControl { return m.tc }

// Seat places connID in a free seat: pref when it is free, otherwise white, then
// black. onSeated, when non-nil, runs under the match lock once the seat is taken
// and before anything is emitted, so a caller's reply reaches the joiner ahead
// of the first broadcast. Filling the second seat starts the game.
func (m *Match) Seat(connID, username string, pref bonk.Color, onSeated func(bonk.Color)) (bonk.Color, error) {
	if connID == "" {
		return bonk.NoColor, fmt.Errorf("seat: empty connection id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusOver {
		return bonk.NoColor, ErrMatchOver
	}
	if m.colorOfLocked(connID) != bonk.NoColor {
		return bonk.NoColor, ErrAlreadySeated
	}
	color := bonk.NoColor
	switch {
	case pref == bonk.White && m.white == nil:
		color = bonk.White
	case pref == bonk.Black && m.black == nil:
		color = bonk.Black
	case m.white == nil:
		color = bonk.White
	case m.black == nil:
		color = bonk.Black
	default:
		return bonk.NoColor, ErrFull
	}
	seat := &Seat{ConnID: connID, Username: username}
	if color == bonk.White {
		m.white = seat
	} else {
		m.black = seat
	}
	if onSeated != nil {
		onSeated(color)
	}

	started := false
	if m.white != nil && m.black != nil && m.status == StatusWaiting {
		m.status = StatusActive
		started = true
	}
	m.broadcastLocked(EventState, m.snapshotLocked())
	if started {
		r := m.clock.Start(bonk.White)
		m.broadcastLocked(EventClockTick, ClockPayload{MatchID: m.id, Reading: r})
		obslog.L().Info("match_started",
			zap.String("match_id", m.id),
			zap.String("white", m.white.Username),
			zap.String("black", m.black.Username),
			zap.String("time_control", m.tc.String()))
	}
	return color, nil
}

// MakeMove applies a move on behalf of connID.
func (m *Match) MakeMove(connID string, mv bonk.Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusOver {
		return ErrMatchOver
	}
	color := m.colorOfLocked(connID)
	if color == bonk.NoColor {
		return ErrNotSeated
	}
	if m.status != StatusActive {
		return ErrNotStarted
	}
	if m.flaggedLocked() {
		return ErrMatchOver
	}
	if color != m.pos.Turn {
		return ErrNotYourTurn
	}
	res, err := bonk.Apply(m.pos, mv)
	if err != nil {
		return err
	}

	m.pos = res.Position
	entry := Entry{From: mv.From, To: mv.To, UCI: mv.UCI(), Color: color, Removed: res.Removed}
	m.history = append(m.history, entry)
	last := mv
	m.lastMove = &last
	m.broadcastLocked(EventMove, MovePayload{MatchID: m.id, Entry: entry})

	if res.Outcome != bonk.OutcomeNone {
		m.finishLocked(color, res.Outcome.Reason())
		return nil
	}
	r := m.clock.Switch()
	m.broadcastLocked(EventState, m.snapshotLocked())
	m.broadcastLocked(EventClockTick, ClockPayload{MatchID: m.id, Reading: r})
	return nil
}

// Resign concedes for connID. Resigning before an opponent arrives abandons the
// match with no winner.
func (m *Match) Resign(connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusOver {
		return ErrMatchOver
	}
	color := m.colorOfLocked(connID)
	if color == bonk.NoColor {
		return ErrNotSeated
	}
	if m.status == StatusWaiting {
		m.finishLocked(bonk.NoColor, ReasonAbandoned)
		return nil
	}
	if m.flaggedLocked() {
		return ErrMatchOver
	}
	m.finishLocked(color.Opponent(), ReasonResignation)
	return nil
}

// Leave vacates connID's seat because its connection dropped. A match in play
// ends in favour of the remaining player, who is told their opponent left.
// It reports whether connID held a seat.
func (m *Match) Leave(connID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := m.colorOfLocked(connID)
	if color == bonk.NoColor {
		return false
	}
	m.flaggedLocked()
	leaving := m.seatLocked(color)
	if color == bonk.White {
		m.white = nil
	} else {
		m.black = nil
	}
	other := m.seatLocked(color.Opponent())
	if other != nil {
		m.emit.Emit(other.ConnID, EventOpponentLeft, OpponentLeftPayload{
			MatchID:  m.id,
			Username: leaving.Username,
			Message: m.text.Text("game.opponent_left", map[string]any{"Username": leaving.Username},
				leaving.Username+" left the match."),
		})
	}
	if m.status == StatusOver {
		return true
	}
	if other != nil {
		m.finishLocked(color.Opponent(), ReasonDisconnected)
	} else {
		m.finishLocked(bonk.NoColor, ReasonAbandoned)
	}
	return true
}

// Close ends the match without a winner if it is still running. Used on shutdown.
func (m *Match) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusOver {
		m.finishLocked(bonk.NoColor, ReasonAbandoned)
	}
}

// finishLocked is the only way into StatusOver.
func (m *Match) finishLocked(winner bonk.Color, reason string) {
	if m.status == StatusOver {
		return
	}
	m.status = StatusOver
	m.winner = winner
	m.reason = reason
	m.endedAt = m.now()
	m.clock.Stop()

	winnerName := ""
	if s := m.seatLocked(winner); s != nil {
		winnerName = s.Username
	}
	m.broadcastLocked(EventGameOver, GameOverPayload{
		MatchID:    m.id,
		Winner:     winner,
		WinnerName: winnerName,
		Reason:     reason,
		Message: m.text.Text("game.over", map[string]any{"WinnerName": winnerName, "Reason": reason},
			"Game over ("+reason+")."),
	})
	m.broadcastLocked(EventState, m.snapshotLocked())
	obslog.L().Info("match_over",
		zap.String("match_id", m.id),
		zap.String("winner", string(winner)),
		zap.String("reason", reason),
		zap.Int("moves", len(m.history)))
}

// handleTick sends the clock as it stands now. r was read before the match lock
// was taken and is stale if a move landed in between; it is only used for the
// final zero reading of a flagged side.
func (m *Match) handleTick(r clock.Reading) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusActive {
		return
	}
	if m.clock.State() == clock.Running {
		r = m.clock.Reading()
	}
	m.broadcastLocked(EventClockTick, ClockPayload{MatchID: m.id, Reading: r})
}

// flaggedLocked settles a timeout the clock has already called but whose
// callback has not reached the match yet. While the match is active the clock
// only stops by running out, and always on the side to move.
func (m *Match) flaggedLocked() bool {
	if m.status != StatusActive || m.clock.State() != clock.Stopped {
		return false
	}
	m.finishLocked(m.pos.Turn.Opponent(), ReasonTimeout)
	return true
}

func (m *Match) handleTimeout(loser bonk.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusActive {
		return
	}
	m.finishLocked(loser.Opponent(), ReasonTimeout)
}

func (m *Match) broadcastLocked(event string, payload any) {
	for _, s := range []*Seat{m.white, m.black} {
		if s != nil {
			m.emit.Emit(s.ConnID, event, payload)
		}
	}
}

func (m *Match) seatLocked(c bonk.Color) *Seat {
	switch c {
	case bonk.White:
		return m.white
	case bonk.Black:
		return m.black
	}
	return nil
}

func (m *Match) colorOfLocked(connID string) bonk.Color {
	switch {
	case m.white != nil && m.white.ConnID == connID:
		return bonk.White
	case m.black != nil && m.black.ConnID == connID:
		return bonk.Black
	}
	return bonk.NoColor
}

// ColorOf returns the seat color held by connID, or NoColor.
func (m *Match) ColorOf(connID string) bonk.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.colorOfLocked(connID)
}

// Players returns the seats, nil where empty.
func (m *Match) Players() (white, black *Seat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.white != nil {
		w := *m.white
		white = &w
	}
	if m.black != nil {
		b := *m.black
		black = &b
	}
	return white, black
}

// OpenSide reports the first free seat of a match that can still be joined.
func (m *Match) OpenSide() (bonk.Color, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusOver {
		return bonk.NoColor, false
	}
	switch {
	case m.white == nil:
		return bonk.White, true
	case m.black == nil:
		return bonk.Black, true
	}
	return bonk.NoColor, false
}

func (m *Match) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// EndedAt is the zero time until the match is over.
func (m *Match) EndedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endedAt
}

// Result returns the winner and reason; both are empty until the match is over.
func (m *Match) Result() (bonk.Color, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner, m.reason
}

func (m *Match) Clock() clock.Reading { return m.clock.Reading() }

type discard struct{}

func (discard) Emit(string, string, any) {}

type fallbackText struct{}

func (fallbackText) Text(_ string, _ any, fallback string) string { return fallback }
