// Package lobby is the match directory: it creates, finds, lists and tears down
// matches and runs the quick-match queue.
package lobby

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/match"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"go.uber.org/zap"
)

// Options configures a Directory. Zero values fall back to defaults.
type Options struct {
	Emitter            match.Emitter
	Messages           match.Texter
	DefaultTimeControl match.TimeControl
	MaxMatches         int
	Retention          time.Duration
	TickInterval       time.Duration
	NewID              func() string
	Now                func() time.Time
}

// Directory owns every live match. Lock order is directory, then match; a match
// never calls back into the directory.
type Directory struct {
	opts Options

	mu      sync.RWMutex
	matches map[string]*match.Match
	waiting []waiter
}

func NewDirectory(opts Options) *Directory {
	if opts.DefaultTimeControl.Validate() != nil {
		opts.DefaultTimeControl = match.DefaultTimeControl
	}
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = 500
	}
	if opts.Retention < 0 {
		opts.Retention = 0
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Directory{opts: opts, matches: make(map[string]*match.Match)}
}

func (d *Directory) newMatchLocked(id string, tc *match.TimeControl) (*match.Match, error) {
	if len(d.matches) >= d.opts.MaxMatches {
		return nil, ErrTooManyMatches
	}
	if id == "" {
		id = d.opts.NewID()
	}
	control := d.opts.DefaultTimeControl
	if tc != nil {
		if err := tc.Validate(); err != nil {
			return nil, err
		}
		control = *tc
	}
	m := match.New(match.Options{
		ID:           id,
		TimeControl:  control,
		Emitter:      d.opts.Emitter,
		Messages:     d.opts.Messages,
		TickInterval: d.opts.TickInterval,
		Now:          d.opts.Now,
	})
	d.matches[id] = m
	return m, nil
}

// Create opens a new match with connID in the requested seat (white when side is
// not a color). tc overrides the default time control when non-nil.
func (d *Directory) Create(connID, username string, side bonk.Color, tc *match.TimeControl, onSeated SeatedFunc) (*match.Match, bonk.Color, error) {
	if strings.TrimSpace(connID) == "" || strings.TrimSpace(username) == "" {
		return nil, bonk.NoColor, ErrInvalidArgs
	}
	if !side.Valid() {
		side = bonk.White
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createLocked("", connID, username, side, tc, onSeated)
}

func (d *Directory) createLocked(id, connID, username string, side bonk.Color, tc *match.TimeControl, onSeated SeatedFunc) (*match.Match, bonk.Color, error) {
	m, err := d.newMatchLocked(id, tc)
	if err != nil {
		return nil, bonk.NoColor, err
	}
	color, err := m.Seat(connID, username, side, seatedHook(m, onSeated))
	if err != nil {
		delete(d.matches, m.ID())
		m.Close()
		return nil, bonk.NoColor, err
	}
	obslog.L().Info("lobby_create",
		zap.String("match_id", m.ID()),
		zap.String("username", username),
		zap.String("color", string(color)),
		zap.String("time_control", m.TimeControl().String()))
	return m, color, nil
}

// Join seats connID in an existing match, honoring side when that seat is free.
// An unknown id is ErrMatchNotFound unless createIfAbsent is set, in which case a
// match is opened under that id.
func (d *Directory) Join(matchID, connID, username string, side bonk.Color, createIfAbsent bool, onSeated SeatedFunc) (*match.Match, bonk.Color, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" || strings.TrimSpace(connID) == "" || strings.TrimSpace(username) == "" {
		return nil, bonk.NoColor, ErrInvalidArgs
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.matches[matchID]
	if !ok {
		if !createIfAbsent {
			return nil, bonk.NoColor, ErrMatchNotFound
		}
		obslog.L().Warn("lobby_join_created_missing", zap.String("match_id", matchID))
		if !side.Valid() {
			side = bonk.White
		}
		return d.createLocked(matchID, connID, username, side, nil, onSeated)
	}
	color, err := m.Seat(connID, username, side, seatedHook(m, onSeated))
	if err != nil {
		return nil, bonk.NoColor, err
	}
	obslog.L().Info("lobby_join",
		zap.String("match_id", matchID),
		zap.String("username", username),
		zap.String("color", string(color)))
	return m, color, nil
}

func seatedHook(m *match.Match, fn SeatedFunc) func(bonk.Color) {
	if fn == nil {
		return nil
	}
	return func(c bonk.Color) { fn(m.ID(), c) }
}

func (d *Directory) Get(matchID string) (*match.Match, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.matches[matchID]
	return m, ok
}

// ListJoinable returns matches with a free seat that are not over, oldest first.
func (d *Directory) ListJoinable() []Listing {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Listing, 0, len(d.matches))
	for id, m := range d.matches {
		side, ok := m.OpenSide()
		if !ok {
			continue
		}
		host := ""
		white, black := m.Players()
		if white != nil {
			host = white.Username
		} else if black != nil {
			host = black.Username
		}
		out = append(out, Listing{
			MatchID:     id,
			OpenSide:    side,
			Host:        host,
			TimeControl: m.TimeControl(),
			CreatedAt:   m.CreatedAt(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// End removes a match. It sends nothing itself; a match that is still running is
// closed so its clock cannot outlive it.
func (d *Directory) End(matchID string) bool {
	d.mu.Lock()
	m, ok := d.matches[matchID]
	delete(d.matches, matchID)
	d.mu.Unlock()
	if ok {
		m.Close()
	}
	return ok
}

func (d *Directory) MakeMove(matchID, connID string, mv bonk.Move) error {
	m, ok := d.Get(matchID)
	if !ok {
		return ErrMatchNotFound
	}
	return m.MakeMove(connID, mv)
}

// Resign concedes the match for connID and removes it from the directory.
func (d *Directory) Resign(matchID, connID string) error {
	m, ok := d.Get(matchID)
	if !ok {
		return ErrMatchNotFound
	}
	if err := m.Resign(connID); err != nil {
		return err
	}
	d.End(matchID)
	obslog.L().Info("lobby_resign", zap.String("match_id", matchID), zap.String("conn_id", connID))
	return nil
}

// Disconnect drops connID from the quick-match queue and from every match it is
// seated in. Those matches end and are removed. It returns their ids.
func (d *Directory) Disconnect(connID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeWaiterLocked(connID)
	var ended []string
	for id, m := range d.matches {
		if m.Leave(connID) {
			delete(d.matches, id)
			ended = append(ended, id)
		}
	}
	if len(ended) > 0 {
		obslog.L().Info("lobby_disconnect", zap.String("conn_id", connID), zap.Strings("match_ids", ended))
	}
	return ended
}

// FindGame pairs connID with the longest-waiting player, or queues it. The
// newcomer plays white. Both players receive gameStart before the first state.
func (d *Directory) FindGame(connID, username string) (QuickResult, error) {
	if strings.TrimSpace(connID) == "" || strings.TrimSpace(username) == "" {
		return QuickResult{}, ErrInvalidArgs
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, w := range d.waiting {
		if w.connID == connID {
			return QuickResult{}, ErrAlreadyWaiting
		}
	}
	if len(d.waiting) == 0 {
		d.waiting = append(d.waiting, waiter{connID: connID, username: username, since: d.opts.Now()})
		d.emit(connID, EventWaiting, WaitingPayload{Position: len(d.waiting), Message: d.text("game.waiting", nil, "Waiting for an opponent...")})
		obslog.L().Info("lobby_waiting", zap.String("conn_id", connID), zap.Int("queue", len(d.waiting)))
		return QuickResult{Waiting: true}, nil
	}

	opp := d.waiting[0]
	m, err := d.newMatchLocked("", nil)
	if err != nil {
		return QuickResult{}, err
	}
	d.waiting = d.waiting[1:]
	announce := func(matchID string, _ bonk.Color) {
		d.emit(connID, EventGameStart, GameStartPayload{MatchID: matchID, Color: bonk.White, Opponent: opp.username})
		d.emit(opp.connID, EventGameStart, GameStartPayload{MatchID: matchID, Color: bonk.Black, Opponent: username})
	}
	if _, err := m.Seat(connID, username, bonk.White, seatedHook(m, announce)); err != nil {
		delete(d.matches, m.ID())
		m.Close()
		return QuickResult{}, err
	}
	if _, err := m.Seat(opp.connID, opp.username, bonk.Black, nil); err != nil {
		delete(d.matches, m.ID())
		m.Close()
		return QuickResult{}, err
	}
	obslog.L().Info("lobby_paired",
		zap.String("match_id", m.ID()),
		zap.String("white", username),
		zap.String("black", opp.username),
		zap.Duration("waited", d.opts.Now().Sub(opp.since)))
	return QuickResult{Match: m, Color: bonk.White}, nil
}

// CancelFind removes connID from the quick-match queue.
func (d *Directory) CancelFind(connID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeWaiterLocked(connID)
}

func (d *Directory) removeWaiterLocked(connID string) bool {
	for i, w := range d.waiting {
		if w.connID == connID {
			d.waiting = append(d.waiting[:i], d.waiting[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Directory) emit(connID, event string, payload any) {
	if d.opts.Emitter != nil {
		d.opts.Emitter.Emit(connID, event, payload)
	}
}

func (d *Directory) text(key string, data any, fallback string) string {
	if d.opts.Messages == nil {
		return fallback
	}
	return d.opts.Messages.Text(key, data, fallback)
}

// Counts returns the number of live matches and queued players.
func (d *Directory) Counts() (matches, waiting int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.matches), len(d.waiting)
}

// Sweep removes matches that have been over for longer than the retention period.
func (d *Directory) Sweep(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id, m := range d.matches {
		if m.Status() != match.StatusOver {
			continue
		}
		if now.Sub(m.EndedAt()) >= d.opts.Retention {
			delete(d.matches, id)
			n++
		}
	}
	if n > 0 {
		obslog.L().Debug("lobby_sweep", zap.Int("removed", n), zap.Int("remaining", len(d.matches)))
	}
	return n
}

// Run sweeps on every interval until ctx is done.
func (d *Directory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.Sweep(d.opts.Now())
		}
	}
}

// Shutdown closes every match and empties the directory.
func (d *Directory) Shutdown() {
	d.mu.Lock()
	all := d.matches
	d.matches = make(map[string]*match.Match)
	d.waiting = nil
	d.mu.Unlock()
	for _, m := range all {
		m.Close()
	}
}
