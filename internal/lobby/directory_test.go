package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/bonk-chess-server/internal/bonk"
	"github.com/park285/bonk-chess-server/internal/match"
)

type sink struct {
	mu     sync.Mutex
	events map[string][]string
	data   map[string][]any
}

func newSink() *sink { return &sink{events: map[string][]string{}, data: map[string][]any{}} }

func (s *sink) Emit(conn, event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[conn] = append(s.events[conn], event)
	s.data[conn] = append(s.data[conn], payload)
}

func (s *sink) names(conn string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events[conn]...)
}

func (s *sink) first(conn, event string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events[conn] {
		if e == event {
			return s.data[conn][i]
		}
	}
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestDirectory(t *testing.T, opts Options) (*Directory, *sink, *fakeClock) {
	t.Helper()
	s := newSink()
	fc := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	seq := 0
	opts.Emitter = s
	opts.Now = fc.Now
	opts.TickInterval = time.Hour
	if opts.NewID == nil {
		opts.NewID = func() string {
			seq++
			return fmt.Sprintf("m%d", seq)
		}
	}
	d := NewDirectory(opts)
	t.Cleanup(d.Shutdown)
	return d, s, fc
}

func TestCreateJoinStartsMatch(t *testing.T) {
	d, s, _ := newTestDirectory(t, Options{})

	var created string
	m, color, err := d.Create("c1", "alice", bonk.Black, nil, func(id string, c bonk.Color) { created = id })
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if color != bonk.Black || created != m.ID() {
		t.Fatalf("Create = %v id=%q (acked %q)", color, m.ID(), created)
	}

	want := []Listing{{MatchID: m.ID(), OpenSide: bonk.White, Host: "alice", TimeControl: match.DefaultTimeControl, CreatedAt: m.CreatedAt()}}
	if diff := cmp.Diff(want, d.ListJoinable()); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}

	_, color, err = d.Join(m.ID(), "c2", "bob", bonk.NoColor, false, nil)
	if err != nil || color != bonk.White {
		t.Fatalf("Join = %v, %v", color, err)
	}
	if m.Status() != match.StatusActive {
		t.Fatalf("status = %v", m.Status())
	}
	if got := d.ListJoinable(); len(got) != 0 {
		t.Fatalf("full match still listed: %+v", got)
	}
	if _, _, err := d.Join(m.ID(), "c3", "carol", bonk.NoColor, false, nil); !errors.Is(err, match.ErrFull) {
		t.Fatalf("third join: err = %v", err)
	}
	if len(s.names("c1")) == 0 {
		t.Fatalf("creator received no events")
	}
}

func TestJoinUnknownMatch(t *testing.T) {
	d, _, _ := newTestDirectory(t, Options{})
	if _, _, err := d.Join("nope", "c1", "alice", bonk.NoColor, false, nil); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("err = %v, want ErrMatchNotFound", err)
	}
	m, color, err := d.Join("legacy-id", "c1", "alice", bonk.Black, true, nil)
	if err != nil {
		t.Fatalf("createIfAbsent: %v", err)
	}
	if m.ID() != "legacy-id" || color != bonk.Black {
		t.Fatalf("created %q as %v", m.ID(), color)
	}
	if _, ok := d.Get("legacy-id"); !ok {
		t.Fatalf("created match not registered")
	}
}

func TestInvalidArgs(t *testing.T) {
	d, _, _ := newTestDirectory(t, Options{})
	if _, _, err := d.Create("", "alice", bonk.White, nil, nil); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("Create: err = %v", err)
	}
	if _, _, err := d.Join(" ", "c1", "alice", bonk.White, false, nil); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("Join: err = %v", err)
	}
	bad := match.TimeControl{InitialSeconds: -1}
	if _, _, err := d.Create("c1", "alice", bonk.White, &bad, nil); err == nil {
		t.Fatalf("Create accepted a negative time control")
	}
	if n, _ := d.Counts(); n != 0 {
		t.Fatalf("failed create left %d matches", n)
	}
}

func TestMaxMatches(t *testing.T) {
	d, _, _ := newTestDirectory(t, Options{MaxMatches: 1})
	if _, _, err := d.Create("c1", "alice", bonk.White, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := d.Create("c2", "bob", bonk.White, nil, nil); !errors.Is(err, ErrTooManyMatches) {
		t.Fatalf("err = %v, want ErrTooManyMatches", err)
	}
}

func TestMovesRouteThroughDirectory(t *testing.T) {
	d, _, _ := newTestDirectory(t, Options{})
	m, _, _ := d.Create("c1", "alice", bonk.White, nil, nil)
	if _, _, err := d.Join(m.ID(), "c2", "bob", bonk.NoColor, false, nil); err != nil {
		t.Fatalf("Join: %v", err)
	}
	mv, _ := bonk.ParseUCI("e2e4")
	if err := d.MakeMove("missing", "c1", mv); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("missing match: err = %v", err)
	}
	if err := d.MakeMove(m.ID(), "c2", mv); !errors.Is(err, match.ErrNotYourTurn) {
		t.Fatalf("wrong seat: err = %v", err)
	}
	if err := d.MakeMove(m.ID(), "c1", mv); err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
}

func TestResignRemovesMatch(t *testing.T) {
	d, s, _ := newTestDirectory(t, Options{})
	m, _, _ := d.Create("c1", "alice", bonk.White, nil, nil)
	d.Join(m.ID(), "c2", "bob", bonk.NoColor, false, nil)
	if err := d.Resign(m.ID(), "c2"); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if _, ok := d.Get(m.ID()); ok {
		t.Fatalf("resigned match still registered")
	}
	p, ok := s.first("c1", match.EventGameOver).(match.GameOverPayload)
	if !ok || p.Winner != bonk.White || p.Reason != match.ReasonResignation {
		t.Fatalf("gameOver = %+v", p)
	}
	if err := d.Resign(m.ID(), "c2"); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("second resign: err = %v", err)
	}
}

func TestDisconnectEndsMatchAndNotifiesOpponent(t *testing.T) {
	d, s, _ := newTestDirectory(t, Options{})
	m, _, _ := d.Create("c1", "alice", bonk.White, nil, nil)
	d.Join(m.ID(), "c2", "bob", bonk.NoColor, false, nil)
	other, _, _ := d.Create("c3", "carol", bonk.White, nil, nil)

	ended := d.Disconnect("c1")
	if diff := cmp.Diff([]string{m.ID()}, ended); diff != "" {
		t.Fatalf("ended mismatch (-want +got):\n%s", diff)
	}
	if _, ok := d.Get(m.ID()); ok {
		t.Fatalf("match survived disconnect")
	}
	if _, ok := d.Get(other.ID()); !ok {
		t.Fatalf("unrelated match removed")
	}
	if s.first("c2", match.EventOpponentLeft) == nil {
		t.Fatalf("opponent not told: %v", s.names("c2"))
	}
	if m.Clock().Active != bonk.NoColor {
		t.Fatalf("clock still running after disconnect")
	}
}

func TestFindGamePairsFIFO(t *testing.T) {
	d, s, _ := newTestDirectory(t, Options{})

	res, err := d.FindGame("c1", "alice")
	if err != nil || !res.Waiting {
		t.Fatalf("first FindGame = %+v, %v", res, err)
	}
	if wp, ok := s.first("c1", EventWaiting).(WaitingPayload); !ok || wp.Position != 1 || wp.Message != "Waiting for an opponent..." {
		t.Fatalf("waiting payload = %+v", wp)
	}
	if _, err := d.FindGame("c1", "alice"); !errors.Is(err, ErrAlreadyWaiting) {
		t.Fatalf("double queue: err = %v", err)
	}
	if _, w := d.Counts(); w != 1 {
		t.Fatalf("waiting = %d", w)
	}

	res, err = d.FindGame("c2", "bob")
	if err != nil || res.Waiting || res.Match == nil {
		t.Fatalf("second FindGame = %+v, %v", res, err)
	}
	if res.Match.Status() != match.StatusActive {
		t.Fatalf("paired match not active")
	}
	if got := res.Match.ColorOf("c2"); got != bonk.White {
		t.Fatalf("newcomer plays %v, want white", got)
	}
	if got := res.Match.ColorOf("c1"); got != bonk.Black {
		t.Fatalf("waiting player plays %v, want black", got)
	}

	gs, ok := s.first("c1", EventGameStart).(GameStartPayload)
	if !ok || gs.Color != bonk.Black || gs.Opponent != "bob" || gs.MatchID != res.Match.ID() {
		t.Fatalf("c1 gameStart = %+v", gs)
	}
	names := s.names("c1")
	if names[0] != EventWaiting || names[1] != EventGameStart || names[2] != match.EventState {
		t.Fatalf("c1 events = %v", names)
	}
	if _, w := d.Counts(); w != 0 {
		t.Fatalf("queue not drained: %d", w)
	}
}

func TestDisconnectLeavesQueue(t *testing.T) {
	d, _, _ := newTestDirectory(t, Options{})
	d.FindGame("c1", "alice")
	d.Disconnect("c1")
	res, err := d.FindGame("c2", "bob")
	if err != nil || !res.Waiting {
		t.Fatalf("FindGame after queue drop = %+v, %v", res, err)
	}
	if !d.CancelFind("c2") || d.CancelFind("c2") {
		t.Fatalf("CancelFind did not remove exactly once")
	}
}

func TestSweepHonorsRetention(t *testing.T) {
	d, _, fc := newTestDirectory(t, Options{Retention: 30 * time.Second})
	m, _, _ := d.Create("c1", "alice", bonk.White, nil, nil)
	d.Join(m.ID(), "c2", "bob", bonk.NoColor, false, nil)
	live, _, _ := d.Create("c3", "carol", bonk.White, nil, nil)

	// End the first match without removing it, as a king capture or timeout would.
	m.Close()
	if n := d.Sweep(fc.Now()); n != 0 {
		t.Fatalf("swept %d before retention", n)
	}
	fc.Advance(31 * time.Second)
	if n := d.Sweep(fc.Now()); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, ok := d.Get(m.ID()); ok {
		t.Fatalf("finished match not swept")
	}
	if _, ok := d.Get(live.ID()); !ok {
		t.Fatalf("live match swept")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	d, _, _ := newTestDirectory(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
