// Package clock implements the per-match countdown clock with increment.
package clock

import (
	"sync"
	"time"

	"github.com/park285/bonk-chess-server/internal/bonk"
)

// State is the clock lifecycle.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Reading is a point-in-time view of both clocks.
type Reading struct {
	WhiteSeconds int        `json:"whiteSeconds"`
	BlackSeconds int        `json:"blackSeconds"`
	Active       bonk.Color `json:"active"`
}

// Options configures a Clock. Interval defaults to one second.
type Options struct {
	InitialSeconds   int
	IncrementSeconds int
	Interval         time.Duration

	// OnTick and OnTimeout run on the clock's own goroutine with no clock lock held,
	// so they may call back into the Clock.
	OnTick    func(Reading)
	OnTimeout func(loser bonk.Color)
}

// Clock counts down the active side once per interval.
type Clock struct {
	mu       sync.Mutex
	white    int
	black    int
	inc      int
	active   bonk.Color
	last     bonk.Color
	state    State
	interval time.Duration

	onTick    func(Reading)
	onTimeout func(bonk.Color)

	stopCh chan struct{}
}

func New(opts Options) *Clock {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{
		white:     opts.InitialSeconds,
		black:     opts.InitialSeconds,
		inc:       opts.IncrementSeconds,
		interval:  interval,
		onTick:    opts.OnTick,
		onTimeout: opts.OnTimeout,
	}
}

// Start moves an idle clock to running with side to move. Running or stopped
// clocks are left alone.
func (c *Clock) Start(side bonk.Color) Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle || !side.Valid() {
		return c.readingLocked()
	}
	c.state = Running
	c.active = side
	c.runLocked()
	return c.readingLocked()
}

// Switch credits the increment to the side that just moved and hands the clock
// to the other side. With no active side it starts the side opposite the last one
// that ran, or white if none has. A stopped clock is not restarted.
func (c *Clock) Switch() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return c.readingLocked()
	}
	switch c.active {
	case bonk.White:
		c.white += c.inc
	case bonk.Black:
		c.black += c.inc
	}
	next := c.active.Opponent()
	if next == bonk.NoColor {
		next = c.last.Opponent()
		if next == bonk.NoColor {
			next = bonk.White
		}
	}
	c.last = c.active
	c.active = next
	c.state = Running
	if c.stopCh == nil {
		c.runLocked()
	}
	return c.readingLocked()
}

// Stop halts the clock for good. It is safe to call more than once and from
// inside OnTick or OnTimeout.
func (c *Clock) Stop() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return c.readingLocked()
}

func (c *Clock) Reading() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readingLocked()
}

func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Clock) readingLocked() Reading {
	return Reading{WhiteSeconds: c.white, BlackSeconds: c.black, Active: c.active}
}

func (c *Clock) stopLocked() {
	if c.state == Stopped {
		return
	}
	c.state = Stopped
	if c.active != bonk.NoColor {
		c.last = c.active
	}
	c.active = bonk.NoColor
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

func (c *Clock) runLocked() {
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	go c.loop(stopCh)
}

func (c *Clock) loop(stopCh <-chan struct{}) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-t.C:
			c.tick()
		}
	}
}

// tick charges one interval to the active side and fires the callbacks.
func (c *Clock) tick() {
	c.mu.Lock()
	if c.state != Running || c.active == bonk.NoColor {
		c.mu.Unlock()
		return
	}
	loser := bonk.NoColor
	remaining := &c.white
	if c.active == bonk.Black {
		remaining = &c.black
	}
	*remaining--
	if *remaining <= 0 {
		*remaining = 0
		loser = c.active
	}
	r := c.readingLocked()
	if loser != bonk.NoColor {
		c.stopLocked()
	}
	onTick, onTimeout := c.onTick, c.onTimeout
	c.mu.Unlock()

	if onTick != nil {
		onTick(r)
	}
	if loser != bonk.NoColor && onTimeout != nil {
		onTimeout(loser)
	}
}
