package search

import (
	"sync/atomic"
	"time"
)

// State of a quick-search input.
type State int

const (
	Idle State = iota
	PendingTimer
	CancelledState
)

func (s State) String() string {
	switch s {
	case PendingTimer:
		return "pending"
	case CancelledState:
		return "cancelled"
	default:
		return "idle"
	}
}

// DefaultDelay is the quiet period before a search pass starts.
const DefaultDelay = 500 * time.Millisecond

// DefaultIgnoreKeys are navigation and modifier keys that never change the
// query.
var DefaultIgnoreKeys = []string{
	"", "tab", "shift+tab", "enter", "left", "right",
	"shift", "ctrl", "alt", "meta",
}

// ControllerConfig tunes a Controller. Zero values fall back to defaults.
type ControllerConfig struct {
	Delay       time.Duration
	CancelKey   string
	IgnoreKeys  []string
	InitialText string
}

// Action is what the caller must do after a key was handled.
type Action struct {
	// Schedule asks for Expire(Generation) to be called after Delay.
	Schedule   bool
	Generation uint64
	Delay      time.Duration
	// Cancel is set when the cancel key was pressed.
	Cancel bool
}

// Controller is the debounce/cancel state machine behind one filter input.
// It is not safe for concurrent use except for Cancelled, which may be
// polled from a running pass.
type Controller struct {
	delay     time.Duration
	cancelKey string
	ignore    map[string]bool
	initial   string

	state      State
	generation uint64
	value      string
	focused    bool
	cancelled  atomic.Bool
	// cancels counts cancel key presses for CancelWatch.
	cancels atomic.Uint64
}

// NewController applies defaults to cfg and returns an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.CancelKey == "" {
		cfg.CancelKey = "esc"
	}
	if cfg.IgnoreKeys == nil {
		cfg.IgnoreKeys = DefaultIgnoreKeys
	}
	if cfg.InitialText == "" {
		cfg.InitialText = "Filter..."
	}
	ignore := make(map[string]bool, len(cfg.IgnoreKeys))
	for _, k := range cfg.IgnoreKeys {
		ignore[k] = true
	}
	return &Controller{
		delay:     cfg.Delay,
		cancelKey: cfg.CancelKey,
		ignore:    ignore,
		initial:   cfg.InitialText,
		value:     cfg.InitialText,
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Value is the input text last seen by HandleKey.
func (c *Controller) Value() string { return c.value }

// InitialText is shown in the input until it is first focused.
func (c *Controller) InitialText() string { return c.initial }

// CancelKey is the key that aborts a pending or running pass.
func (c *Controller) CancelKey() string { return c.cancelKey }

// Delay is the debounce interval.
func (c *Controller) Delay() time.Duration { return c.delay }

// Generation identifies the most recently armed timer.
func (c *Controller) Generation() uint64 { return c.generation }

// Cancelled reports whether the cancel key was pressed since the last
// content key. Passes poll it while iterating.
func (c *Controller) Cancelled() bool { return c.cancelled.Load() }

// CancelWatch returns a predicate for one pass that reports only cancel key
// presses made after the call. A pass started without a keystroke, such as a
// re-run on a reloaded tree, is not aborted by an earlier cancel.
func (c *Controller) CancelWatch() func() bool {
	start := c.cancels.Load()
	return func() bool { return c.cancels.Load() != start }
}

// Focus returns true the first time the input is acquired so the caller can
// clear the placeholder text. Later calls return false.
func (c *Controller) Focus() bool {
	if c.focused {
		return false
	}
	c.focused = true
	c.value = ""
	return true
}

// HandleKey feeds one released key. value is the input text after the key
// was applied.
func (c *Controller) HandleKey(key, value string) Action {
	switch {
	case key == c.cancelKey:
		c.generation++
		c.cancelled.Store(true)
		c.cancels.Add(1)
		c.state = CancelledState
		return Action{Cancel: true}
	case c.ignore[key]:
		return Action{}
	}
	c.cancelled.Store(false)
	c.value = value
	c.generation++
	c.state = PendingTimer
	return Action{Schedule: true, Generation: c.generation, Delay: c.delay}
}

// Expire is called when the timer armed as generation fires. It returns the
// query to run, or false when the timer was superseded or cancelled.
func (c *Controller) Expire(generation uint64) (string, bool) {
	if generation != c.generation || c.state != PendingTimer {
		return "", false
	}
	c.state = Idle
	return c.value, true
}
