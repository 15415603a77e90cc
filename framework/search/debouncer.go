package search

import (
	"context"
	"time"
)

// KeyEvent is a released key plus the input text after it.
type KeyEvent struct {
	Key   string
	Value string
}

// PassFunc runs a search pass for query. It should poll cancelled.
type PassFunc func(query string, cancelled func() bool)

// Debouncer drives a Controller from a channel of key events outside of a
// UI event loop. Timer expirations are funnelled back into the loop so the
// controller only ever sees one goroutine.
type Debouncer struct {
	ctrl  *Controller
	pass  PassFunc
	timer *time.Timer
	fired chan uint64
	done  chan struct{}
}

// NewDebouncer wires ctrl to pass.
func NewDebouncer(ctrl *Controller, pass PassFunc) *Debouncer {
	return &Debouncer{
		ctrl:  ctrl,
		pass:  pass,
		fired: make(chan uint64),
		done:  make(chan struct{}),
	}
}

// Run consumes events until ctx is done or events is closed. A timer armed
// before events closed still fires so the last query is not lost. Run may be
// called once per Debouncer.
func (d *Debouncer) Run(ctx context.Context, events <-chan KeyEvent) error {
	defer close(d.done)
	defer d.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				if d.ctrl.State() != PendingTimer {
					return nil
				}
				continue
			}
			d.handle(ev)
		case gen := <-d.fired:
			if query, ok := d.ctrl.Expire(gen); ok {
				d.pass(query, d.ctrl.Cancelled)
			}
			if events == nil && d.ctrl.State() != PendingTimer {
				return nil
			}
		}
	}
}

func (d *Debouncer) handle(ev KeyEvent) {
	action := d.ctrl.HandleKey(ev.Key, ev.Value)
	switch {
	case action.Cancel:
		d.stop()
	case action.Schedule:
		d.stop()
		gen := action.Generation
		d.timer = time.AfterFunc(action.Delay, func() {
			select {
			case d.fired <- gen:
			case <-d.done:
			}
		})
	}
}

func (d *Debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
