package syncer

import "context"

// Dispatcher runs Tasks as independent goroutines and delivers their Settles
// back to the owner goroutine through Settled. Nothing orders one Task
// against another: results are applied in the order they arrive.
//
// Go, Apply, Pending and Drain must only be called by the owner.
type Dispatcher struct {
	ctx     context.Context
	settled chan Settle
	pending int
}

// NewDispatcher returns a Dispatcher whose Tasks run under ctx.
func NewDispatcher(ctx context.Context) *Dispatcher {
	return &Dispatcher{ctx: ctx, settled: make(chan Settle)}
}

// Go starts t in its own goroutine. A nil Task is ignored.
func (d *Dispatcher) Go(t Task) {
	if t == nil {
		return
	}
	d.pending++
	go func() {
		s := t(d.ctx)
		select {
		case d.settled <- s:
		case <-d.ctx.Done():
		}
	}()
}

// Settled yields finished Tasks in completion order.
func (d *Dispatcher) Settled() <-chan Settle { return d.settled }

// Apply runs s on the owner and dispatches its follow-up, if any.
func (d *Dispatcher) Apply(s Settle) {
	d.pending--
	d.Go(s())
}

// Pending is the number of Tasks started but not yet applied.
func (d *Dispatcher) Pending() int { return d.pending }

// Drain applies results until nothing is pending or ctx ends.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for d.pending > 0 {
		select {
		case s := <-d.settled:
			d.Apply(s)
		case <-ctx.Done():
			return ctx.Err()
		case <-d.ctx.Done():
			return d.ctx.Err()
		}
	}
	return nil
}
