package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// shrinkDelay is how long a Pool waits after becoming fully idle before it
// destroys workers back down to min (§4.3).
const shrinkDelay = 30 * time.Second

// Pool is an elastic min/max set of Workers, all built around the same kind
// of handle by factory, e.g. one Pool per (style id, scale) for renderers or
// one global Pool for the file source (§4.3, §4.4).
type Pool[H any] struct {
	min, max int
	factory  func(ctx context.Context) (H, error)
	teardown func(H)

	mu          sync.Mutex
	total       int
	idle        chan *Worker[H]
	disposed    bool
	shrinkTimer *time.Timer
	shrinkAfter time.Duration
}

// shrinkDelayOverrideForTest lets tests shrink the idle timer below the
// production 30s delay so shrink behavior can be observed quickly.
func (p *Pool[H]) shrinkDelayOverrideForTest(d time.Duration) {
	p.mu.Lock()
	p.shrinkAfter = d
	p.mu.Unlock()
}

// NewPool constructs a Pool and eagerly builds min workers in parallel
// (§4.3: "At startup the pool eagerly constructs min workers in parallel").
func NewPool[H any](ctx context.Context, min, max int, factory func(ctx context.Context) (H, error), teardown func(H)) (*Pool[H], error) {
	if max < min {
		max = min
	}
	p := &Pool[H]{
		min:      min,
		max:      max,
		factory:  factory,
		teardown: teardown,
		idle:        make(chan *Worker[H], max),
		shrinkAfter: shrinkDelay,
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i := 0; i < min; i++ {
		g.Go(func() error {
			h, err := factory(gctx)
			if err != nil {
				return err
			}
			w := New(h, teardown)
			mu.Lock()
			p.total++
			mu.Unlock()
			p.idle <- w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.Dispose()
		return nil, err
	}
	return p, nil
}

// Acquire returns an idle worker, building a new one if the pool has spare
// capacity, or blocking until one is released (§4.3).
func (p *Pool[H]) Acquire(ctx context.Context) (*Worker[H], error) {
	p.mu.Lock()
	p.cancelShrinkLocked()

	select {
	case w := <-p.idle:
		p.mu.Unlock()
		return w, nil
	default:
	}

	if p.total < p.max {
		p.total++
		p.mu.Unlock()

		h, err := p.factory(ctx)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, err
		}
		return New(h, p.teardown), nil
	}
	p.mu.Unlock()

	select {
	case w := <-p.idle:
		return w, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns w to the idle set, or destroys it immediately if the pool
// has been disposed. If every worker is idle afterward, a shrink timer is
// armed per §4.3.
func (p *Pool[H]) Release(w *Worker[H]) {
	p.mu.Lock()
	if p.disposed {
		p.total--
		p.mu.Unlock()
		w.Close()
		return
	}
	p.mu.Unlock()

	select {
	case p.idle <- w:
	default:
		// idle channel is sized to max, so this only triggers on a
		// bookkeeping bug; destroy defensively rather than leak a worker.
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		w.Close()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.disposed && len(p.idle) == p.total && p.total > p.min {
		p.cancelShrinkLocked()
		p.shrinkTimer = time.AfterFunc(p.shrinkAfter, p.shrink)
	}
}

func (p *Pool[H]) cancelShrinkLocked() {
	if p.shrinkTimer != nil {
		p.shrinkTimer.Stop()
		p.shrinkTimer = nil
	}
}

// shrink destroys idle workers until total == min or no idle worker is left.
// It only takes workers from the idle set under the lock, so a worker that a
// concurrent Acquire took first is not reclaimed and the count never drops
// below min.
func (p *Pool[H]) shrink() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.total > p.min {
		select {
		case w := <-p.idle:
			p.total--
			w.Close()
		default:
			return
		}
	}
}

// Dispose drains and destroys every idle worker and marks the pool so that
// all future Releases destroy their worker immediately instead of recycling
// it (§4.3).
func (p *Pool[H]) Dispose() {
	p.mu.Lock()
	p.disposed = true
	p.cancelShrinkLocked()
	p.mu.Unlock()

	for {
		select {
		case w := <-p.idle:
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			w.Close()
		default:
			return
		}
	}
}

// Stats reports the current (total, idle) worker counts, mainly for tests
// and the invariant checks in §8.
func (p *Pool[H]) Stats() (total, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total, len(p.idle)
}
