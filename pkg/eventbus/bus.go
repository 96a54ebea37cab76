// Package eventbus is a concurrent fanout bus with "all processed"
// synchronization. Every subscriber sees every event published after it
// subscribed, in publish order.
package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler consumes events on the subscriber's own goroutine.
type Handler[E any] func(E)

// Option configures the Bus.
type Option func(*config)

type config struct {
	publishBuffer int
	subBuffer     int
}

// WithPublishBuffer sets the internal publish queue capacity.
func WithPublishBuffer(n int) Option {
	return func(c *config) { c.publishBuffer = max(n, 1) }
}

// WithSubscriberBuffer sets the channel capacity of each subscriber.
func WithSubscriberBuffer(n int) Option {
	return func(c *config) { c.subBuffer = max(n, 0) }
}

type subscriber[E any] struct {
	fn Handler[E]
	ch chan E
}

type delivery[E any] struct {
	ev      E
	targets []*subscriber[E]
}

type Bus[E any] struct {
	cfg config

	subsMu sync.RWMutex
	subs   []*subscriber[E]

	pubMu   sync.RWMutex // guards pubCh against Publish after Stop
	pubCh   chan delivery[E]
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	fanoutWG sync.WaitGroup
	subsWG   sync.WaitGroup
	// one count per (event, subscriber) delivery
	procWG sync.WaitGroup
}

func New[E any](opts ...Option) *Bus[E] {
	cfg := config{publishBuffer: 1024, subBuffer: 64}
	for _, o := range opts {
		o(&cfg)
	}
	b := &Bus[E]{cfg: cfg, pubCh: make(chan delivery[E], cfg.publishBuffer)}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// Subscribe registers fn. Subscribing to a started bus starts its worker
// right away.
func (b *Bus[E]) Subscribe(fn Handler[E]) {
	s := &subscriber[E]{fn: fn, ch: make(chan E, b.cfg.subBuffer)}
	b.subsMu.Lock()
	b.subs = append(b.subs, s)
	b.subsMu.Unlock()
	if b.started.Load() {
		b.startWorker(s)
	}
}

// Publish enqueues ev for the current subscribers. It blocks when the
// publish queue is full and does nothing before Start or after Stop.
func (b *Bus[E]) Publish(ev E) {
	if b == nil || !b.started.Load() {
		return
	}
	b.subsMu.RLock()
	targets := make([]*subscriber[E], len(b.subs))
	copy(targets, b.subs)
	b.subsMu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b.pubMu.RLock()
	defer b.pubMu.RUnlock()
	if b.stopped {
		return
	}
	// Counted before enqueueing so WaitForProcessing sees it.
	b.procWG.Add(len(targets))
	b.pubCh <- delivery[E]{ev: ev, targets: targets}
}

// Start launches the fanout loop and subscriber workers. Idempotent.
func (b *Bus[E]) Start() {
	b.startOnce.Do(func() {
		b.started.Store(true)
		b.subsMu.RLock()
		for _, s := range b.subs {
			b.startWorker(s)
		}
		b.subsMu.RUnlock()

		b.fanoutWG.Add(1)
		go func() {
			defer b.fanoutWG.Done()
			for d := range b.pubCh {
				for _, s := range d.targets {
					select {
					case s.ch <- d.ev:
					case <-b.ctx.Done():
						b.procWG.Done()
					}
				}
			}
		}()
	})
}

// Stop drains the queue, waits for every handler and shuts the workers
// down. Idempotent; the bus cannot be restarted.
func (b *Bus[E]) Stop() {
	b.stopOnce.Do(func() {
		b.pubMu.Lock()
		b.stopped = true
		close(b.pubCh)
		b.pubMu.Unlock()

		if b.started.Load() {
			b.fanoutWG.Wait()
			b.procWG.Wait()
		}
		b.cancel()
		b.subsWG.Wait()
		b.started.Store(false)
	})
}

// WaitForProcessing blocks until every event published so far has been
// handled by all of its targets.
func (b *Bus[E]) WaitForProcessing() { b.procWG.Wait() }

func (b *Bus[E]) startWorker(s *subscriber[E]) {
	b.subsWG.Add(1)
	go func() {
		defer b.subsWG.Done()
		for {
			select {
			case ev := <-s.ch:
				b.handle(s, ev)
			case <-b.ctx.Done():
				return
			}
		}
	}()
}

func (b *Bus[E]) handle(s *subscriber[E], ev E) {
	defer b.procWG.Done()
	// A panicking handler must not wedge Stop.
	defer func() { _ = recover() }()
	s.fn(ev)
}
