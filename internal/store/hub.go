package store

import (
	"context"
	"sync"
	"time"
)

// hub fans committed writes out to in-process subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *hub) publish(c Change) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs[c.Path]))
	for s := range h.subs[c.Path] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.offer(c)
	}
}

func (h *hub) attach(path string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[path] == nil {
		h.subs[path] = make(map[*subscriber]struct{})
	}
	h.subs[path][s] = struct{}{}
}

func (h *hub) detach(path string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[path], s)
	if len(h.subs[path]) == 0 {
		delete(h.subs, path)
	}
}

// subscriber holds at most one undelivered change. A newer change replaces
// an undelivered older one; an older or equal revision is dropped. This
// keeps delivery monotone without blocking writers on slow readers.
type subscriber struct {
	mu      sync.Mutex
	pending *Change
	last    int64

	signal chan struct{}
	out    chan Change
	done   chan struct{}
}

func newSubscriber() *subscriber {
	return &subscriber{
		last:   -1,
		signal: make(chan struct{}, 1),
		out:    make(chan Change),
		done:   make(chan struct{}),
	}
}

func (s *subscriber) offer(c Change) {
	s.mu.Lock()
	if c.Revision <= s.last || (s.pending != nil && c.Revision <= s.pending.Revision) {
		s.mu.Unlock()
		return
	}
	s.pending = &c
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) take() (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Change{}, false
	}
	c := *s.pending
	s.pending = nil
	s.last = c.Revision
	return c, true
}

func (s *subscriber) pump(ctx context.Context) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.signal:
		}

		c, ok := s.take()
		if !ok {
			continue
		}
		select {
		case s.out <- c:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// Subscription is a live stream of changes for one path.
type Subscription struct {
	path   string
	sub    *subscriber
	detach func()
	once   sync.Once
}

// Changes returns the delivery channel. It is closed when the subscription
// ends.
func (s *Subscription) Changes() <-chan Change {
	return s.sub.out
}

// Path returns the subscribed document path.
func (s *Subscription) Path() string {
	return s.path
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.detach()
		close(s.sub.done)
	})
}

// readFunc reads the current value of one path.
type readFunc func(ctx context.Context) (Change, error)

// subscribe wires a subscriber to the hub, seeds it with the current value
// and, when interval > 0, polls read for writes made outside this process.
func subscribe(ctx context.Context, h *hub, path string, read readFunc, interval time.Duration, onPollError func(error)) (*Subscription, error) {
	s := newSubscriber()
	h.attach(path, s)

	initial, err := read(ctx)
	if err != nil {
		h.detach(path, s)
		return nil, err
	}
	s.offer(initial)

	sub := &Subscription{
		path:   path,
		sub:    s,
		detach: func() { h.detach(path, s) },
	}
	go s.pump(ctx)
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-s.done:
		}
	}()

	if interval > 0 {
		go poll(ctx, s, read, interval, onPollError)
	}
	return sub, nil
}

func poll(ctx context.Context, s *subscriber, read readFunc, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
		}
		c, err := read(ctx)
		if err != nil {
			if onError != nil && ctx.Err() == nil {
				onError(err)
			}
			continue
		}
		s.offer(c)
	}
}
