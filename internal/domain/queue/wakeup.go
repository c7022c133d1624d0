package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/unevent/unevent-api/internal/domain/model"
)

// ErrWaiterRequired is returned when NewWakeups is given no waiter.
var ErrWaiterRequired = errors.New("wakeup waiter is required")

// Waiter blocks until a job of the given type is announced or ctx ends.
type Waiter interface {
	WaitForNotification(ctx context.Context, jobType model.JobType) error
}

// Wakeups fans job announcements out to idle workers. One listener runs
// per job type while it has at least one subscriber. A wake-up is also sent
// when a wait window elapses so workers re-poll periodically.
type Wakeups struct {
	waiter  Waiter
	window  time.Duration
	backoff time.Duration

	mu     sync.Mutex
	topics map[model.JobType]*topic
}

type topic struct {
	cancel context.CancelFunc
	subs   map[chan struct{}]struct{}
}

// WakeupOptions configures Wakeups.
type WakeupOptions struct {
	Waiter  Waiter
	Window  time.Duration // default 1m
	Backoff time.Duration // pause after a failed wait, default 250ms
}

// NewWakeups constructs a Wakeups.
func NewWakeups(opts WakeupOptions) (*Wakeups, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}
	w := &Wakeups{
		waiter:  opts.Waiter,
		window:  opts.Window,
		backoff: opts.Backoff,
		topics:  make(map[model.JobType]*topic),
	}
	if w.window <= 0 {
		w.window = time.Minute
	}
	if w.backoff <= 0 {
		w.backoff = 250 * time.Millisecond
	}
	return w, nil
}

// Subscribe returns a channel receiving a signal per announcement and a
// function that removes the subscription. The channel is closed on unsubscribe.
func (w *Wakeups) Subscribe(jobType model.JobType) (<-chan struct{}, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.topics[jobType]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		t = &topic{cancel: cancel, subs: make(map[chan struct{}]struct{})}
		w.topics[jobType] = t
		go w.listen(ctx, jobType)
	}
	ch := make(chan struct{}, 1)
	t.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() { w.unsubscribe(jobType, ch) })
	}
}

func (w *Wakeups) unsubscribe(jobType model.JobType, ch chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.topics[jobType]
	if !ok {
		return
	}
	if _, ok := t.subs[ch]; !ok {
		return
	}
	delete(t.subs, ch)
	close(ch)
	if len(t.subs) == 0 {
		t.cancel()
		delete(w.topics, jobType)
	}
}

// Close stops every listener and closes all subscriber channels.
func (w *Wakeups) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for jobType, t := range w.topics {
		t.cancel()
		for ch := range t.subs {
			close(ch)
		}
		delete(w.topics, jobType)
	}
}

func (w *Wakeups) listen(ctx context.Context, jobType model.JobType) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, w.window)
		err := w.waiter.WaitForNotification(waitCtx, jobType)
		cancel()
		if ctx.Err() != nil {
			return
		}
		w.signal(jobType)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.backoff):
			}
		}
	}
}

func (w *Wakeups) signal(jobType model.JobType) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.topics[jobType]
	if !ok {
		return
	}
	for ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
