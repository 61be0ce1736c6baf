package upstream

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Watcher probes connectivity on a fixed interval and keeps the last-known
// status. It only informs status display; no operation is gated on it.
type Watcher struct {
	client   Client
	interval time.Duration

	mu     sync.RWMutex
	last   Status
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher probing via the given client. Interval
// defaults to 30 seconds.
func NewWatcher(client Client, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{client: client, interval: interval}
}

// Start begins periodic probing. The first probe runs immediately.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.probe(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.probe(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the probe loop and waits for it to exit, so no probe acts on
// stale state after teardown.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// Status returns the last-known connectivity status.
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

func (w *Watcher) probe(ctx context.Context) {
	status := w.client.CheckConnectivity(ctx)

	w.mu.Lock()
	changed := status.Connected != w.last.Connected
	w.last = status
	w.mu.Unlock()

	if changed {
		log.Info().Bool("connected", status.Connected).Str("message", status.Message).Msg("upstream connectivity changed")
	}
}
