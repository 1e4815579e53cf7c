package netwatch

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
)

// Watcher is the online/offline event source the host environment provides.
// Subscribers receive the new flag on every transition, never on repeats.
type Watcher interface {
	Online() bool
	Subscribe() <-chan bool
}

// Manual is a watcher driven by explicit SetOnline calls: the embedding UI
// layer (or a test) pushes connectivity transitions into it.
type Manual struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
}

func NewManual(initiallyOnline bool) *Manual {
	return &Manual{online: initiallyOnline}
}

func (w *Manual) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

func (w *Manual) Subscribe() <-chan bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan bool, 4)
	w.subs = append(w.subs, ch)
	return ch
}

func (w *Manual) SetOnline(online bool) {
	w.mu.Lock()
	if w.online == online {
		w.mu.Unlock()
		return
	}
	w.online = online
	subs := make([]chan bool, len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// Slow subscriber; it will read the flag on its next poll.
		}
	}
}

// Pinger derives the connectivity flag by probing a health URL on an
// interval. A reachable endpoint means online; any transport error means
// offline.
type Pinger struct {
	*Manual

	url      string
	interval time.Duration
	client   *http.Client
	log      *logger.Logger
}

func NewPinger(url string, interval time.Duration, log *logger.Logger) *Pinger {
	return &Pinger{
		Manual:   NewManual(false),
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.With("service", "NetWatcher"),
	}
}

// Start blocks until ctx is done, probing on the configured interval.
func (p *Pinger) Start(ctx context.Context) {
	p.probe(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Pinger) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	online := err == nil
	if resp != nil {
		resp.Body.Close()
	}
	if online != p.Online() {
		p.log.Info("Connectivity changed", "online", online)
	}
	p.SetOnline(online)
}
