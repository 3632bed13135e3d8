// Package connectivity watches whether the remote resolution service is
// reachable, so the shell can surface an offline state and retry pending
// work when the network returns.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/logging"
)

// Monitor reports the current connectivity state and notifies on change.
type Monitor interface {
	Online() bool

	// Subscribe registers a state-change callback and returns a cancel
	// function. The callback fires only on transitions.
	Subscribe(fn func(online bool)) (cancel func())
}

// Probe checks reachability by issuing periodic HEAD requests against a
// base URL. It starts optimistic: the state is online until a probe fails.
type Probe struct {
	client   *resty.Client
	url      string
	interval time.Duration
	log      *logging.Logger

	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

// NewProbe creates a probe against baseURL.
func NewProbe(baseURL string, interval time.Duration, log *logging.Logger) *Probe {
	return &Probe{
		client:   resty.New().SetTimeout(3 * time.Second),
		url:      baseURL,
		interval: interval,
		log:      log,
		online:   true,
		subs:     make(map[int]func(bool)),
	}
}

// Start probes until ctx is cancelled.
func (p *Probe) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.set(p.check(ctx))
		}
	}
}

// Online implements Monitor.
func (p *Probe) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Subscribe implements Monitor.
func (p *Probe) Subscribe(fn func(online bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Probe) check(ctx context.Context) bool {
	if p.url == "" {
		return true
	}
	resp, err := p.client.R().SetContext(ctx).Head(p.url)
	if err != nil {
		return false
	}
	return resp.StatusCode() < http.StatusInternalServerError
}

func (p *Probe) set(online bool) {
	p.mu.Lock()
	changed := online != p.online
	p.online = online
	var subs []func(bool)
	if changed {
		for _, fn := range p.subs {
			subs = append(subs, fn)
		}
	}
	p.mu.Unlock()

	if !changed {
		return
	}
	p.log.Info("connectivity changed", zap.Bool("online", online))
	for _, fn := range subs {
		fn(online)
	}
}
