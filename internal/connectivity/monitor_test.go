package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/deeptrail/appshell/internal/logging"
)

func testLogger() *logging.Logger { return logging.NewNop() }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestProbeDetectsOutageAndRecovery(t *testing.T) {
	var failing int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&failing) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewProbe(srv.URL, 20*time.Millisecond, testLogger())
	assert.True(t, p.Online(), "probe starts optimistic")

	var mu sync.Mutex
	var transitions []bool
	cancel := p.Subscribe(func(online bool) {
		mu.Lock()
		transitions = append(transitions, online)
		mu.Unlock()
	})
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go p.Start(ctx)

	atomic.StoreInt32(&failing, 1)
	waitFor(t, func() bool { return !p.Online() })

	atomic.StoreInt32(&failing, 0)
	waitFor(t, func() bool { return p.Online() })

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, transitions)
}

func TestSubscribeCancelStopsCallbacks(t *testing.T) {
	p := NewProbe("", 10*time.Millisecond, testLogger())

	calls := 0
	cancel := p.Subscribe(func(bool) { calls++ })
	cancel()

	p.set(false)
	p.set(true)
	assert.Equal(t, 0, calls)
}

func TestEmptyURLAlwaysOnline(t *testing.T) {
	p := NewProbe("", 10*time.Millisecond, testLogger())
	assert.True(t, p.check(context.Background()))
}
