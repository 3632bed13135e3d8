// Package app wires the resolution coordinator to the connectivity
// monitor: offline state is surfaced, and the pending resolution is
// retried automatically when the network returns.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/connectivity"
	"github.com/deeptrail/appshell/internal/logging"
	"github.com/deeptrail/appshell/internal/resolver"
)

// Shell runs one resolution cycle with connectivity-aware retry.
type Shell struct {
	coord   *resolver.Coordinator
	monitor connectivity.Monitor
	log     *logging.Logger
}

// NewShell creates a shell over the coordinator and monitor.
func NewShell(coord *resolver.Coordinator, monitor connectivity.Monitor, log *logging.Logger) *Shell {
	return &Shell{coord: coord, monitor: monitor, log: log}
}

// Run starts the resolution cycle and keeps the reconnect retry armed
// until ctx is cancelled.
func (s *Shell) Run(ctx context.Context) {
	cancel := s.monitor.Subscribe(func(online bool) {
		if !online {
			s.log.Warn("offline, resolution may stall")
			return
		}
		// Reconnect: retry the pending resolution. Committed cycles are
		// untouched; Start is a no-op once a destination resolved.
		if !s.coord.Committed() {
			s.log.Info("connectivity restored, retrying resolution")
			s.coord.Start(ctx)
		}
	})
	defer cancel()

	s.coord.Start(ctx)
	<-ctx.Done()
	s.log.Info("shell stopping", zap.Error(ctx.Err()))
}
