// Package browser defines the embedded browser view collaborator. The
// shell never renders; it only tells a view what to load and listens for
// page lifecycle events.
package browser

import (
	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/logging"
)

// Events are the page lifecycle hooks a view reports through. A view
// must invoke them asynchronously, never from inside Load.
type Events struct {
	PageStarted   func(url string)
	PageFinished  func(url string)
	ResourceError func(url string, description string)
}

// View is the load surface of the embedded browser. Load must return
// promptly and must not call back into its caller synchronously; the
// resolver triggers it inside a commit transition.
type View interface {
	Load(url string)
}

// LogView is a headless view: it records the load and immediately
// reports the page finished. Used by the shell binary and in tests.
type LogView struct {
	log    *logging.Logger
	events Events
}

// NewLogView creates a headless view reporting through events.
func NewLogView(log *logging.Logger, events Events) *LogView {
	return &LogView{log: log, events: events}
}

// Load implements View.
func (v *LogView) Load(url string) {
	v.log.Info("loading destination", zap.String("url", url))
	go func() {
		if v.events.PageStarted != nil {
			v.events.PageStarted(url)
		}
		if v.events.PageFinished != nil {
			v.events.PageFinished(url)
		}
	}()
}
