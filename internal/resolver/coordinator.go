// Package resolver owns the URL-resolution race: local cache, server
// lookup, deep-link delivery, the organic shortcut, and the fallback
// deadline all report here, and exactly one of them commits the
// destination. A genuine deep link may override an already committed
// server destination; nothing else ever displaces a commit.
package resolver

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/attribution"
	"github.com/deeptrail/appshell/internal/browser"
	"github.com/deeptrail/appshell/internal/crashsink"
	"github.com/deeptrail/appshell/internal/deeplink"
	"github.com/deeptrail/appshell/internal/infrastructure/monitoring"
	"github.com/deeptrail/appshell/internal/logging"
	"github.com/deeptrail/appshell/internal/store"
)

// Gateway is the attribution collaborator, see the attribution package.
type Gateway interface {
	Initialize(ctx context.Context, hooks attribution.Hooks) error
	DeviceIDReady() <-chan struct{}
	AdIDReady() <-chan struct{}
	ConversionReady() <-chan struct{}
	Identity() attribution.Identity
}

// TargetStore is the persistence collaborator, see the store package.
type TargetStore interface {
	Cached() string
	Persist(url string)
	Lookup(ctx context.Context, id store.Identity) (string, bool)
	SaveRemote(ctx context.Context, id store.Identity, projectID, url string)
	ResolveUser(ctx context.Context, username string) (string, error)
}

// Config holds the coordinator's deadlines and fixed identifiers.
type Config struct {
	FallbackURL      string
	ProjectID        string
	DeviceIDWait     time.Duration
	ConversionWait   time.Duration
	FallbackDeadline time.Duration
}

// Ordered alternate keys for extracting the deep-link payload when the
// primary value field is empty.
var payloadKeys = []string{"deep_link_value", "af_dp", "af_deeplink", "link"}

// Status is the coordinator's externally visible state, for the status API.
type Status struct {
	CycleID string `json:"cycle_id"`
	State   string `json:"state"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
	Ready   bool   `json:"ready"`
}

// Coordinator runs the resolution race. All flag mutation happens under
// c.mu; every commit site re-checks the guard after each blocking point,
// so the first committer wins unless a genuine deep link overrides.
type Coordinator struct {
	cfg     Config
	gateway Gateway
	targets TargetStore
	view    browser.View
	sink    crashsink.Sink
	metrics *monitoring.Metrics
	log     *logging.Logger

	mu               sync.Mutex
	state            State
	deepLinkHandled  bool
	loadedFromServer bool
	urlResolved      bool
	target           string
	source           Source
	fallback         *time.Timer
	cycleID          string
	startedAt        time.Time
	ready            bool

	readyOnce sync.Once
}

// New creates a coordinator. The view may be nil at construction and
// wired later via SetView; everything else is required.
func New(cfg Config, gateway Gateway, targets TargetStore, view browser.View, sink crashsink.Sink, metrics *monitoring.Metrics, log *logging.Logger) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		gateway: gateway,
		targets: targets,
		view:    view,
		sink:    sink,
		metrics: metrics,
		log:     log,
	}
}

// SetView wires the browser view. Must happen before Start; view
// construction usually needs the coordinator's page events first.
func (c *Coordinator) SetView(v browser.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

// Start runs one resolution cycle: local cache first, then the race.
// It is safe to call again while nothing has committed (the connectivity
// layer does this on reconnect); the race restarts, one-shot attribution
// signals keep whatever already resolved.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.urlResolved {
		c.mu.Unlock()
		return
	}
	if c.cycleID == "" {
		c.cycleID = uuid.NewString()
		c.startedAt = time.Now()
	}
	c.mu.Unlock()

	// The local check always precedes the race, never runs inside it.
	if cached := c.targets.Cached(); cached != "" {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.urlResolved {
			return
		}
		c.setStateLocked(StateLocalHit)
		c.deepLinkHandled = true
		c.loadedFromServer = true
		c.commitLocked(cached, SourceLocal)
		return
	}

	c.mu.Lock()
	c.setStateLocked(StateRacing)
	c.stopFallbackLocked()
	c.fallback = time.AfterFunc(c.cfg.FallbackDeadline, c.onFallbackDeadline)
	c.mu.Unlock()

	if err := c.gateway.Initialize(ctx, attribution.Hooks{
		OnDeepLink: func(dl attribution.DeepLink) { c.onDeepLink(ctx, dl) },
		OnOrganic:  c.onOrganic,
		OnCampaign: func(name string) { c.onCampaign(ctx, name) },
	}); err != nil {
		c.sink.ReportNonFatal(ctx, err, zap.String("cycle", c.cycleID))
	}

	go c.remoteAttempt(ctx)
}

// PageEvents returns the browser event hooks for this coordinator.
func (c *Coordinator) PageEvents() browser.Events {
	return browser.Events{
		PageFinished: c.onPageFinished,
		ResourceError: func(url, description string) {
			c.log.Warn("page resource error",
				zap.String("url", url),
				zap.String("description", description),
			)
		},
	}
}

// Committed reports whether a destination has been committed.
func (c *Coordinator) Committed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urlResolved
}

// CurrentStatus returns the externally visible state.
func (c *Coordinator) CurrentStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		CycleID: c.cycleID,
		State:   c.state.String(),
		Source:  string(c.source),
		Target:  c.target,
		Ready:   c.ready,
	}
}

// remoteAttempt is racing path (b): wait briefly for the identity
// signals, then try the server lookup. The commit guard is re-checked
// before and after every blocking point; another path may win meanwhile.
func (c *Coordinator) remoteAttempt(ctx context.Context) {
	wait := time.NewTimer(c.cfg.DeviceIDWait)
	defer wait.Stop()

	devCh := c.gateway.DeviceIDReady()
	adCh := c.gateway.AdIDReady()
	for devCh != nil || adCh != nil {
		select {
		case <-devCh:
			devCh = nil
		case <-adCh:
			adCh = nil
		case <-wait.C:
			// Deadline: proceed with whatever identity resolved so far.
			devCh, adCh = nil, nil
		case <-ctx.Done():
			return
		}
	}

	if c.Committed() {
		return
	}

	identity := c.gateway.Identity()
	key := store.Identity{
		AttributionID: identity.DeviceAttributionID,
		DeviceAdID:    identity.DeviceAdID,
	}
	if key.Empty() {
		return
	}

	url, ok := c.targets.Lookup(ctx, key)
	if !ok {
		return
	}

	c.mu.Lock()
	if c.urlResolved {
		c.mu.Unlock()
		return
	}
	c.deepLinkHandled = true
	c.loadedFromServer = true
	c.commitLocked(url, SourceServer)
	c.mu.Unlock()

	c.targets.Persist(url)
}

func (c *Coordinator) onFallbackDeadline() {
	c.commitFallback("deadline expired")
}

func (c *Coordinator) onOrganic() {
	// An organic install carries no attribution; waiting further is
	// pointless.
	c.commitFallback("organic install")
}

func (c *Coordinator) onDeepLink(ctx context.Context, dl attribution.DeepLink) {
	if !dl.Found() {
		return
	}

	// A resolving deep link beats the deadline even before it is parsed.
	c.mu.Lock()
	c.stopFallbackLocked()
	c.mu.Unlock()

	raw := extractPayload(dl)
	if raw == "" {
		c.commitFallback("deep link delivered without payload")
		return
	}
	c.handleDeepLink(ctx, raw, true)
}

func (c *Coordinator) onCampaign(ctx context.Context, name string) {
	if c.Committed() {
		return
	}
	if deeplink.Parse(deeplink.Clean(name)) == nil {
		return
	}
	c.handleDeepLink(ctx, name, false)
}

// handleDeepLink is the single entry point for committing a deep-link
// destination, from direct delivery (genuine) or the campaign fallback.
// Exactly one commit is allowed; a genuine link may override a prior
// server commit.
func (c *Coordinator) handleDeepLink(ctx context.Context, raw string, genuine bool) {
	defer func() {
		if r := recover(); r != nil {
			c.sink.ReportPanic(r, debug.Stack())
			c.commitFallback("deep link handling failed")
		}
	}()

	overrode := false
	c.mu.Lock()
	if c.deepLinkHandled {
		if !genuine || !c.loadedFromServer {
			c.mu.Unlock()
			return
		}
		// Override decided, but the server commit stays in place until
		// the replacement destination is ready. Clearing the flags here
		// would open a window where a concurrent fallback or organic
		// signal commits instead of the genuine link.
		overrode = true
	}
	c.stopFallbackLocked()
	c.mu.Unlock()

	fields := deeplink.Parse(deeplink.Clean(raw))
	if fields == nil {
		c.commitFallback("malformed deep link")
		return
	}

	// Campaign sub-fields ride on the conversion payload; wait briefly so
	// they can be embedded, then proceed with whatever resolved.
	select {
	case <-c.gateway.ConversionReady():
	case <-time.After(c.cfg.ConversionWait):
	case <-ctx.Done():
	}

	// Non-authoritative; any response or error is tolerated and ignored.
	if _, err := c.targets.ResolveUser(ctx, fields.Username); err != nil {
		c.log.Debug("resolve user bypassed", zap.Error(err))
	}

	identity := c.gateway.Identity()
	dest := BuildDestination(c.cfg.ProjectID, fields, identity)

	c.mu.Lock()
	if overrode {
		if !c.loadedFromServer {
			// Another delivery displaced the server commit meanwhile.
			c.mu.Unlock()
			return
		}
		c.overrideLocked()
	} else if c.urlResolved {
		c.mu.Unlock()
		return
	}
	c.deepLinkHandled = true
	c.loadedFromServer = false
	c.commitLocked(dest, SourceDeepLink)
	c.mu.Unlock()

	c.targets.Persist(dest)
	if !overrode {
		key := store.Identity{
			AttributionID: identity.DeviceAttributionID,
			DeviceAdID:    identity.DeviceAdID,
		}
		c.targets.SaveRemote(ctx, key, c.cfg.ProjectID, dest)
	}
}

// commitFallback commits the configured fallback URL. Fallback commits
// are never persisted: they mean "gave up waiting", not a confirmed
// identity.
func (c *Coordinator) commitFallback(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.urlResolved {
		return
	}
	c.log.Info("falling back to default destination",
		zap.String("cycle", c.cycleID),
		zap.String("reason", reason),
	)
	c.deepLinkHandled = true
	c.loadedFromServer = false
	c.commitLocked(c.cfg.FallbackURL, SourceFallback)
}

// commitLocked is the commit transition: flags, timer cancel, metrics,
// and the load trigger form one atomic step under c.mu. Callers hold the
// lock and have already passed the guard.
func (c *Coordinator) commitLocked(url string, source Source) {
	c.stopFallbackLocked()
	c.target = url
	c.source = source
	c.urlResolved = true
	c.setStateLocked(StateResolved)

	c.log.Info("destination committed",
		zap.String("cycle", c.cycleID),
		zap.String("source", string(source)),
		zap.String("url", url),
	)
	c.metrics.RecordResolution(string(source), time.Since(c.startedAt))

	c.view.Load(url)
	c.setStateLocked(StateLoaded)
}

// overrideLocked discards a server-resolved commit so a genuine deep
// link can re-arm the load. This is the only transition that clears
// deepLinkHandled.
func (c *Coordinator) overrideLocked() {
	c.log.Info("deep link overriding server destination",
		zap.String("cycle", c.cycleID),
		zap.String("previous", c.target),
	)
	c.deepLinkHandled = false
	c.loadedFromServer = false
	c.urlResolved = false
	c.setStateLocked(StateRacing)
	c.metrics.RecordOverride()
}

func (c *Coordinator) onPageFinished(url string) {
	c.readyOnce.Do(func() {
		c.mu.Lock()
		c.ready = true
		c.mu.Unlock()
		c.log.Info("screen ready", zap.String("url", url))
	})
}

func (c *Coordinator) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.log.Debug("state transition",
		zap.String("from", c.state.String()),
		zap.String("to", s.String()),
	)
	c.state = s
}

func (c *Coordinator) stopFallbackLocked() {
	if c.fallback != nil {
		c.fallback.Stop()
		c.fallback = nil
	}
}

// extractPayload pulls the raw deep-link string out of a delivery:
// primary value first, then the provider map, then the accessor probe,
// each scanning the same ordered key list.
func extractPayload(dl attribution.DeepLink) string {
	if dl.Value != "" {
		return dl.Value
	}
	for _, key := range payloadKeys {
		if v := dl.Params[key]; v != "" {
			return v
		}
	}
	for _, key := range payloadKeys {
		if v, ok := dl.Probe(key); ok {
			return v
		}
	}
	return ""
}
