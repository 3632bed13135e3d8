// Package attribution wraps the external attribution SDK behind one-shot
// awaitable signals and a small set of named event hooks, so the resolver
// never sees the provider's callback shape.
package attribution

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/logging"
)

// Hooks are the events the gateway raises toward the resolver.
type Hooks struct {
	// OnDeepLink fires on every deep-link delivery, payload unmodified.
	OnDeepLink func(DeepLink)

	// OnOrganic fires when an install-conversion payload classifies the
	// install as organic.
	OnOrganic func()

	// OnCampaign fires with the campaign name of an attributed
	// conversion. It may fire once per delivery; idempotence is the
	// caller's concern.
	OnCampaign func(name string)
}

// Gateway adapts the SDK's callbacks into awaitable signals plus Hooks.
type Gateway struct {
	sdk    SDK
	devKey string
	log    *logging.Logger

	mu       sync.Mutex
	identity Identity
	hooks    Hooks
	convSeen bool

	deviceReady chan struct{}
	adReady     chan struct{}
	convReady   chan struct{}
	deviceOnce  sync.Once
	adOnce      sync.Once
	convOnce    sync.Once
}

// NewGateway creates a gateway over the given SDK. An empty devKey means
// the SDK is unconfigured; Initialize then resolves the identifier
// signals immediately to "none" without starting a session.
func NewGateway(sdk SDK, devKey string, log *logging.Logger) *Gateway {
	return &Gateway{
		sdk:         sdk,
		devKey:      devKey,
		log:         log,
		deviceReady: make(chan struct{}),
		adReady:     make(chan struct{}),
		convReady:   make(chan struct{}),
	}
}

// Initialize registers hooks and starts the SDK session.
func (g *Gateway) Initialize(ctx context.Context, hooks Hooks) error {
	g.mu.Lock()
	g.hooks = hooks
	g.mu.Unlock()

	if g.devKey == "" {
		g.log.Info("attribution SDK unconfigured, resolving identifiers empty")
		g.resolveDeviceID("")
		g.resolveAdID("")
		return nil
	}

	cb := Callbacks{
		OnDeepLink:   g.onDeepLink,
		OnConversion: g.onConversion,
		OnDeviceID:   g.resolveDeviceID,
		OnAdID:       g.resolveAdID,
	}
	if err := g.sdk.Start(ctx, cb); err != nil {
		// Waiters must never hang on a session that will not deliver.
		g.resolveDeviceID("")
		g.resolveAdID("")
		return fmt.Errorf("attribution sdk start: %w", err)
	}
	return nil
}

// DeviceIDReady is closed once the device identifier has resolved.
func (g *Gateway) DeviceIDReady() <-chan struct{} { return g.deviceReady }

// AdIDReady is closed once the advertising identifier has resolved.
func (g *Gateway) AdIDReady() <-chan struct{} { return g.adReady }

// ConversionReady is closed after the first install-conversion delivery,
// organic or not.
func (g *Gateway) ConversionReady() <-chan struct{} { return g.convReady }

// Identity returns a copy of the accumulated attribution state.
func (g *Gateway) Identity() Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity
}

func (g *Gateway) resolveDeviceID(id string) {
	g.deviceOnce.Do(func() {
		g.mu.Lock()
		g.identity.DeviceAttributionID = id
		g.mu.Unlock()
		close(g.deviceReady)
		g.log.Debug("device attribution id resolved", zap.Bool("present", id != ""))
	})
}

func (g *Gateway) resolveAdID(id string) {
	g.adOnce.Do(func() {
		g.mu.Lock()
		g.identity.DeviceAdID = id
		g.mu.Unlock()
		close(g.adReady)
	})
}

func (g *Gateway) onDeepLink(dl DeepLink) {
	g.mu.Lock()
	hook := g.hooks.OnDeepLink
	g.mu.Unlock()
	if hook != nil {
		hook(dl)
	}
}

func (g *Gateway) onConversion(raw []byte) {
	// Extraction errors never block signal resolution.
	defer g.convOnce.Do(func() { close(g.convReady) })
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("conversion extraction failed", zap.Any("cause", r))
		}
	}()

	conv := extractConversion(raw)

	g.mu.Lock()
	if !g.convSeen {
		g.convSeen = true
		g.identity.InstallStatus = conv.Status
		g.identity.CampaignFields = conv.Subs
	}
	hooks := g.hooks
	g.mu.Unlock()

	// Release conversion waiters before any hook runs. The campaign hook
	// ends up waiting on this very signal downstream; closing late would
	// stall it for the full wait even though the data already arrived.
	g.convOnce.Do(func() { close(g.convReady) })

	if conv.Status == StatusOrganic {
		g.log.Info("organic install reported")
		if hooks.OnOrganic != nil {
			hooks.OnOrganic()
		}
		return
	}
	if conv.Campaign != "" && hooks.OnCampaign != nil {
		hooks.OnCampaign(conv.Campaign)
	}
}
