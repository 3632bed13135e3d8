package attribution

import (
	"context"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

// DeepLink is a raw deep-link delivery from the provider. The gateway
// forwards it unmodified; interpretation happens downstream.
type DeepLink struct {
	// Status is the provider's resolution status, e.g. "FOUND".
	Status string

	// Value is the primary deep-link value field.
	Value string

	// Params is the provider's key-value map, possibly partial.
	Params map[string]string

	// Raw is the provider payload as delivered, for probing fields the
	// map does not carry.
	Raw []byte
}

// Found reports whether the provider resolved a link.
func (d DeepLink) Found() bool {
	return strings.EqualFold(d.Status, "found")
}

// Probe looks a key up in the raw provider payload. It is the accessor
// of last resort when the primary value and the Params map are empty.
func (d DeepLink) Probe(key string) (string, bool) {
	if len(d.Raw) == 0 {
		return "", false
	}
	v := gjson.GetBytes(d.Raw, key)
	if !v.Exists() || v.String() == "" {
		return "", false
	}
	return v.String(), true
}

// Callbacks is the registration surface an SDK delivers events through.
type Callbacks struct {
	OnDeepLink   func(DeepLink)
	OnConversion func(raw []byte)
	OnDeviceID   func(id string)
	OnAdID       func(id string)
}

// SDK abstracts the external attribution provider. Implementations start
// a session and deliver events through the registered callbacks; they
// never interpret payloads.
type SDK interface {
	Start(ctx context.Context, cb Callbacks) error
}

// Bridge is an SDK fed by the host process: the status server exposes
// delivery endpoints that call the Deliver methods. It is also the fake
// of choice in tests.
type Bridge struct {
	mu      sync.Mutex
	cb      Callbacks
	started bool
}

// NewBridge creates an unstarted bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Start registers callbacks and marks the bridge live.
func (b *Bridge) Start(_ context.Context, cb Callbacks) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = cb
	b.started = true
	return nil
}

// DeliverDeepLink forwards a deep-link result to the registered callback.
// It reports false when the bridge has not been started.
func (b *Bridge) DeliverDeepLink(dl DeepLink) bool {
	cb, ok := b.callbacks()
	if !ok || cb.OnDeepLink == nil {
		return false
	}
	cb.OnDeepLink(dl)
	return true
}

// DeliverConversion forwards an install-conversion payload.
func (b *Bridge) DeliverConversion(raw []byte) bool {
	cb, ok := b.callbacks()
	if !ok || cb.OnConversion == nil {
		return false
	}
	cb.OnConversion(raw)
	return true
}

// DeliverIdentifiers forwards whichever identifiers are present.
func (b *Bridge) DeliverIdentifiers(deviceID, adID string) bool {
	cb, ok := b.callbacks()
	if !ok {
		return false
	}
	if deviceID != "" && cb.OnDeviceID != nil {
		cb.OnDeviceID(deviceID)
	}
	if adID != "" && cb.OnAdID != nil {
		cb.OnAdID(adID)
	}
	return true
}

func (b *Bridge) callbacks() (Callbacks, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cb, b.started
}
