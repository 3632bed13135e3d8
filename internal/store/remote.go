package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/deeptrail/appshell/internal/crashsink"
	"github.com/deeptrail/appshell/internal/infrastructure/monitoring"
	"github.com/deeptrail/appshell/internal/infrastructure/resilience"
	"github.com/deeptrail/appshell/internal/logging"
)

const (
	syncPath        = "/functions/v1/sync-user-status"
	resolveUserPath = "/functions/v1/resolve-user"
)

// Identity carries whichever identity signals are available for keying a
// remote lookup or save.
type Identity struct {
	AttributionID string
	DeviceAdID    string
}

// Empty reports whether no identity field is present. An empty identity
// makes a lookup pointless, so no network call happens.
func (i Identity) Empty() bool {
	return i.AttributionID == "" && i.DeviceAdID == ""
}

type lookupResponse struct {
	Found     bool   `json:"found"`
	TargetURL string `json:"target_url"`
}

type saveRequest struct {
	Action      string `json:"action"`
	AppsflyerID string `json:"appsflyer_id"`
	ProjectID   string `json:"project_id"`
	TargetURL   string `json:"target_url"`
	GAID        string `json:"gaid,omitempty"`
}

type resolveUserResponse struct {
	Domain string `json:"domain"`
}

// Remote speaks to the resolution service. Every call is bounded by the
// configured timeout; any failure degrades to "not found" and is reported
// to the crash sink as a non-fatal event.
type Remote struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	base    string
	log     *logging.Logger
	sink    crashsink.Sink
	metrics *monitoring.Metrics
}

// NewRemote creates a remote client against baseURL. An empty baseURL
// yields a client whose lookups always miss.
func NewRemote(baseURL string, timeout time.Duration, log *logging.Logger, sink crashsink.Sink, metrics *monitoring.Metrics) *Remote {
	// Transport comes from retryablehttp for its pooling defaults, but
	// retries stay off: a failed resolution call is a miss, not a retry.
	transportClient := retryablehttp.NewClient()
	transportClient.RetryMax = 0
	transportClient.Logger = nil

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "appshell/1.0").
		SetTransport(transportClient.HTTPClient.Transport)

	return &Remote{
		client:  client,
		limiter: rate.NewLimiter(rate.Inf, 0),
		breaker: resilience.NewBreaker("resolution-api", 5, 30*time.Second),
		base:    baseURL,
		log:     log,
		sink:    sink,
		metrics: metrics,
	}
}

// Lookup queries the resolution service for a previously saved target.
// Both identity fields absent means no network call. Any non-200, timeout,
// or transport error is a miss, never a hard failure.
func (r *Remote) Lookup(ctx context.Context, id Identity) (string, bool) {
	if r.base == "" || id.Empty() {
		return "", false
	}
	if !r.breaker.Allow() {
		r.record("lookup", "miss")
		return "", false
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", false
	}

	var out lookupResponse
	req := r.client.R().
		SetContext(ctx).
		SetQueryParam("action", "get").
		SetResult(&out)
	if id.AttributionID != "" {
		req.SetQueryParam("appsflyer_id", id.AttributionID)
	}
	if id.DeviceAdID != "" {
		req.SetQueryParam("gaid", id.DeviceAdID)
	}

	resp, err := req.Get(r.base + syncPath)
	r.breaker.Record(err)
	if err != nil {
		r.sink.ReportNonFatal(ctx, fmt.Errorf("target lookup: %w", err))
		r.record("lookup", "error")
		return "", false
	}
	if resp.StatusCode() != http.StatusOK || !out.Found || out.TargetURL == "" {
		r.record("lookup", "miss")
		return "", false
	}

	r.record("lookup", "hit")
	return out.TargetURL, true
}

// Save persists a resolved target remotely. Fire-and-forget: the response
// is ignored and failures are logged only. This is a best-effort cache
// warm, not a durability guarantee.
func (r *Remote) Save(ctx context.Context, id Identity, projectID, url string) {
	if r.base == "" {
		return
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return
	}

	body := saveRequest{
		Action:      "save",
		AppsflyerID: id.AttributionID,
		ProjectID:   projectID,
		TargetURL:   url,
		GAID:        id.DeviceAdID,
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(r.base + syncPath)
	if err != nil {
		r.log.Warn("target save failed", zap.Error(err))
		r.record("save", "error")
		return
	}
	if resp.StatusCode() != http.StatusOK {
		r.log.Warn("target save rejected", zap.Int("status", resp.StatusCode()))
		r.record("save", "error")
		return
	}
	r.record("save", "ok")
}

// ResolveUser asks the service for the domain registered to a username.
// Non-authoritative: callers tolerate any error and may ignore the result.
func (r *Remote) ResolveUser(ctx context.Context, username string) (string, error) {
	if r.base == "" {
		return "", fmt.Errorf("no resolution endpoint configured")
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var out resolveUserResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("username", username).
		SetResult(&out).
		Get(r.base + resolveUserPath)
	if err != nil {
		r.record("resolve_user", "error")
		return "", fmt.Errorf("resolve user: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		r.record("resolve_user", "error")
		return "", fmt.Errorf("resolve user: status %d", resp.StatusCode())
	}

	r.record("resolve_user", "ok")
	return out.Domain, nil
}

func (r *Remote) record(endpoint, result string) {
	if r.metrics != nil {
		r.metrics.RecordRemoteCall(endpoint, result)
	}
}
