// Package server exposes the local status surface: health, resolution
// state, Prometheus metrics, and the SDK delivery bridge the host
// process feeds attribution events through.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/deeptrail/appshell/internal/attribution"
	"github.com/deeptrail/appshell/internal/connectivity"
	"github.com/deeptrail/appshell/internal/infrastructure/monitoring"
	"github.com/deeptrail/appshell/internal/logging"
	"github.com/deeptrail/appshell/internal/resolver"
)

// Server wraps the status HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	http    *http.Server
	coord   *resolver.Coordinator
	bridge  *attribution.Bridge
	monitor connectivity.Monitor
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// Config contains server configuration.
type Config struct {
	Addr string
}

// New creates a status server. bridge may be nil when the SDK is not
// bridge-fed; the delivery endpoints then return 404.
func New(cfg Config, coord *resolver.Coordinator, bridge *attribution.Bridge, monitor connectivity.Monitor, metrics *monitoring.Metrics, log *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	s := &Server{
		router:  router,
		coord:   coord,
		bridge:  bridge,
		monitor: monitor,
		metrics: metrics,
		log:     log,
		http: &http.Server{
			Addr:    cfg.Addr,
			Handler: router,
		},
	}

	router.GET("/health", s.health)
	router.GET("/status", s.status)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	if bridge != nil {
		sdk := router.Group("/sdk")
		sdk.POST("/deeplink", s.deliverDeepLink)
		sdk.POST("/conversion", s.deliverConversion)
		sdk.POST("/identifiers", s.deliverIdentifiers)
	}

	return s
}

// Handler returns the routing handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("status server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) status(c *gin.Context) {
	s.metrics.UpdateUptime()
	c.JSON(http.StatusOK, gin.H{
		"resolution": s.coord.CurrentStatus(),
		"online":     s.monitor.Online(),
		"metrics":    s.metrics.CurrentSnapshot(),
	})
}

type deepLinkRequest struct {
	Status string            `json:"status"`
	Value  string            `json:"value"`
	Params map[string]string `json:"params"`
	Raw    json.RawMessage   `json:"raw"`
}

func (s *Server) deliverDeepLink(c *gin.Context) {
	var req deepLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	delivered := s.bridge.DeliverDeepLink(attribution.DeepLink{
		Status: req.Status,
		Value:  req.Value,
		Params: req.Params,
		Raw:    []byte(req.Raw),
	})
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}

func (s *Server) deliverConversion(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": s.bridge.DeliverConversion(raw)})
}

type identifiersRequest struct {
	AppsflyerID string `json:"appsflyer_id"`
	GAID        string `json:"gaid"`
}

func (s *Server) deliverIdentifiers(c *gin.Context) {
	var req identifiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": s.bridge.DeliverIdentifiers(req.AppsflyerID, req.GAID)})
}
