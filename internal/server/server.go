// Package server is the HTTP ingestion gateway: it accepts raw platform
// payloads, normalizes them, and enqueues them for the worker. It also
// proxies evaluation requests to the external engine.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/claimpipe/claimpipe/internal/engine"
	"github.com/claimpipe/claimpipe/internal/metrics"
	"github.com/claimpipe/claimpipe/internal/normalize"
)

// IngestQueue is what the gateway needs from the queue: push one serialized
// event, and peek at the most recent one for debugging.
type IngestQueue interface {
	Push(ctx context.Context, payload []byte) error
	Peek(ctx context.Context) ([]byte, error)
}

// Evaluator forwards a prompt to the evaluation engine.
type Evaluator interface {
	Evaluate(ctx context.Context, req engine.Request) (string, error)
}

type Server struct {
	queue  IngestQueue
	engine Evaluator
	log    zerolog.Logger
	now    func() time.Time
}

func New(q IngestQueue, eng Evaluator, log zerolog.Logger) *Server {
	return &Server{
		queue:  q,
		engine: eng,
		log:    log,
		now:    time.Now,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(s.log))

	r.POST("/ingest/tg", s.IngestTelegram)
	r.POST("/evaluate", s.Evaluate)
	r.GET("/health", s.Health)
	r.GET("/debug/peek", s.Peek)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// IngestTelegram accepts a raw Telegram update, normalizes it, stamps the
// content hash of the raw bytes for audit, and enqueues the event.
func (s *Server) IngestTelegram(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable body"})
		return
	}

	ev, err := normalize.Update(raw, s.now())
	if err != nil {
		metrics.IngestRejected.Inc()
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}

	sum := sha256.Sum256(raw)
	ev.RawSig = hex.EncodeToString(sum[:])

	payload, err := json.Marshal(ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "encode failed"})
		return
	}

	if err := s.queue.Push(c.Request.Context(), payload); err != nil {
		s.log.Error().Err(err).Msg("enqueue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "queue unavailable"})
		return
	}

	metrics.EventsIngested.Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Evaluate forwards a prompt to the evaluation engine. Engine failures are
// surfaced as text in the result, not as an HTTP fault.
func (s *Server) Evaluate(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid json"})
		return
	}

	out, err := s.engine.Evaluate(c.Request.Context(), req)
	if err != nil {
		metrics.EngineRequests.WithLabelValues("error").Inc()
		c.JSON(http.StatusOK, gin.H{"ok": true, "result": "Engine error: " + err.Error()})
		return
	}

	metrics.EngineRequests.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": out})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": s.now().Unix()})
}

// Peek returns the most recently enqueued event, for testing the pipeline.
func (s *Server) Peek(c *gin.Context) {
	data, err := s.queue.Peek(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "queue unavailable"})
		return
	}
	if data == nil {
		c.JSON(http.StatusOK, gin.H{"last": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"last": json.RawMessage(data)})
}
