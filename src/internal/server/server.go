// Package server exposes Identify and cover downloads over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"novelmeta/src/internal/apperr"
	"novelmeta/src/internal/booksearch"
	"novelmeta/src/internal/cover"
	"novelmeta/src/internal/logging"
	"novelmeta/src/internal/schema"
)

const (
	RequestIDHeader = "X-Request-ID"
	ctxRequestIDKey = "request_id"
)

type Handler struct {
	Searcher *booksearch.Searcher
	Covers   *cover.Downloader
	log      *zap.Logger
}

func NewHandler(s *booksearch.Searcher, covers *cover.Downloader, log *zap.Logger) *Handler {
	return &Handler{Searcher: s, Covers: covers, log: logging.OrNop(log)}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/healthz", h.health)               // GET /healthz
	rg.GET("/v1/books", h.identify)            // GET /v1/books?title=&author=&id=
	rg.GET("/v1/books/:id/cover", h.coverByID) // GET /v1/books/:id/cover
}

// NewRouter returns an engine with request ids, access logging and the
// book routes installed.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), accessLog(h.log))
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

// RequestID echoes the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(booksearch.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetString(ctxRequestIDKey)),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) identify(c *gin.Context) {
	req := booksearch.Request{
		Title:   c.Query("title"),
		Authors: c.QueryArray("author"),
		ID:      c.Query("id"),
	}
	ctx := c.Request.Context()
	items, err := h.Searcher.Identify(ctx, req, ctx.Done())
	switch {
	case apperr.Is(err, apperr.Input):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, booksearch.ErrAborted):
		h.log.Info("identify aborted by client", zap.String("request_id", c.GetString(ctxRequestIDKey)))
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []schema.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *Handler) coverByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	data, _, err := h.Covers.ForQuery(c.Request.Context(), h.Searcher, booksearch.Request{ID: id})
	if errors.Is(err, cover.ErrNoCover) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// Serve runs the router on listen until ctx is canceled.
func Serve(ctx context.Context, listen string, h *Handler) error {
	srv := &http.Server{Addr: listen, Handler: NewRouter(h), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	h.log.Info("http server listening", zap.String("listen", listen))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
