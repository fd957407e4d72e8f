// Package server exposes the supervisor and the configuration store over
// HTTP. The API is poll-based: clients re-fetch status and output, there
// is no streaming.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcpherd/mcpherd/internal/config"
	"github.com/mcpherd/mcpherd/internal/metrics"
	"github.com/mcpherd/mcpherd/internal/supervisor"
)

// Router provides embeddable HTTP handlers for managing servers.
// Endpoints (relative to basePath):
//
//	GET    /servers              list configured servers with status
//	POST   /servers              add or replace a server definition
//	DELETE /servers/:id          remove a server definition
//	POST   /servers/:id/start    start; returns the resulting status
//	POST   /servers/:id/stop     graceful stop; returns the status
//	POST   /servers/:id/kill     force kill; returns the status
//	GET    /servers/:id/status   current status (Idle for unknown ids)
//	GET    /servers/:id/output   captured output lines for the run
//	GET    /metrics              Prometheus metrics
type Router struct {
	sup      *supervisor.Supervisor
	store    *config.Store
	basePath string
}

// NewRouter constructs a Router. store may be nil when the configuration
// is not managed over HTTP; the config CRUD routes then return 404.
func NewRouter(sup *supervisor.Supervisor, store *config.Store, basePath string) *Router {
	return &Router{sup: sup, store: store, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in
// any server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/servers", r.handleList)
	group.POST("/servers", r.handleAdd)
	group.DELETE("/servers/:id", r.handleRemove)
	group.POST("/servers/:id/start", r.handleStart)
	group.POST("/servers/:id/stop", r.handleStop)
	group.POST("/servers/:id/kill", r.handleKill)
	group.GET("/servers/:id/status", r.handleStatus)
	group.GET("/servers/:id/output", r.handleOutput)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, sup *supervisor.Supervisor, store *config.Store) (*http.Server, error) {
	r := NewRouter(sup, store, basePath)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type serverEntry struct {
	ID     string              `json:"id"`
	Config config.ServerConfig `json:"config"`
	Status any                 `json:"status"`
}

func (r *Router) handleList(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "configuration store not available"})
		return
	}
	snap := r.store.Snapshot()
	out := make([]serverEntry, 0, len(snap))
	for _, id := range r.store.List() {
		out = append(out, serverEntry{ID: id, Config: snap[id], Status: r.sup.Status(id)})
	}
	c.JSON(http.StatusOK, out)
}

type addReq struct {
	ID     string              `json:"id"`
	Config config.ServerConfig `json:"config"`
}

func (r *Router) handleAdd(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "configuration store not available"})
		return
	}
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.ID == "" || req.Config.Command == "" {
		c.JSON(http.StatusBadRequest, errorResp{Error: "id and config.command required"})
		return
	}
	if err := r.store.Add(req.ID, req.Config); err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, r.sup.Status(req.ID))
}

func (r *Router) handleRemove(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "configuration store not available"})
		return
	}
	if err := r.store.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, errorResp{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) handleStart(c *gin.Context) {
	st, err := r.sup.Start(c.Param("id"))
	if err != nil {
		c.JSON(statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleStop(c *gin.Context) {
	st, err := r.sup.Stop(c.Param("id"))
	if err != nil {
		c.JSON(statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleKill(c *gin.Context) {
	st, err := r.sup.Kill(c.Param("id"))
	if err != nil {
		c.JSON(statusForErr(err), errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.Status(c.Param("id")))
}

func (r *Router) handleOutput(c *gin.Context) {
	c.JSON(http.StatusOK, r.sup.Output(c.Param("id")))
}

func statusForErr(err error) int {
	if errors.Is(err, supervisor.ErrConfigNotFound) || errors.Is(err, supervisor.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
