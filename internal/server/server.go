package server

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"monthweather/internal/database"
	"monthweather/internal/models"
	"monthweather/internal/pipeline"
	"monthweather/internal/render"
	"monthweather/internal/summary"
)

// Server represents the HTTP server
type Server struct {
	source Source
	engine *gin.Engine

	mu     sync.RWMutex
	latest *Snapshot
}

// NewServer creates a new HTTP server backed by source
func NewServer(source Source) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	s := &Server{source: source, engine: engine}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start serves on addr until ctx is cancelled
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/series", s.handleSeries)
	s.engine.GET("/long-form", s.handleLongForm)
	s.engine.GET("/summary", s.handleSummary)
	s.engine.GET("/chart", s.handleChart)
	s.engine.POST("/refresh", s.handleRefresh)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// snapshot returns the cached run, loading one on first use
func (s *Server) snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap := s.latest
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.reload(ctx, false)
}

// reload loads a new run under the write lock. Unless force is set, a run
// cached by a request that held the lock first is returned as is.
func (s *Server) reload(ctx context.Context, force bool) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.latest != nil {
		return s.latest, nil
	}

	snap, err := s.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.latest = snap
	log.Printf("✓ Loaded run %s for %s (%d days)", snap.Run.ID, snap.Location, len(snap.Run.Combined))
	return snap, nil
}

// statusFor maps pipeline and render errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, render.ErrNoData),
		errors.Is(err, database.ErrNoRuns),
		errors.Is(err, database.ErrNoObservations):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrMalformedSeries):
		return http.StatusBadGateway
	}
	var be *render.BackendError
	if errors.As(err, &be) {
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) load(c *gin.Context) (*Snapshot, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	snap, err := s.snapshot(ctx)
	if err != nil {
		log.Printf("Failed to load month: %v", err)
		s.fail(c, err)
		return nil, false
	}
	return snap, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().String(),
	})
}

// handleSeries returns the combined table, optionally for one source
func (s *Server) handleSeries(c *gin.Context) {
	kind := models.SourceKind(c.Query("type"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be Historical or Forecast"})
		return
	}

	snap, ok := s.load(c)
	if !ok {
		return
	}

	series := snap.Run.Combined
	if kind != "" {
		series = make(models.CombinedSeries, 0, len(snap.Run.Combined))
		for _, o := range snap.Run.Combined {
			if o.Source == kind {
				series = append(series, o)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":   snap.Run.ID,
		"location": snap.Location,
		"period":   snap.Period,
		"count":    len(series),
		"series":   series,
	})
}

// handleLongForm returns the long-form rows, optionally for one metric
func (s *Server) handleLongForm(c *gin.Context) {
	var metric *models.Metric
	if name := c.Query("metric"); name != "" {
		m, err := models.ParseMetric(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metric = &m
	}

	snap, ok := s.load(c)
	if !ok {
		return
	}

	rows := snap.Run.LongForm
	if metric != nil {
		rows = make([]models.LongFormRow, 0, len(snap.Run.Combined))
		for _, r := range snap.Run.LongForm {
			if r.Metric == *metric {
				rows = append(rows, r)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": snap.Run.ID,
		"count":  len(rows),
		"rows":   rows,
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	snap, ok := s.load(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":   snap.Run.ID,
		"location": snap.Location,
		"period":   snap.Period,
		"summary":  summary.Summarize(snap.Run.Combined, snap.Run.LongForm),
	})
}

// handleChart returns the animated chart as JSON, or as a page with
// ?format=html. ?view=line draws the historical days as one line per metric.
func (s *Server) handleChart(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "html" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or html"})
		return
	}
	view := c.DefaultQuery("view", "bar")
	if view != "bar" && view != "line" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "view must be bar or line"})
		return
	}

	snap, ok := s.load(c)
	if !ok {
		return
	}

	fig, err := buildChart(view, snap)
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	contentType := "application/json"
	if format == "html" {
		contentType = "text/html; charset=utf-8"
		err = render.WriteHTML(&buf, fig)
	} else {
		err = render.Write(&buf, fig)
	}
	if err != nil {
		log.Printf("Failed to render chart: %v", err)
		s.fail(c, err)
		return
	}

	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func buildChart(view string, snap *Snapshot) (*render.Figure, error) {
	if view == "line" {
		rows := pipeline.RowsFor(snap.Run.LongForm, models.KindHistorical)
		return render.BuildLineFigure(render.LineTitle(snap.Location), rows)
	}
	return render.BuildFigure(render.Title(snap.Location, snap.Period), snap.Run.LongForm)
}

// handleRefresh drops the cached run and loads a new one
func (s *Server) handleRefresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	snap, err := s.reload(ctx, true)
	if err != nil {
		log.Printf("Failed to refresh month: %v", err)
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"run_id":    snap.Run.ID,
		"days":      len(snap.Run.Combined),
		"timestamp": snap.Run.BuiltAt,
	})
}
