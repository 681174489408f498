// Package api exposes the query layer over HTTP. It maps parameter errors
// to 400 and store failures to 500; every failure body is {"error": "..."}
// so the dashboard can surface it uniformly.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/okravets/border-queue-server/internal/cache"
	"github.com/okravets/border-queue-server/internal/stats"
	"github.com/okravets/border-queue-server/internal/store"
)

// Server holds the API's collaborators. latest may be nil, in which case
// /api/latest always reads the database view directly.
type Server struct {
	store  store.Store
	stats  *stats.Service
	latest *cache.LatestCache
}

// NewServer creates a new API server
func NewServer(st store.Store, statsService *stats.Service, latest *cache.LatestCache) *Server {
	return &Server{store: st, stats: statsService, latest: latest}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")
	api.GET("/checkpoints", s.handleCheckpoints)
	api.GET("/checkpoint/:id/day/:date", s.handleCheckpointDay)
	api.GET("/checkpoint/:id/heatmap", s.handleCheckpointHeatmap)
	api.GET("/latest", s.handleLatest)
	api.GET("/countries", s.handleCountries)

	return r
}

func (s *Server) handleCheckpoints(c *gin.Context) {
	checkpoints, err := s.store.ListCheckpoints(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if checkpoints == nil {
		checkpoints = []store.Checkpoint{}
	}
	c.JSON(http.StatusOK, checkpoints)
}

func (s *Server) handleCheckpointDay(c *gin.Context) {
	checkpointID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkpoint id must be an integer"})
		return
	}

	tzOffset, err := tzOffsetParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	compare := c.Query("compare") == "1" || c.Query("compare") == "true"

	data, err := s.stats.DayMeasurements(c.Request.Context(), checkpointID, c.Param("date"), tzOffset, compare)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, stats.ErrBadDate) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, data)
}

func (s *Server) handleCheckpointHeatmap(c *gin.Context) {
	checkpointID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkpoint id must be an integer"})
		return
	}

	tzOffset, err := tzOffsetParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cells, err := s.stats.Heatmap(c.Request.Context(), checkpointID, tzOffset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cells)
}

func (s *Server) handleLatest(c *gin.Context) {
	ctx := c.Request.Context()

	if s.latest != nil {
		if statuses, err := s.latest.GetAll(ctx); err == nil && len(statuses) > 0 {
			c.JSON(http.StatusOK, statuses)
			return
		}
	}

	statuses, err := s.store.LatestStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if statuses == nil {
		statuses = []store.LatestQueueStatus{}
	}

	if s.latest != nil {
		// Best effort: a cache write failure must not fail the read
		_ = s.latest.SetAll(ctx, statuses)
	}

	c.JSON(http.StatusOK, statuses)
}

func (s *Server) handleCountries(c *gin.Context) {
	countries, err := s.store.ListCountries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if countries == nil {
		countries = []store.Country{}
	}
	c.JSON(http.StatusOK, countries)
}

var errBadTZOffset = errors.New("tz_offset must be an integer number of minutes")

func tzOffsetParam(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("tz_offset", "0")
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadTZOffset
	}
	return offset, nil
}
