// Package api exposes the page parser and job registry over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/api/handler"
	"github.com/use-agent/pagecrawl/api/middleware"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/config"
	"github.com/use-agent/pagecrawl/sites"
)

// Deps are the collaborators the routes call into.
type Deps struct {
	Parser    handler.PageParser
	Jobs      handler.JobStore
	Responses *cache.Responses
	Sessions  *cache.Sessions
	Table     sites.Table
	JobCount  handler.Counter
	Browser   handler.BrowserStatus
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit (if enabled)
//
// Status and health stay outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/", handler.Status())
	r.GET("/health", handler.Health(d.Browser, d.Sessions, d.JobCount, cfg.Jobs.MaxJobsQueue, d.StartTime))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	if cfg.RateLimit.Enabled {
		protected.Use(middleware.RateLimit(cfg.RateLimit))
	}

	// Parse
	protected.GET("/parse", handler.Parse(d.Parser, d.Responses))
	protected.POST("/parse/html", handler.ParseHTML(d.Parser))

	// Jobs
	protected.POST("/jobs", handler.CreateJob(d.Jobs))
	protected.GET("/jobs", handler.ListJobs(d.Jobs))
	protected.GET("/jobs/:id", handler.GetJob(d.Jobs))

	// Caches
	protected.GET("/sessions", handler.ListSessions(d.Sessions))
	protected.DELETE("/sessions/:type", handler.ForgetSession(d.Sessions, d.Table))
	protected.DELETE("/cache/responses", handler.PurgeResponses(d.Responses))

	return r
}
