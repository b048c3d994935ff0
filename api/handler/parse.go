package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/models"
)

// PageParser fetches or parses a page into a result. Implementations never
// fail; errors travel inside the result.
type PageParser interface {
	GetPageData(ctx context.Context, req models.ParseRequest) *models.ParseResult
	ParseHTML(ctx context.Context, rawURL, html string) *models.ParseResult
}

// Parse returns a handler for GET /parse?url=&username=&password=.
//
// Flow:
//  1. Validate the url query parameter.
//  2. Serve a cached result when one is fresh (never for password requests).
//  3. Fetch, remember successful results, answer 200 even on fetch errors.
func Parse(p PageParser, responses *cache.Responses) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Validate ─────────────────────────────────────────────
		if msg := checkURL(c.Query("url")); msg != "" {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, msg)
			return
		}
		var req models.ParseRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}

		// ── 2. Cache ────────────────────────────────────────────────
		if responses != nil {
			if cached, hit := responses.Lookup(req); hit {
				slog.Debug("parse cache hit", "url", req.URL)
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Fetch ────────────────────────────────────────────────
		res := p.GetPageData(c.Request.Context(), req)
		if responses != nil {
			responses.Remember(req, res)
		}
		c.JSON(http.StatusOK, res)
	}
}

// ParseHTML returns a handler for POST /parse/html.
func ParseHTML(p PageParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ParseHTMLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		if msg := checkURL(req.URL); msg != "" {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, msg)
			return
		}
		c.JSON(http.StatusOK, p.ParseHTML(c.Request.Context(), req.URL, req.HTML))
	}
}

// checkURL returns the client-facing complaint about rawURL, or "".
func checkURL(rawURL string) string {
	switch {
	case rawURL == "":
		return "Url is missing"
	case !strings.Contains(rawURL, "http"):
		return "Wrong url"
	default:
		return ""
	}
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, models.NewErrorResponse(code, msg))
}
