package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/pagecrawl/models"
)

// client talks to the pagecrawl HTTP API.
type client struct {
	http   *http.Client
	apiURL string
	apiKey string
}

func newClient(apiURL, apiKey string) *client {
	return &client{
		http:   &http.Client{Timeout: 120 * time.Second},
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
	}
}

// do sends a request and decodes a 2xx body into out. Other statuses are
// returned as the API's error detail.
func (c *client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp models.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			return fmt.Errorf("[%s] %s", errResp.Error.Code, errResp.Error.Message)
		}
		return fmt.Errorf("API returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func handleParsePage(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		q := url.Values{"url": {target}}
		if u := request.GetString("username", ""); u != "" {
			q.Set("username", u)
		}
		if p := request.GetString("password", ""); p != "" {
			q.Set("password", p)
		}

		var res models.ParseResult
		if err := c.do(ctx, http.MethodGet, "/parse?"+q.Encode(), nil, &res); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.ErrorMessage != "" {
			return mcp.NewToolResultError(fmt.Sprintf("parse failed: %s", res.ErrorMessage)), nil
		}
		return mcp.NewToolResultText(formatResult(target, &res)), nil
	}
}

func handleCreateJob(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		var job models.ParseJob
		if err := c.do(ctx, http.MethodPost, "/jobs", models.JobRequest{URL: target}, &job); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatJob(job)), nil
	}
}

func handleGetJob(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		var job models.ParseJob
		if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &job); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatJob(job)), nil
	}
}

func handleListJobs(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var list []models.ParseJob
		if err := c.do(ctx, http.MethodGet, "/jobs", nil, &list); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(list) == 0 {
			return mcp.NewToolResultText("No jobs."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d jobs:\n\n", len(list))
		for _, job := range list {
			sb.WriteString(formatJob(job))
			sb.WriteString("\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func formatResult(target string, res *models.ParseResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\nPage type: %s\nElements: %d (%d ms, %d bytes)\n\n",
		target, res.PageType, res.ElementsCount, res.ElapsedTime, res.NetworkTraffic)
	for _, el := range res.Elements {
		fmt.Fprintf(&sb, "[%s] %s\n", el.TagName, el.Text)
	}
	return sb.String()
}

func formatJob(job models.ParseJob) string {
	created := time.UnixMilli(job.CreatedAt).UTC().Format(time.RFC3339)
	line := fmt.Sprintf("Job %s: %s (%s, created %s)", job.ID, job.Status, job.URL, created)
	if job.Error != nil {
		line += "\nError: " + *job.Error
	}
	if job.Result != nil {
		line += "\n" + formatResult(job.URL, job.Result)
	}
	return line
}
