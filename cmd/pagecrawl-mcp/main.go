package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("PAGECRAWL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	c := newClient(apiURL, os.Getenv("PAGECRAWL_API_KEY"))

	s := server.NewMCPServer(
		"pagecrawl",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	parsePageTool := mcp.NewTool("parse_page",
		mcp.WithDescription("Load a web page in a headless browser, detect the publishing platform (Substack, Ghost, Notion, Tilda, X, FT, weather.com or a generic page) and return its text elements in document order."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to parse"),
		),
		mcp.WithString("username",
			mcp.Description("Login for sites that require signing in (X/Twitter). Falls back to the server's configured account."),
		),
		mcp.WithString("password",
			mcp.Description("Password for sites that require signing in"),
		),
	)
	s.AddTool(parsePageTool, handleParsePage(c))

	createJobTool := mcp.NewTool("create_job",
		mcp.WithDescription("Register a parse job for a URL and return its job record. Poll it with get_job."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to parse"),
		),
	)
	s.AddTool(createJobTool, handleCreateJob(c))

	getJobTool := mcp.NewTool("get_job",
		mcp.WithDescription("Fetch a parse job record by id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The 10-character job id returned by create_job"),
		),
	)
	s.AddTool(getJobTool, handleGetJob(c))

	listJobsTool := mcp.NewTool("list_jobs",
		mcp.WithDescription("List every live parse job, oldest first."),
	)
	s.AddTool(listJobsTool, handleListJobs(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
