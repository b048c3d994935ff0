package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/pagecrawl/models"
)

// CLI flags
var (
	apiURL  = flag.String("api-url", "http://localhost:3000", "pagecrawl API base URL")
	apiKey  = flag.String("api-key", "", "API key for authenticated requests")
	runs    = flag.Int("runs", 3, "Number of runs per URL")
	timeout = flag.Duration("timeout", 90*time.Second, "Per-request timeout")
	output  = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering the probe-classified page types and the generic fallback.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Generic", "https://example.com"},
	{"Substack", "https://www.noahpinion.blog/p/the-age-of-the-anti-startup"},
	{"Ghost", "https://ghost.org/changelog/"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Benchmark result types ---

type runResult struct {
	Run            int    `json:"run"`
	LatencyMs      int64  `json:"latency_ms"`
	ElapsedMs      int64  `json:"elapsed_ms"`
	NetworkTraffic int64  `json:"network_traffic"`
	PageType       string `json:"page_type"`
	Elements       int    `json:"elements"`
	Cached         bool   `json:"cached"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

type urlAverages struct {
	LatencyMs      float64 `json:"latency_ms"`
	ElapsedMs      float64 `json:"elapsed_ms"`
	NetworkTraffic float64 `json:"network_traffic"`
	Elements       float64 `json:"elements"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== pagecrawl Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	client := &http.Client{Timeout: *timeout}

	// Quick connectivity check.
	if err := checkAPI(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure pagecrawl is running (go run ./cmd/pagecrawl)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		var prev int64
		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr, stamp := benchmarkURL(client, t.URL, i)
			// The response cache hands back the same record, timestamp included.
			rr.Cached = i > 1 && stamp != 0 && stamp == prev
			prev = stamp

			switch {
			case !rr.Success:
				fmt.Printf("FAILED: %s\n", rr.Error)
			case rr.Cached:
				fmt.Printf("OK  %dms  (cached)\n", rr.LatencyMs)
			default:
				fmt.Printf("OK  %dms  %s  %d elements\n", rr.LatencyMs, rr.PageType, rr.Elements)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

// benchmarkURL runs one GET /parse and returns the run plus the result's
// timestamp, which identifies repeated cache hits.
func benchmarkURL(client *http.Client, target string, run int) (runResult, int64) {
	rr := runResult{Run: run}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet,
		*apiURL+"/parse?url="+url.QueryEscape(target), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr, 0
	}
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr, 0
	}
	defer resp.Body.Close()
	rr.LatencyMs = time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		var er models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != nil {
			rr.Error = fmt.Sprintf("[%s] %s", er.Error.Code, er.Error.Message)
		} else {
			rr.Error = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return rr, 0
	}

	var pr models.ParseResult
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr, 0
	}

	rr.ElapsedMs = pr.ElapsedTime
	rr.NetworkTraffic = pr.NetworkTraffic
	rr.PageType = pr.PageType
	rr.Elements = pr.ElementsCount
	rr.Success = pr.ErrorMessage == ""
	rr.Error = pr.ErrorMessage
	return rr, pr.Timestamp
}

// computeAverages averages the successful, uncached runs.
func computeAverages(runs []runResult) *urlAverages {
	var n int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success || r.Cached {
			continue
		}
		n++
		avg.LatencyMs += float64(r.LatencyMs)
		avg.ElapsedMs += float64(r.ElapsedMs)
		avg.NetworkTraffic += float64(r.NetworkTraffic)
		avg.Elements += float64(r.Elements)
	}

	if n == 0 {
		return nil
	}

	f := float64(n)
	avg.LatencyMs /= f
	avg.ElapsedMs /= f
	avg.NetworkTraffic /= f
	avg.Elements /= f
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tTraffic\tElements\tPage Type\n")
	fmt.Fprintf(w, "───\t───────────\t───────\t────────\t─────────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%s\t%d\t%s\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.LatencyMs),
			formatBytes(int64(r.Averages.NetworkTraffic)),
			int(r.Averages.Elements),
			dominantType(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func dominantType(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.PageType]++
		}
	}
	best, bestCount := "-", 0
	for pt, count := range counts {
		if count > bestCount {
			best = pt
			bestCount = count
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
