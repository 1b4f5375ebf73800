package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/postmeta/models"
)

func main() {
	apiURL := os.Getenv("POSTMETA_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	client := newAPIClient(apiURL, os.Getenv("POSTMETA_API_KEY"))

	s := server.NewMCPServer(
		"postmeta",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapePostTool := mcp.NewTool("scrape_post",
		mcp.WithDescription("Extract engagement data (reactions, comments, shares, views, caption, author, media) from a public social media post. Submits a job and waits for the result."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the post"),
		),
		mcp.WithNumber("extra_wait_seconds",
			mcp.Description("Extra seconds to wait before extraction (default: 0)"),
		),
		mcp.WithBoolean("debug_raw",
			mcp.Description("Attach truncated raw HTML and body text to the result"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("How long to wait for the job to finish (default: 300)"),
		),
	)
	s.AddTool(scrapePostTool, handleScrapePost(client))

	getJobTool := mcp.NewTool("get_job",
		mcp.WithDescription("Return the current status of a scrape job and its result once finished."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by scrape_post or the HTTP API"),
		),
	)
	s.AddTool(getJobTool, handleGetJob(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapePost(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		timeout := time.Duration(request.GetFloat("timeout_seconds", 300) * float64(time.Second))

		id, err := client.submit(ctx, models.ScrapeRequest{
			URL:              url,
			DebugRaw:         request.GetBool("debug_raw", false),
			ExtraWaitSeconds: request.GetFloat("extra_wait_seconds", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("submit failed: %v", err)), nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		job, err := client.wait(waitCtx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("job %s did not finish: %v (use get_job to check later)", id, err)), nil
		}
		return jobResult(job)
	}
}

func handleGetJob(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("job_id")
		if err != nil {
			return mcp.NewToolResultError("job_id is required"), nil
		}
		job, err := client.job(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jobResult(job)
	}
}

func jobResult(job *models.JobResponse) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode job: %v", err)), nil
	}
	if job.Result != nil && job.Result.Error != nil {
		return mcp.NewToolResultError(string(out)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
