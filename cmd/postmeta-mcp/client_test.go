package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/postmeta/models"
)

func TestClient_SubmitAndWait(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/scrape":
			var req models.ScrapeRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "https://www.facebook.com/p/1", req.URL)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(models.SubmitResponse{Status: "accepted", JobID: "j1"})
		case r.URL.Path == "/api/v1/jobs/j1":
			status := models.StatusRunning
			var result *models.Payload
			if polls.Add(1) >= 2 {
				status = models.StatusSuccess
				result = &models.Payload{JobID: "j1", Status: status, Data: &models.Record{Caption: "hi"}}
			}
			_ = json.NewEncoder(w).Encode(models.JobResponse{JobID: "j1", Status: status, Result: result})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, "secret")
	c.pollInterval = 5 * time.Millisecond

	id, err := c.submit(context.Background(), models.ScrapeRequest{URL: "https://www.facebook.com/p/1"})
	require.NoError(t, err)
	assert.Equal(t, "j1", id)

	job, err := c.wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, job.Status)
	assert.Equal(t, "hi", job.Result.Data.Caption)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: &models.ErrorDetail{Code: models.ErrCodeNotFound, Message: "job not found"}})
	}))
	defer srv.Close()

	_, err := newAPIClient(srv.URL, "").job(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

func TestClient_WaitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.JobResponse{JobID: "j", Status: models.StatusRunning})
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL, "")
	c.pollInterval = 5 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.wait(ctx, "j")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
