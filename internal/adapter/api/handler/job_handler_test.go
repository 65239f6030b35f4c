package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/domain"
	"github.com/user/rag-orchestrator/internal/usecase"
)

type mockDispatcher struct {
	DispatchFunc func(ctx context.Context, identity uuid.UUID, kind domain.JobKind, cfg domain.JobConfig) (*usecase.JobDispatchResult, error)
	lastIdentity uuid.UUID
	lastKind     domain.JobKind
	lastConfig   domain.JobConfig
	calls        int
}

func (m *mockDispatcher) Dispatch(ctx context.Context, identity uuid.UUID, kind domain.JobKind, cfg domain.JobConfig) (*usecase.JobDispatchResult, error) {
	m.calls++
	m.lastIdentity = identity
	m.lastKind = kind
	m.lastConfig = cfg
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, identity, kind, cfg)
	}
	return &usecase.JobDispatchResult{
		Result: &domain.JobResult{
			JobID:      "scrape-acme_7f3a-a1b2c3d4",
			Kind:       kind,
			ResourceID: "acme_7f3a",
			Success:    true,
			Summary:    domain.JobSummary{"pagesCrawled": float64(40)},
		},
		Signal:         domain.SignalResult{Success: true, DocumentCount: 1287},
		CacheRefreshed: true,
	}, nil
}

func newDispatchRequest(t *testing.T, identity, kind, body string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/tenants/"+identity+"/jobs/"+kind, reader)
	req.SetPathValue("identity", identity)
	req.SetPathValue("kind", kind)
	return req
}

func TestJobHandler_Dispatch(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Successful Dispatch Returns Combined Result", func(t *testing.T) {
		dispatcher := &mockDispatcher{}
		h := NewJobHandler(dispatcher, logger)

		identity := uuid.New()
		req := newDispatchRequest(t, identity.String(), "scrape", `{"seed_url": "https://acme.example/docs", "max_depth": 2}`)
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if dispatcher.lastIdentity != identity {
			t.Errorf("expected identity %s, got %s", identity, dispatcher.lastIdentity)
		}
		if dispatcher.lastKind != domain.JobScrape {
			t.Errorf("expected scrape kind, got %s", dispatcher.lastKind)
		}
		if dispatcher.lastConfig.MaxDepth != 2 {
			t.Errorf("expected max depth 2, got %d", dispatcher.lastConfig.MaxDepth)
		}

		var resp dispatchResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.Success || !resp.CacheRefreshed {
			t.Errorf("unexpected response flags %+v", resp)
		}
		if resp.JobID != "scrape-acme_7f3a-a1b2c3d4" {
			t.Errorf("unexpected job id %q", resp.JobID)
		}
		if resp.Signal.DocumentCount != 1287 {
			t.Errorf("unexpected signal %+v", resp.Signal)
		}
	})

	t.Run("String Booleans And Integers Are Accepted", func(t *testing.T) {
		dispatcher := &mockDispatcher{}
		h := NewJobHandler(dispatcher, logger)

		body := `{
			"seed_url": "https://acme.example",
			"max_depth": "3",
			"max_links_per_page": "25",
			"respect_robots": "yes",
			"aggressive_discovery": "false"
		}`
		req := newDispatchRequest(t, uuid.NewString(), "scrape", body)
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		cfg := dispatcher.lastConfig
		if cfg.MaxDepth != 3 || cfg.MaxLinksPerPage != 25 {
			t.Errorf("expected parsed integers, got %+v", cfg)
		}
		if !cfg.RespectRobots || cfg.AggressiveDiscovery {
			t.Errorf("expected parsed booleans, got %+v", cfg)
		}
	})

	t.Run("Update Accepts An Empty Body", func(t *testing.T) {
		dispatcher := &mockDispatcher{}
		h := NewJobHandler(dispatcher, logger)

		req := newDispatchRequest(t, uuid.NewString(), "update", "")
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if dispatcher.lastKind != domain.JobUpdate {
			t.Errorf("expected update kind, got %s", dispatcher.lastKind)
		}
	})

	t.Run("Client Disconnect Does Not Cancel The Job", func(t *testing.T) {
		reqCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dispatcher := &mockDispatcher{
			DispatchFunc: func(ctx context.Context, identity uuid.UUID, kind domain.JobKind, cfg domain.JobConfig) (*usecase.JobDispatchResult, error) {
				// The connection drops while the job is running.
				cancel()
				select {
				case <-ctx.Done():
					t.Error("dispatch context was cancelled by the client disconnect")
				default:
				}
				return &usecase.JobDispatchResult{
					Result: &domain.JobResult{JobID: "scrape-acme_7f3a-a1b2c3d4", Success: true},
					Signal: domain.SignalResult{Success: true},
				}, nil
			},
		}
		h := NewJobHandler(dispatcher, logger)

		req := newDispatchRequest(t, uuid.NewString(), "scrape", `{"seed_url": "https://acme.example"}`).WithContext(reqCtx)
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("Scrape Requires A Seed URL", func(t *testing.T) {
		dispatcher := &mockDispatcher{}
		h := NewJobHandler(dispatcher, logger)

		req := newDispatchRequest(t, uuid.NewString(), "scrape", `{}`)
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if dispatcher.calls != 0 {
			t.Error("dispatcher must not be invoked for an invalid request")
		}
	})

	t.Run("Invalid Identity Is Rejected", func(t *testing.T) {
		h := NewJobHandler(&mockDispatcher{}, logger)

		req := newDispatchRequest(t, "not-a-uuid", "scrape", `{"seed_url": "https://acme.example"}`)
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("Unknown Kind Is Rejected", func(t *testing.T) {
		h := NewJobHandler(&mockDispatcher{}, logger)

		req := newDispatchRequest(t, uuid.NewString(), "reindex", `{"seed_url": "https://acme.example"}`)
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("Error Mapping", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			wantCode int
			wantTag  string
		}{
			{"Unknown Tenant", domain.ErrNotFound, http.StatusNotFound, "not_found"},
			{"Unprovisioned Tenant", domain.ErrResourceIncomplete, http.StatusPreconditionFailed, "resource_incomplete"},
			{
				"Process Failure",
				&domain.JobExecutionError{
					Result: &domain.JobResult{Stderr: "boom", Summary: domain.JobSummary{"pagesCrawled": float64(7)}},
					Err:    errors.New("exit status 3"),
				},
				http.StatusBadGateway,
				"job_failed",
			},
			{"Unexpected Failure", errors.New("pg down"), http.StatusInternalServerError, "internal"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				dispatcher := &mockDispatcher{
					DispatchFunc: func(ctx context.Context, identity uuid.UUID, kind domain.JobKind, cfg domain.JobConfig) (*usecase.JobDispatchResult, error) {
						return nil, tt.err
					},
				}
				h := NewJobHandler(dispatcher, logger)

				req := newDispatchRequest(t, uuid.NewString(), "scrape", `{"seed_url": "https://acme.example"}`)
				rr := httptest.NewRecorder()

				h.Dispatch(rr, req)

				if rr.Code != tt.wantCode {
					t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
				}
				var resp errorResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode error response: %v", err)
				}
				if resp.Code != tt.wantTag {
					t.Errorf("expected code %q, got %q", tt.wantTag, resp.Code)
				}
				if resp.Success {
					t.Error("error responses must not claim success")
				}
			})
		}
	})

	t.Run("Process Failure Carries Partial Summary", func(t *testing.T) {
		dispatcher := &mockDispatcher{
			DispatchFunc: func(ctx context.Context, identity uuid.UUID, kind domain.JobKind, cfg domain.JobConfig) (*usecase.JobDispatchResult, error) {
				return nil, &domain.JobExecutionError{
					Result: &domain.JobResult{Summary: domain.JobSummary{"pagesCrawled": float64(7)}},
					Err:    errors.New("exit status 3"),
				}
			},
		}
		h := NewJobHandler(dispatcher, logger)

		req := newDispatchRequest(t, uuid.NewString(), "update", "")
		rr := httptest.NewRecorder()

		h.Dispatch(rr, req)

		var resp errorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}
		if resp.Summary["pagesCrawled"] != float64(7) {
			t.Errorf("expected partial summary in the error body, got %v", resp.Summary)
		}
	})
}
