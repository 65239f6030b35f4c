package signaler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/rag-orchestrator/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func contextFor(endpoint string) domain.TenantContext {
	return domain.TenantContext{
		ResourceFields: domain.ResourceFields{
			ResourceID:   "acme_7f3a",
			DataStoreURI: "sqlite:////data/stores/acme_7f3a.db",
			IndexPath:    "/stores/acme_7f3a",
			BotEndpoint:  endpoint,
		},
	}
}

func TestBotSignaler_Notify(t *testing.T) {
	t.Run("Delivers Signal With Tenant Details", func(t *testing.T) {
		var gotReq *http.Request
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReq = r.Clone(context.Background())
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status": "success", "message": "index marked stale", "documentCount": 1287}`))
		}))
		defer srv.Close()

		s := NewBotSignaler(5*time.Second, "secret-token", testLogger())
		res := s.Notify(context.Background(), contextFor(srv.URL+"/bots/acme_7f3a"))

		if !res.Success {
			t.Fatalf("expected success, got error %q", res.Error)
		}
		if res.DocumentCount != 1287 {
			t.Errorf("expected document count 1287, got %d", res.DocumentCount)
		}
		if res.Message != "index marked stale" {
			t.Errorf("unexpected message %q", res.Message)
		}

		if gotReq.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", gotReq.Method)
		}
		if gotReq.URL.Path != "/bots/acme_7f3a/mark-data-updated" {
			t.Errorf("unexpected path %q", gotReq.URL.Path)
		}
		if gotReq.Header.Get(ServiceTokenHeader) != "secret-token" {
			t.Error("expected the service token header")
		}

		q := gotReq.URL.Query()
		if q.Get("resource_id") != "acme_7f3a" {
			t.Errorf("unexpected resource_id %q", q.Get("resource_id"))
		}
		if q.Get("vector_store_path") != "/stores/acme_7f3a" {
			t.Errorf("unexpected vector_store_path %q", q.Get("vector_store_path"))
		}
		if q.Get("database_uri") != "sqlite:////data/stores/acme_7f3a.db" {
			t.Errorf("unexpected database_uri %q", q.Get("database_uri"))
		}
	})

	t.Run("Non-200 Status Is A Soft Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		s := NewBotSignaler(5*time.Second, "secret-token", testLogger())
		res := s.Notify(context.Background(), contextFor(srv.URL))

		if res.Success {
			t.Fatal("expected failure")
		}
		if res.Error == "" {
			t.Error("expected an error description")
		}
	})

	t.Run("Application-Level Failure Status Is Reported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": "error", "message": "index is locked"}`))
		}))
		defer srv.Close()

		s := NewBotSignaler(5*time.Second, "secret-token", testLogger())
		res := s.Notify(context.Background(), contextFor(srv.URL))

		if res.Success {
			t.Fatal("expected failure")
		}
	})

	t.Run("Malformed Body Is A Soft Failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		s := NewBotSignaler(5*time.Second, "secret-token", testLogger())
		res := s.Notify(context.Background(), contextFor(srv.URL))

		if res.Success {
			t.Fatal("expected failure")
		}
	})

	t.Run("Unreachable Endpoint Never Panics", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		s := NewBotSignaler(time.Second, "secret-token", testLogger())
		res := s.Notify(context.Background(), contextFor(srv.URL))

		if res.Success {
			t.Fatal("expected failure for a closed endpoint")
		}
	})

	t.Run("Slow Endpoint Hits The Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte(`{"status": "success"}`))
		}))
		defer srv.Close()

		s := NewBotSignaler(50*time.Millisecond, "secret-token", testLogger())
		res := s.Notify(context.Background(), contextFor(srv.URL))

		if res.Success {
			t.Fatal("expected the timeout to abort the signal")
		}
	})
}
