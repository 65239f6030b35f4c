package api

import (
	"log/slog"
	"net/http"

	"github.com/user/rag-orchestrator/internal/adapter/api/handler"
	"github.com/user/rag-orchestrator/internal/adapter/api/middleware"
	"github.com/user/rag-orchestrator/internal/pkg/config"
)

// NewRouter creates and configures the main HTTP router.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	tenantHandler *handler.TenantHandler,
	jobHandler *handler.JobHandler,
) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.Auth(cfg.ServiceToken, logger)
	dispatchLimit := middleware.PerTenantRateLimit(cfg.DispatchRatePerMinute, logger)

	mux.Handle("POST /tenants", auth(http.HandlerFunc(tenantHandler.Create)))
	mux.Handle("PUT /tenants/{identity}", auth(http.HandlerFunc(tenantHandler.Update)))
	mux.Handle("DELETE /tenants/{identity}", auth(http.HandlerFunc(tenantHandler.Delete)))
	mux.Handle("GET /tenants/{identity}/resources", auth(http.HandlerFunc(tenantHandler.Resources)))
	mux.Handle("POST /tenants/{identity}/resources/ensure", auth(http.HandlerFunc(tenantHandler.EnsureResources)))
	mux.Handle("POST /tenants/{identity}/jobs/{kind}", auth(dispatchLimit(http.HandlerFunc(jobHandler.Dispatch))))

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}
