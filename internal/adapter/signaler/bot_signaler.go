package signaler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/rag-orchestrator/internal/domain"
)

// ServiceTokenHeader carries the shared-service credential on requests to
// collaborating services.
const ServiceTokenHeader = "X-Service-Token"

// BotSignaler implements domain.IndexSignaler over HTTP. It asks the
// tenant's bot service to mark its in-memory index dirty so the next chat
// turn reloads it lazily; it never requests a synchronous full reload.
//
// Every failure mode is absorbed into the returned SignalResult. The method
// has no error return on purpose: a bot-service outage must not fail the
// job that triggered the signal.
type BotSignaler struct {
	client *http.Client
	token  string
	logger *slog.Logger
}

// NewBotSignaler creates a BotSignaler with a hard request timeout.
func NewBotSignaler(timeout time.Duration, serviceToken string, logger *slog.Logger) *BotSignaler {
	return &BotSignaler{
		client: &http.Client{Timeout: timeout},
		token:  serviceToken,
		logger: logger.With("component", "bot_signaler"),
	}
}

type markDataUpdatedResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	DocumentCount int    `json:"documentCount"`
}

// Notify sends the stale-index notification for the tenant.
func (s *BotSignaler) Notify(ctx context.Context, tc domain.TenantContext) domain.SignalResult {
	query := url.Values{
		"resource_id":       {tc.ResourceID},
		"vector_store_path": {tc.IndexPath},
		"database_uri":      {tc.DataStoreURI},
	}
	endpoint := strings.TrimRight(tc.BotEndpoint, "/") + "/mark-data-updated?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return s.failure(tc, fmt.Sprintf("failed to build request: %v", err))
	}
	req.Header.Set(ServiceTokenHeader, s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.failure(tc, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return s.failure(tc, fmt.Sprintf("bot service returned status %d", resp.StatusCode))
	}

	var body markDataUpdatedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return s.failure(tc, fmt.Sprintf("failed to decode response: %v", err))
	}

	if body.Status != "success" {
		return s.failure(tc, fmt.Sprintf("bot service reported status %q: %s", body.Status, body.Message))
	}

	s.logger.Info("stale-index signal delivered", "resource_id", tc.ResourceID, "document_count", body.DocumentCount)
	return domain.SignalResult{
		Success:       true,
		Message:       body.Message,
		DocumentCount: body.DocumentCount,
	}
}

func (s *BotSignaler) failure(tc domain.TenantContext, reason string) domain.SignalResult {
	s.logger.Warn("stale-index signal failed", "resource_id", tc.ResourceID, "error", reason)
	return domain.SignalResult{Success: false, Error: reason}
}
