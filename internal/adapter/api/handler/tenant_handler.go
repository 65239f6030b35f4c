package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/domain"
	"github.com/user/rag-orchestrator/internal/usecase"
)

// TenantHandler exposes the identity-layer mutator hooks. Every mutation
// routes through TenantService so cache invalidation is wired by
// construction.
type TenantHandler struct {
	service *usecase.TenantService
	logger  *slog.Logger
}

// NewTenantHandler creates a new TenantHandler.
func NewTenantHandler(service *usecase.TenantService, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{
		service: service,
		logger:  logger.With("component", "tenant_handler"),
	}
}

type tenantRequest struct {
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Role    string     `json:"role"`
	AdminID *uuid.UUID `json:"admin_id"`
}

// parseRole validates the caller-supplied role; empty defaults to member.
func parseRole(s string) (domain.Role, error) {
	role := domain.Role(s)
	if role == "" {
		return domain.RoleMember, nil
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return "", errors.New("role must be admin or member")
	}
	return role, nil
}

// Create provisions and persists a new tenant.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	role, err := parseRole(req.Role)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	tenant, err := h.service.Create(r.Context(), usecase.CreateTenantParams{
		Name:    req.Name,
		Email:   req.Email,
		Role:    role,
		AdminID: req.AdminID,
	})
	if err != nil {
		h.writeTenantError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, tenant)
}

// Update writes profile fields and invalidates the cached context.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, err := uuid.Parse(r.PathValue("identity"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid tenant identity")
		return
	}

	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	role, err := parseRole(req.Role)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	tenant := &domain.Tenant{
		ID:      identity,
		Name:    req.Name,
		Email:   req.Email,
		Role:    role,
		AdminID: req.AdminID,
	}
	if err := h.service.UpdateProfile(r.Context(), tenant); err != nil {
		h.writeTenantError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]bool{"success": true})
}

// Delete removes a tenant and invalidates its cached context.
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := uuid.Parse(r.PathValue("identity"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid tenant identity")
		return
	}

	if err := h.service.Delete(r.Context(), identity); err != nil {
		h.writeTenantError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Resources returns the authoritative resource metadata, bypassing the
// cache.
func (h *TenantHandler) Resources(w http.ResponseWriter, r *http.Request) {
	identity, err := uuid.Parse(r.PathValue("identity"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid tenant identity")
		return
	}

	tc, err := h.service.InspectResources(r.Context(), identity)
	if err != nil {
		h.writeTenantError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, tc)
}

// EnsureResources backfills any missing resource fields on the record.
func (h *TenantHandler) EnsureResources(w http.ResponseWriter, r *http.Request) {
	identity, err := uuid.Parse(r.PathValue("identity"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid tenant identity")
		return
	}

	fields, err := h.service.EnsureResources(r.Context(), identity)
	if err != nil {
		h.writeTenantError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, fields)
}

func (h *TenantHandler) writeTenantError(w http.ResponseWriter, err error) {
	var provErr *domain.ProvisioningError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicateIdentity):
		writeError(w, h.logger, http.StatusConflict, "duplicate_identity", err.Error())
	case errors.Is(err, domain.ErrResourceIncomplete):
		writeError(w, h.logger, http.StatusPreconditionFailed, "resource_incomplete", err.Error())
	case errors.As(err, &provErr):
		writeError(w, h.logger, http.StatusUnprocessableEntity, "provisioning_failed", provErr.Error())
	default:
		h.logger.Error("tenant operation failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
	}
}
