package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"settleup/internal/auth"
	"settleup/internal/middleware"
	"settleup/internal/services"
	"settleup/internal/validator"
	"settleup/internal/ws"

	"github.com/go-chi/chi/v5"
)

func callerFromContext(r *http.Request) (services.Caller, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return services.Caller{}, false
	}
	return services.Caller{ID: identity.UserID, Username: identity.Username}, true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, services.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "unauthorized")
	case errors.Is(err, services.ErrInvalidTransaction):
		respondError(w, http.StatusBadRequest, "invalid_transaction")
	case errors.Is(err, services.ErrAlreadyDeleted):
		respondError(w, http.StatusConflict, "transaction_already_deleted")
	case errors.Is(err, services.ErrInvalidCode):
		respondError(w, http.StatusNotFound, "invalid_join_code")
	case errors.Is(err, services.ErrCodeExpired):
		respondError(w, http.StatusBadRequest, "join_code_expired")
	case errors.Is(err, services.ErrAlreadyMember):
		respondError(w, http.StatusConflict, "already_a_member")
	case errors.Is(err, services.ErrBalanceOutstanding):
		respondError(w, http.StatusConflict, "balance_outstanding")
	case errors.Is(err, services.ErrConcurrentModification):
		respondError(w, http.StatusConflict, "concurrent_modification")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

type createGroupRequest struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateGroupName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	group, err := h.groups.Create(r.Context(), caller, req.Name, req.Picture)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	group, err := h.groups.Get(r.Context(), chi.URLParam(r, "groupID"), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groups, err := h.groups.List(r.Context(), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

type joinGroupRequest struct {
	JoinCode string `json:"join_code"`
}

func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req joinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateJoinCode(req.JoinCode); err != nil {
		respondError(w, http.StatusNotFound, "invalid_join_code")
		return
	}
	group, err := h.groups.JoinByCode(r.Context(), req.JoinCode, caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *Handler) GenerateJoinCode(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	code, expiry, err := h.groups.GenerateJoinCode(r.Context(), chi.URLParam(r, "groupID"), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"join_code":        code,
		"join_code_expiry": expiry,
	})
}

func (h *Handler) ExitGroup(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.groups.Exit(r.Context(), chi.URLParam(r, "groupID"), caller); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	force := r.URL.Query().Get("force") == "true"
	err := h.groups.RemoveMember(r.Context(), chi.URLParam(r, "groupID"), caller, chi.URLParam(r, "userID"), force)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 50)
	logs, err := h.groups.Logs(r.Context(), chi.URLParam(r, "groupID"), caller, limit, (page-1)*limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handler) ListPastMembers(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	past, err := h.groups.PastMembers(r.Context(), chi.URLParam(r, "groupID"), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"past_members": past})
}

func (h *Handler) SelfCheck(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	checks, err := h.groups.SelfCheck(r.Context(), chi.URLParam(r, "groupID"), caller)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"balances": checks})
}

// WSGroup subscribes an authenticated group member to the group's event
// stream. The token may come as a query parameter since browsers cannot set
// headers on websocket requests.
func (h *Handler) WSGroup(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	groupID := chi.URLParam(r, "groupID")
	if _, err := h.memberships.GetMember(r.Context(), groupID, claims.UserID); err != nil {
		respondError(w, http.StatusForbidden, "not a group member")
		return
	}
	ws.ServeWS(w, r, h.hub, groupID)
}
