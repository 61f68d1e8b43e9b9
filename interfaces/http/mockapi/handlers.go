package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// requireAuth rejects requests without a live bearer token and stashes the
// resolved user on the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		user, ok := s.state.UserForToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		ctx = context.WithValue(ctx, tokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	token, ok := s.state.Authenticate(email, password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(userContextKey).(User)
	writeJSON(w, http.StatusOK, userPayload(user))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(userContextKey).(User)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "active",
		"user":   userPayload(user),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Context().Value(tokenContextKey).(string)
	s.state.Revoke(token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	items := make([]map[string]any, 0, len(s.state.companies))
	for _, c := range s.state.companies {
		items = append(items, companyPayload(c))
	}
	s.state.mu.Unlock()

	writePage(w, r, items)
}

type trackRequest struct {
	CompanyName string   `json:"company_name" validate:"required"`
	Domain      string   `json:"domain" validate:"omitempty,hostname_rfc1123"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleTrackCompany(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "company_name is required")
		return
	}

	s.state.mu.Lock()
	if len(s.state.companies) >= s.state.plan.TrackingLimit {
		s.state.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "tracking limit reached")
		return
	}
	company := Company{
		ID:            "c-" + uuid.NewString(),
		Name:          req.CompanyName,
		Domain:        req.Domain,
		Frequency:     "weekly",
		Tags:          req.Tags,
		LastUpdatedAt: time.Now().UTC(),
	}
	s.state.companies = append(s.state.companies, company)
	s.state.mu.Unlock()

	writeJSON(w, http.StatusCreated, companyPayload(company))
}

type patchRequest struct {
	IsPriority      *bool    `json:"is_priority"`
	UpdateFrequency *string  `json:"update_frequency" validate:"omitempty,oneof=daily weekly monthly"`
	Tags            []string `json:"tags"`
}

func (s *Server) handlePatchCompany(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "update_frequency must be daily, weekly or monthly")
		return
	}

	id := chi.URLParam(r, "companyID")
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for i := range s.state.companies {
		if s.state.companies[i].ID != id {
			continue
		}
		if req.IsPriority != nil {
			s.state.companies[i].IsPriority = *req.IsPriority
		}
		if req.UpdateFrequency != nil {
			s.state.companies[i].Frequency = *req.UpdateFrequency
		}
		if req.Tags != nil {
			s.state.companies[i].Tags = req.Tags
		}
		writeJSON(w, http.StatusOK, companyPayload(s.state.companies[i]))
		return
	}
	writeError(w, http.StatusNotFound, "company is not tracked")
}

func (s *Server) handleUntrackCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "companyID")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for i := range s.state.companies {
		if s.state.companies[i].ID == id {
			s.state.companies = append(s.state.companies[:i], s.state.companies[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "company is not tracked")
}

func (s *Server) handleListUpdates(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	updates := make([]Update, len(s.state.updates))
	copy(updates, s.state.updates)
	s.state.mu.Unlock()

	sort.Slice(updates, func(i, j int) bool {
		return updates[i].DetectedAt.After(updates[j].DetectedAt)
	})
	items := make([]map[string]any, 0, len(updates))
	for _, u := range updates {
		items = append(items, updatePayload(u))
	}
	writePage(w, r, items)
}

type markReadRequest struct {
	UpdateIDs []string `json:"update_ids" validate:"required,min=1"`
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "update_ids must not be empty")
		return
	}

	s.state.mu.Lock()
	marked := 0
	for _, id := range req.UpdateIDs {
		for i := range s.state.updates {
			if s.state.updates[i].ID == id && !s.state.updates[i].IsRead {
				s.state.updates[i].IsRead = true
				marked++
			}
		}
	}
	s.state.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}

func (s *Server) handleOrganization(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	payload := map[string]any{
		"id":           s.state.org.ID,
		"name":         s.state.org.Name,
		"domain":       s.state.org.Domain,
		"member_count": len(s.state.members),
	}
	s.state.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	items := make([]map[string]any, 0, len(s.state.members))
	for _, m := range s.state.members {
		items = append(items, map[string]any{
			"id":        m.ID,
			"email":     m.Email,
			"full_name": m.Name,
			"role":      m.Role,
		})
	}
	s.state.mu.Unlock()
	writePage(w, r, items)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	payload := map[string]any{
		"name":           s.state.plan.Name,
		"seats":          s.state.plan.Seats,
		"seats_used":     s.state.plan.SeatsUsed,
		"tracking_limit": s.state.plan.TrackingLimit,
		"renews_at":      s.state.plan.RenewsAt.Format(time.RFC3339),
	}
	s.state.mu.Unlock()
	writeJSON(w, http.StatusOK, payload)
}

func userPayload(u User) map[string]any {
	return map[string]any{
		"id":              u.ID,
		"email":           u.Email,
		"full_name":       u.Name,
		"organization_id": u.OrgID,
	}
}

func companyPayload(c Company) map[string]any {
	return map[string]any{
		"id":               c.ID,
		"company_name":     c.Name,
		"domain":           c.Domain,
		"industry":         c.Industry,
		"is_priority":      c.IsPriority,
		"update_frequency": c.Frequency,
		"tags":             c.Tags,
		"last_updated_at":  c.LastUpdatedAt.Format(time.RFC3339),
	}
}

func updatePayload(u Update) map[string]any {
	return map[string]any{
		"id":          u.ID,
		"company_id":  u.CompanyID,
		"headline":    u.Headline,
		"importance":  u.Importance,
		"is_read":     u.IsRead,
		"detected_at": u.DetectedAt.Format(time.RFC3339),
	}
}

// writePage applies page/per_page query parameters and writes the standard
// paginated envelope.
func writePage(w http.ResponseWriter, r *http.Request, items []map[string]any) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 50)
	if perPage > 200 {
		perPage = 200
	}

	total := len(items)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items[start:end],
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"has_next": end < total,
		"has_prev": page > 1,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
