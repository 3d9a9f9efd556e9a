// Package api exposes HTTP handlers for the gamification service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/namanaggarwal76/YouMatter/internal/auth"
	"github.com/namanaggarwal76/YouMatter/internal/badges"
	"github.com/namanaggarwal76/YouMatter/internal/catalog"
	"github.com/namanaggarwal76/YouMatter/internal/coach"
	"github.com/namanaggarwal76/YouMatter/internal/domain"
	"github.com/namanaggarwal76/YouMatter/internal/progression"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service    *domain.Service
	challenges catalog.Challenges
	badgeDefs  catalog.Badges
	coach      *coach.Service
}

// NewHandler builds a Handler. The coach may be nil when no model API
// key is configured; coach routes then report 503.
func NewHandler(service *domain.Service, challenges catalog.Challenges, badgeDefs catalog.Badges, coachSvc *coach.Service) *Handler {
	return &Handler{service: service, challenges: challenges, badgeDefs: badgeDefs, coach: coachSvc}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/logins", h.recordLogin)
	mux.HandleFunc("GET /v1/profiles/{id}", h.getProfile)
	mux.HandleFunc("POST /v1/profiles/{id}/challenges/{challengeID}/start", h.startChallenge)
	mux.HandleFunc("POST /v1/profiles/{id}/challenges/{challengeID}/progress", h.reportProgress)
	mux.HandleFunc("POST /v1/profiles/{id}/groups/{groupID}/join", h.joinGroup)
	mux.HandleFunc("POST /v1/profiles/{id}/groups/{groupID}/leave", h.leaveGroup)
	mux.HandleFunc("GET /v1/challenges", h.listChallenges)
	mux.HandleFunc("GET /v1/badges", h.listBadges)
	mux.HandleFunc("GET /v1/leaderboard", h.leaderboard)
	mux.HandleFunc("POST /v1/coach/chat", h.coachChat)
	mux.HandleFunc("POST /v1/coach/challenges", h.coachChallenges)
	mux.HandleFunc("POST /v1/coach/logs", h.coachLogs)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) recordLogin(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessWrite)
	if !ok {
		return
	}

	var req RecordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = claims.Subject
	}

	result, err := h.service.RecordLogin(r.Context(), domain.NewProfileInput{
		TenantID:    claims.TenantID,
		UserID:      req.UserID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	resp := LoginResponse{
		Profile:      toProfileView(result.Profile),
		Created:      result.Created,
		IsNewDay:     result.IsNewDay,
		StreakBroken: result.StreakBroken,
		RewardCoins:  result.RewardCoins,
		RewardXP:     result.RewardXP,
		NewBadges:    toBadgeViews(result.NewBadges),
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessRead, auth.ScopeWellnessWrite)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.TenantID, r.PathValue("id"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(profile))
}

func (h *Handler) startChallenge(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessWrite)
	if !ok {
		return
	}

	profile, started, err := h.service.StartChallenge(r.Context(), claims.TenantID, r.PathValue("id"), r.PathValue("challengeID"))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	resp := StartChallengeResponse{
		Profile: toProfileView(profile),
		Started: started,
	}
	status := http.StatusOK
	if started {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (h *Handler) reportProgress(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessWrite)
	if !ok {
		return
	}

	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	result, err := h.service.SetChallengeProgress(r.Context(), claims.TenantID, r.PathValue("id"), r.PathValue("challengeID"), req.Progress)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProgressResponse{
		Profile:      toProfileView(result.Profile),
		Challenge:    result.Challenge,
		JustComplete: result.JustComplete,
		NewBadges:    toBadgeViews(result.NewBadges),
	})
}

func (h *Handler) joinGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessWrite)
	if !ok {
		return
	}

	profile, err := h.service.JoinGroup(r.Context(), claims.TenantID, r.PathValue("id"), r.PathValue("groupID"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(profile))
}

func (h *Handler) leaveGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessWrite)
	if !ok {
		return
	}

	profile, err := h.service.LeaveGroup(r.Context(), claims.TenantID, r.PathValue("id"), r.PathValue("groupID"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(profile))
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeWellnessRead, auth.ScopeWellnessWrite); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]catalog.Challenge{"challenges": h.challenges.List()})
}

func (h *Handler) listBadges(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeWellnessRead, auth.ScopeWellnessWrite); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]badges.Definition{"badges": h.badgeDefs.ListBadges()})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessRead, auth.ScopeWellnessWrite)
	if !ok {
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	entries, err := h.service.Leaderboard(r.Context(), claims.TenantID, limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.LeaderboardEntry{"leaderboard": entries})
}

func (h *Handler) coachChat(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireScope(w, r, auth.ScopeWellnessRead, auth.ScopeWellnessWrite); !ok {
		return
	}
	if h.coach == nil {
		writeError(w, http.StatusServiceUnavailable, "coach_unavailable", "wellness coach is not configured")
		return
	}

	var req CoachChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	reply, err := h.coach.Chat(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, "coach_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CoachChatResponse{Reply: reply})
}

func (h *Handler) coachChallenges(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessRead, auth.ScopeWellnessWrite)
	if !ok {
		return
	}
	if h.coach == nil {
		writeError(w, http.StatusServiceUnavailable, "coach_unavailable", "wellness coach is not configured")
		return
	}

	suggestions, err := h.coach.SuggestChallenges(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		writeError(w, http.StatusBadGateway, "coach_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]coach.Suggestion{"challenges": suggestions})
}

func (h *Handler) coachLogs(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWellnessWrite)
	if !ok {
		return
	}
	if h.coach == nil {
		writeError(w, http.StatusServiceUnavailable, "coach_unavailable", "wellness coach is not configured")
		return
	}

	var req CoachLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "text is required")
		return
	}

	count := h.coach.AddLog(claims.TenantID, claims.Subject, req.Text)
	writeJSON(w, http.StatusCreated, map[string]int{"log_count": count})
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrChallengeNotStarted),
		errors.Is(err, catalog.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrChallengeCooldown),
		errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// RecordLoginRequest is the payload for POST /v1/logins.
type RecordLoginRequest struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// LoginResponse reports the outcome of a login.
type LoginResponse struct {
	Profile      ProfileView `json:"profile"`
	Created      bool        `json:"created"`
	IsNewDay     bool        `json:"is_new_day"`
	StreakBroken bool        `json:"streak_broken"`
	RewardCoins  int         `json:"reward_coins"`
	RewardXP     int         `json:"reward_xp"`
	NewBadges    []BadgeView `json:"new_badges,omitempty"`
}

// ProgressRequest carries absolute progress for a started challenge.
type ProgressRequest struct {
	Progress int `json:"progress"`
}

// StartChallengeResponse describes the response body for start.
type StartChallengeResponse struct {
	Profile ProfileView `json:"profile"`
	Started bool        `json:"started"`
}

// ProgressResponse reports the updated challenge entry.
type ProgressResponse struct {
	Profile      ProfileView          `json:"profile"`
	Challenge    domain.UserChallenge `json:"challenge"`
	JustComplete bool                 `json:"just_complete"`
	NewBadges    []BadgeView          `json:"new_badges,omitempty"`
}

// CoachChatRequest is the payload for POST /v1/coach/chat.
type CoachChatRequest struct {
	Message string `json:"message"`
}

// CoachChatResponse carries the model reply.
type CoachChatResponse struct {
	Reply string `json:"reply"`
}

// CoachLogRequest is the payload for POST /v1/coach/logs.
type CoachLogRequest struct {
	Text string `json:"text"`
}

// BadgeView exposes an earned badge.
type BadgeView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	EarnedAt    time.Time `json:"earned_at"`
}

// ProfileView exposes full details about a profile.
type ProfileView struct {
	UserID            string                          `json:"user_id"`
	TenantID          string                          `json:"tenant_id"`
	Email             string                          `json:"email,omitempty"`
	DisplayName       string                          `json:"display_name,omitempty"`
	Coins             int                             `json:"coins"`
	XP                int                             `json:"xp"`
	Tier              string                          `json:"tier"`
	TierRank          int                             `json:"tier_rank"`
	NextTierThreshold int                             `json:"next_tier_threshold"`
	TierProgressPct   float64                         `json:"tier_progress_pct"`
	StreakCount       int                             `json:"streak_count"`
	LastLoginAt       *time.Time                      `json:"last_login_at,omitempty"`
	Badges            []BadgeView                     `json:"badges"`
	JoinedGroups      []string                        `json:"joined_groups"`
	Challenges        map[string]domain.UserChallenge `json:"challenges"`
	UpdatedAt         time.Time                       `json:"updated_at"`
}

func toProfileView(profile *domain.Profile) ProfileView {
	view := ProfileView{
		UserID:            profile.ID,
		TenantID:          profile.TenantID,
		Email:             profile.Email,
		DisplayName:       profile.DisplayName,
		Coins:             profile.Coins,
		XP:                profile.XP,
		Tier:              string(profile.Tier),
		TierRank:          progression.Rank(profile.Tier),
		NextTierThreshold: progression.NextTierThreshold(profile.Tier),
		TierProgressPct:   progression.Progress(profile.XP, profile.Tier),
		StreakCount:       profile.StreakCount,
		LastLoginAt:       profile.LastLoginAt,
		Badges:            toBadgeViews(profile.Badges),
		JoinedGroups:      profile.JoinedGroups,
		Challenges:        profile.Challenges,
		UpdatedAt:         profile.UpdatedAt,
	}
	if view.JoinedGroups == nil {
		view.JoinedGroups = []string{}
	}
	if view.Challenges == nil {
		view.Challenges = map[string]domain.UserChallenge{}
	}
	return view
}

func toBadgeViews(earned []badges.Badge) []BadgeView {
	views := make([]BadgeView, 0, len(earned))
	for _, badge := range earned {
		views = append(views, BadgeView{
			ID:          badge.ID,
			Name:        badge.Name,
			Description: badge.Description,
			Icon:        badge.Icon,
			EarnedAt:    badge.EarnedAt,
		})
	}
	return views
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
