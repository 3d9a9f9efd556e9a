package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/namanaggarwal76/YouMatter/internal/auth"
	"github.com/namanaggarwal76/YouMatter/internal/catalog"
	"github.com/namanaggarwal76/YouMatter/internal/domain"
	"github.com/namanaggarwal76/YouMatter/internal/persistence/memory"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	cat := catalog.NewInMemory()
	repo := memory.NewRepository()
	service := domain.NewService(repo, cat, cat, domain.RewardConfig{DailyLoginCoins: 10, DailyLoginXP: 5})
	handler := NewHandler(service, cat, cat, nil)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func authed(req *http.Request, scopes ...string) *http.Request {
	scopeSet := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = struct{}{}
	}
	claims := &auth.Claims{
		Subject:   "user-1",
		TenantID:  "tenant-1",
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func TestRecordLoginCreatesProfile(t *testing.T) {
	mux := newTestMux(t)

	body := strings.NewReader(`{"user_id":"user-1","email":"u@example.com","display_name":"User One"}`)
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/logins", body), auth.ScopeWellnessWrite)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Created {
		t.Fatal("expected created=true")
	}
	if resp.Profile.Coins != 10 || resp.Profile.XP != 5 {
		t.Fatalf("unexpected starting grants: coins=%d xp=%d", resp.Profile.Coins, resp.Profile.XP)
	}
	if resp.Profile.StreakCount != 1 {
		t.Fatalf("expected streak 1 got %d", resp.Profile.StreakCount)
	}
	if len(resp.Profile.Badges) != 1 || resp.Profile.Badges[0].Name != "Welcome Warrior" {
		t.Fatalf("expected Welcome Warrior badge, got %+v", resp.Profile.Badges)
	}
}

func TestRecordLoginRequiresWriteScope(t *testing.T) {
	mux := newTestMux(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/logins", strings.NewReader(`{}`)), auth.ScopeWellnessRead)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestRecordLoginRejectsAnonymous(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/logins", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	mux := newTestMux(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/profiles/ghost", nil), auth.ScopeWellnessRead)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestStartAndProgressChallenge(t *testing.T) {
	mux := newTestMux(t)

	login := authed(httptest.NewRequest(http.MethodPost, "/v1/logins", strings.NewReader(`{"user_id":"user-1"}`)), auth.ScopeWellnessWrite)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, login)
	if rr.Code != http.StatusCreated {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}

	start := authed(httptest.NewRequest(http.MethodPost, "/v1/profiles/user-1/challenges/1/start", nil), auth.ScopeWellnessWrite)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, start)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	// Starting again is an idempotent 200.
	again := authed(httptest.NewRequest(http.MethodPost, "/v1/profiles/user-1/challenges/1/start", nil), auth.ScopeWellnessWrite)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, again)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	progress := authed(httptest.NewRequest(http.MethodPost, "/v1/profiles/user-1/challenges/1/progress", strings.NewReader(`{"progress":7}`)), auth.ScopeWellnessWrite)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, progress)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ProgressResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.JustComplete {
		t.Fatal("expected challenge completion at target")
	}
	if resp.Profile.Coins != 10+100 {
		t.Fatalf("expected reward coins credited, got %d", resp.Profile.Coins)
	}
}

func TestProgressUnknownChallenge(t *testing.T) {
	mux := newTestMux(t)

	login := authed(httptest.NewRequest(http.MethodPost, "/v1/logins", strings.NewReader(`{"user_id":"user-1"}`)), auth.ScopeWellnessWrite)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, login)

	progress := authed(httptest.NewRequest(http.MethodPost, "/v1/profiles/user-1/challenges/999/progress", strings.NewReader(`{"progress":1}`)), auth.ScopeWellnessWrite)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, progress)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestProgressNotStarted(t *testing.T) {
	mux := newTestMux(t)

	login := authed(httptest.NewRequest(http.MethodPost, "/v1/logins", strings.NewReader(`{"user_id":"user-1"}`)), auth.ScopeWellnessWrite)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, login)

	progress := authed(httptest.NewRequest(http.MethodPost, "/v1/profiles/user-1/challenges/1/progress", strings.NewReader(`{"progress":1}`)), auth.ScopeWellnessWrite)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, progress)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestJoinGroupCreditsRewards(t *testing.T) {
	mux := newTestMux(t)

	login := authed(httptest.NewRequest(http.MethodPost, "/v1/logins", strings.NewReader(`{"user_id":"user-1"}`)), auth.ScopeWellnessWrite)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, login)

	join := authed(httptest.NewRequest(http.MethodPost, "/v1/profiles/user-1/groups/mindful-movers/join", nil), auth.ScopeWellnessWrite)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, join)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var view ProfileView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if view.Coins != 30 || view.XP != 15 {
		t.Fatalf("expected join rewards, got coins=%d xp=%d", view.Coins, view.XP)
	}
	if len(view.JoinedGroups) != 1 || view.JoinedGroups[0] != "mindful-movers" {
		t.Fatalf("unexpected groups: %v", view.JoinedGroups)
	}
}

func TestListChallengesAndBadges(t *testing.T) {
	mux := newTestMux(t)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/challenges", nil), auth.ScopeWellnessRead)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var challengeResp map[string][]catalog.Challenge
	if err := json.Unmarshal(rr.Body.Bytes(), &challengeResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(challengeResp["challenges"]) == 0 {
		t.Fatal("expected seeded challenges")
	}

	req = authed(httptest.NewRequest(http.MethodGet, "/v1/badges", nil), auth.ScopeWellnessRead)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestLeaderboard(t *testing.T) {
	mux := newTestMux(t)

	for _, id := range []string{"a", "b"} {
		login := authed(httptest.NewRequest(http.MethodPost, "/v1/logins", strings.NewReader(`{"user_id":"`+id+`"}`)), auth.ScopeWellnessWrite)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, login)
		if rr.Code != http.StatusCreated {
			t.Fatalf("login %s failed: %d", id, rr.Code)
		}
	}

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit=5", nil), auth.ScopeWellnessRead)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var resp map[string][]domain.LeaderboardEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp["leaderboard"]) != 2 {
		t.Fatalf("expected 2 entries got %d", len(resp["leaderboard"]))
	}
	if resp["leaderboard"][0].Rank != 1 {
		t.Fatalf("expected rank 1 first, got %d", resp["leaderboard"][0].Rank)
	}
}

func TestCoachUnavailableWithoutConfiguration(t *testing.T) {
	mux := newTestMux(t)

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/coach/chat", strings.NewReader(`{"message":"hi"}`)), auth.ScopeWellnessRead)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}
