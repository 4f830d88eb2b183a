package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-borong/internal/db"
)

type loginResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

type refreshResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

func seedUser(t *testing.T, queries *fakeQueries, email, password, role string) db.User {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	id, _ := pgUUIDFromString(uuid.NewString())
	now := time.Now()
	user := db.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		Role:         role,
		CreatedAt:    pgTimestamp(now),
		UpdatedAt:    pgTimestamp(now),
	}
	queries.addUser(user)
	return user
}

func TestRefreshRotateAndLogout(t *testing.T) {
	svc, queries := newTestService(t)
	seedUser(t, queries, "user@example.com", "password123", RoleUser)

	handler := &Handler{
		Service:           svc,
		RefreshCookieName: "rt",
		CookieSameSite:    http.SameSiteLaxMode,
	}

	// Login to obtain refresh cookie.
	loginBody := bytes.NewBufferString(`{"email":"user@example.com","password":"password123"}`)
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", loginBody)
	loginRec := httptest.NewRecorder()
	handler.Login(loginRec, loginReq)
	loginRes := loginRec.Result()
	if loginRes.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status: %d", loginRes.StatusCode)
	}
	var loginPayload loginResponse
	if err := json.NewDecoder(loginRes.Body).Decode(&loginPayload); err != nil {
		t.Fatalf("decode login payload: %v", err)
	}
	_ = loginRes.Body.Close()
	if loginPayload.Data.AccessToken == "" {
		t.Fatalf("expected access token in login response")
	}

	cookie := findCookie(loginRes.Cookies(), "rt")
	if cookie == nil {
		t.Fatalf("expected refresh cookie after login")
	}
	originalRefresh := cookie.Value
	originalHashed := hashRefreshToken(originalRefresh)
	if !queries.activeToken(originalHashed) {
		t.Fatalf("expected stored refresh token after login")
	}

	// Perform refresh to rotate the token.
	refreshReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	refreshReq.AddCookie(cookie)
	refreshRec := httptest.NewRecorder()
	handler.Refresh(refreshRec, refreshReq)
	refreshRes := refreshRec.Result()
	if refreshRes.StatusCode != http.StatusOK {
		t.Fatalf("unexpected refresh status: %d", refreshRes.StatusCode)
	}
	var refreshPayload refreshResponse
	if err := json.NewDecoder(refreshRes.Body).Decode(&refreshPayload); err != nil {
		t.Fatalf("decode refresh payload: %v", err)
	}
	_ = refreshRes.Body.Close()
	if refreshPayload.Data.AccessToken == "" {
		t.Fatalf("expected access token in refresh response")
	}
	rotatedCookie := findCookie(refreshRes.Cookies(), "rt")
	if rotatedCookie == nil {
		t.Fatalf("expected rotated refresh cookie")
	}
	if rotatedCookie.Value == originalRefresh {
		t.Fatalf("expected refresh token rotation")
	}
	rotatedHashed := hashRefreshToken(rotatedCookie.Value)
	if !queries.activeToken(rotatedHashed) {
		t.Fatalf("expected stored rotated refresh token")
	}
	if queries.activeToken(originalHashed) {
		t.Fatalf("expected old refresh token revoked after rotation")
	}

	// Reuse of the old refresh token must fail.
	reuseReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	reuseReq.AddCookie(&http.Cookie{Name: "rt", Value: originalRefresh})
	reuseRec := httptest.NewRecorder()
	handler.Refresh(reuseRec, reuseReq)
	if reuseRec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized on token reuse, got %d", reuseRec.Code)
	}

	// Logout revokes the token and clears the cookie.
	logoutReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	logoutReq.AddCookie(rotatedCookie)
	logoutRec := httptest.NewRecorder()
	handler.Logout(logoutRec, logoutReq)
	logoutRes := logoutRec.Result()
	if logoutRes.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected logout status: %d", logoutRes.StatusCode)
	}
	clearedCookie := findCookie(logoutRes.Cookies(), "rt")
	if clearedCookie == nil {
		t.Fatalf("expected cookie clearing on logout")
	}
	if clearedCookie.MaxAge != -1 {
		t.Fatalf("expected logout cookie MaxAge -1, got %d", clearedCookie.MaxAge)
	}
	if queries.activeToken(rotatedHashed) {
		t.Fatalf("expected refresh token revoked after logout")
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
