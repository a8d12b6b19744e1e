package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", 0, map[string]string{"username": "ari", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string        `json:"status"`
		Data   loginResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.Data.UserID != playerUser || !strings.HasPrefix(resp.Data.Token, "st_") {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != resp.Data.Token || !cookie.HttpOnly {
		t.Fatalf("session cookie = %+v", cookie)
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("cookie MaxAge = %d, want the one-hour session TTL", cookie.MaxAge)
	}

	// The cookie authenticates.
	req := httptest.NewRequest(http.MethodGet, "/realtime/online?session_id=42", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	env.handler.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("cookie auth status = %d", out.Code)
	}

	// Logout, then the token is dead.
	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Data.Token)
	out = httptest.NewRecorder()
	env.handler.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("logout status = %d", out.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/realtime/online?session_id=42", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Data.Token)
	out = httptest.NewRecorder()
	env.handler.ServeHTTP(out, req)
	assertError(t, out, http.StatusUnauthorized, "")
}

func TestLogin_Rejected(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct {
		name  string
		body  any
		want  int
		field string
	}{
		{"wrong password", map[string]string{"username": "ari", "password": "nope"}, http.StatusUnauthorized, ""},
		{"unknown user", map[string]string{"username": "zed", "password": "hunter22"}, http.StatusUnauthorized, ""},
		{"missing password", map[string]string{"username": "ari"}, http.StatusBadRequest, "password"},
		{"empty body", "", http.StatusBadRequest, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/auth/login", 0, tc.body)
			assertError(t, rec, tc.want, tc.field)
			if rec.Code == http.StatusUnauthorized && len(rec.Result().Cookies()) != 0 {
				t.Error("rejected login set a cookie")
			}
		})
	}
}

func TestLogout_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	assertError(t, env.do(t, http.MethodPost, "/auth/logout", 0, nil), http.StatusUnauthorized, "")
}
