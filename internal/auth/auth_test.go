package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	a := New("test-secret", time.Minute, time.Hour)

	pair, err := a.IssuePair("client-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty token in pair")
	}
	if pair.ExpiresIn != 60 {
		t.Fatalf("expires_in = %d, want 60", pair.ExpiresIn)
	}

	id, err := a.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if id != "client-1" {
		t.Fatalf("client id = %q", id)
	}

	// A refresh token is not an access token.
	if _, err := a.VerifyAccess(pair.RefreshToken); err == nil {
		t.Fatal("refresh token accepted as access token")
	}
}

func TestRefresh(t *testing.T) {
	a := New("test-secret", time.Minute, time.Hour)

	pair, err := a.IssuePair("client-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	renewed, err := a.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	id, err := a.VerifyAccess(renewed.AccessToken)
	if err != nil || id != "client-1" {
		t.Fatalf("renewed access: id=%q err=%v", id, err)
	}

	if _, err := a.Refresh(pair.AccessToken); err == nil {
		t.Fatal("access token accepted for refresh")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a := New("secret-a", time.Minute, time.Hour)
	b := New("secret-b", time.Minute, time.Hour)

	pair, err := a.IssuePair("client-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.VerifyAccess(pair.AccessToken); err == nil {
		t.Fatal("token verified under a different secret")
	}
	if _, err := a.VerifyAccess("not.a.token"); err == nil {
		t.Fatal("garbage token verified")
	}
}

func TestMiddleware(t *testing.T) {
	a := New("test-secret", time.Minute, time.Hour)

	var gotClient string
	handler := a.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClient = ClientID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// No header.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status %d", rec.Code)
	}

	// Malformed header.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("malformed header: status %d", rec.Code)
	}

	// Valid bearer token.
	pair, err := a.IssuePair("client-9")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token: status %d", rec.Code)
	}
	if gotClient != "client-9" {
		t.Fatalf("client id in context = %q", gotClient)
	}
}
