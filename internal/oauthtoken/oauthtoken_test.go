package oauthtoken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetTokenFetchesAndCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	m := NewManager(Config{
		ClientID:      "id",
		ClientSecret:  "secret",
		RefreshToken:  "refresh",
		TokenURL:      srv.URL,
		Scope:         "scope",
		CacheDuration: time.Hour,
	})

	tok, err := m.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("unexpected token %q", tok)
	}

	if _, err := m.GetToken(context.Background()); err != nil {
		t.Fatalf("second GetToken: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 HTTP call due to caching, got %d", calls)
	}
}

func TestGetTokenRefreshesAfterExpiry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	defer srv.Close()

	m := NewManager(Config{TokenURL: srv.URL, CacheDuration: time.Millisecond})

	if _, err := m.GetToken(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := m.GetToken(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls after expiry, got %d", calls)
	}
}

func TestGetTokenRejectsEmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":""}`))
	}))
	defer srv.Close()

	m := NewManager(Config{TokenURL: srv.URL})
	if _, err := m.GetToken(context.Background()); err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestGetTokenSurfacesNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`invalid_grant`))
	}))
	defer srv.Close()

	m := NewManager(Config{TokenURL: srv.URL})
	if _, err := m.GetToken(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestCheckConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewManager(Config{TokenURL: srv.URL})
	if m.CheckConnection(context.Background()) {
		t.Fatal("expected CheckConnection to report false on failure")
	}
}
