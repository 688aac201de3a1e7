package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestPushAuthLocalDevBypass(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	mw := PushAuthMiddleware(true, "", "", zerolog.Nop())

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dlq", nil))

	if !called {
		t.Fatal("expected handler to run in local development mode")
	}
}

func TestPushAuthMissingConfig(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without auth configuration")
	})
	mw := PushAuthMiddleware(false, "", "", zerolog.Nop())

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dlq", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestPushAuthRejectsBadAuthorizationHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a bearer token")
	})
	mw := PushAuthMiddleware(false, "https://api.example.com/dlq", "push@project.iam.gserviceaccount.com", zerolog.Nop())

	for _, header := range []string{"", "Token abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodPost, "/dlq", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/dlq", nil)
	req.Header.Set("Authorization", "bearer abc.def.ghi")
	token, ok := bearerToken(req)
	if !ok || token != "abc.def.ghi" {
		t.Fatalf("expected token extraction, got %q ok=%v", token, ok)
	}
}
