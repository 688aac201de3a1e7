package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/rs/zerolog"
)

type stubWebhookService struct {
	result  *service.ReconcileResult
	err     error
	called  bool
	payload *dto.PaymentWebhook
}

func (s *stubWebhookService) Process(_ context.Context, payload *dto.PaymentWebhook) (*service.ReconcileResult, error) {
	s.called = true
	s.payload = payload
	return s.result, s.err
}

const testToken = "secret-token"

func newWebhookRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = strings.NewReader(string(raw))
	}
	return httptest.NewRequest(method, target, reader)
}

func decodeWebhookResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.WebhookResponse {
	t.Helper()
	var resp dto.WebhookResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return resp
}

func TestHandlePaymentRejectsNonPost(t *testing.T) {
	stub := &stubWebhookService{}
	h := NewWebhookHandler(stub, testToken, zerolog.Nop())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		h.HandlePayment(rec, newWebhookRequest(t, method, "/webhooks/payment?token="+testToken, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", method, rec.Code)
		}
	}
	if stub.called {
		t.Fatal("service must not run for non-POST requests")
	}
}

func TestHandlePaymentRejectsBadToken(t *testing.T) {
	stub := &stubWebhookService{}
	h := NewWebhookHandler(stub, testToken, zerolog.Nop())

	tests := []struct {
		name   string
		target string
		body   any
	}{
		{"no token at all", "/webhooks/payment", map[string]string{"status": "approved"}},
		{"wrong query token", "/webhooks/payment?token=nope", nil},
		{"wrong body token", "/webhooks/payment", map[string]string{"token": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandlePayment(rec, newWebhookRequest(t, http.MethodPost, tt.target, tt.body))
			if rec.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rec.Code)
			}
		})
	}
	if stub.called {
		t.Fatal("service must not run without a valid token")
	}
}

func TestHandlePaymentRejectsAllWhenTokenUnconfigured(t *testing.T) {
	stub := &stubWebhookService{}
	h := NewWebhookHandler(stub, "", zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandlePayment(rec, newWebhookRequest(t, http.MethodPost, "/webhooks/payment?token=", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with empty configured token, got %d", rec.Code)
	}
}

func TestHandlePaymentAcceptsBodyToken(t *testing.T) {
	stub := &stubWebhookService{result: &service.ReconcileResult{Outcome: service.OutcomeIgnored}}
	h := NewWebhookHandler(stub, testToken, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandlePayment(rec, newWebhookRequest(t, http.MethodPost, "/webhooks/payment", map[string]string{
		"token":  testToken,
		"status": "refunded",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !stub.called {
		t.Fatal("expected service to run with a valid body token")
	}
	if resp := decodeWebhookResponse(t, rec); resp.Result != "ignored" {
		t.Fatalf("expected result ignored, got %q", resp.Result)
	}
}

func TestHandlePaymentTreatsGarbageBodyAsEmpty(t *testing.T) {
	stub := &stubWebhookService{err: service.ErrMissingIdentity}
	h := NewWebhookHandler(stub, testToken, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandlePayment(rec, newWebhookRequest(t, http.MethodPost, "/webhooks/payment?token="+testToken, "{not json"))
	if !stub.called {
		t.Fatal("a garbage body with a valid query token must still reach the service")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing identity, got %d", rec.Code)
	}
}

func TestHandlePaymentOutcomeMapping(t *testing.T) {
	expires := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		result      *service.ReconcileResult
		err         error
		wantCode    int
		wantResult  string
		wantExpires string
	}{
		{
			name:       "ignored",
			result:     &service.ReconcileResult{Outcome: service.OutcomeIgnored},
			wantCode:   http.StatusOK,
			wantResult: "ignored",
		},
		{
			name:        "pending",
			result:      &service.ReconcileResult{Outcome: service.OutcomePending, NewExpiresAt: expires},
			wantCode:    http.StatusOK,
			wantResult:  "pending",
			wantExpires: "2026-04-15",
		},
		{
			name:       "duplicate",
			result:     &service.ReconcileResult{Outcome: service.OutcomeDuplicate},
			wantCode:   http.StatusOK,
			wantResult: "already_processed",
		},
		{
			name:        "applied",
			result:      &service.ReconcileResult{Outcome: service.OutcomeApplied, NewExpiresAt: expires},
			wantCode:    http.StatusOK,
			wantResult:  "ok",
			wantExpires: "2026-04-15",
		},
		{
			name:       "missing identity",
			err:        service.ErrMissingIdentity,
			wantCode:   http.StatusBadRequest,
			wantResult: "rejected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubWebhookService{result: tt.result, err: tt.err}
			h := NewWebhookHandler(stub, testToken, zerolog.Nop())

			rec := httptest.NewRecorder()
			h.HandlePayment(rec, newWebhookRequest(t, http.MethodPost, "/webhooks/payment?token="+testToken, map[string]string{"status": "approved"}))
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			resp := decodeWebhookResponse(t, rec)
			if resp.Result != tt.wantResult {
				t.Fatalf("expected result %q, got %q", tt.wantResult, resp.Result)
			}
			if resp.SubscriptionExpiresAt != tt.wantExpires {
				t.Fatalf("expected expiry %q, got %q", tt.wantExpires, resp.SubscriptionExpiresAt)
			}
		})
	}
}

func TestHandlePaymentInternalError(t *testing.T) {
	stub := &stubWebhookService{err: errors.New("db down")}
	h := NewWebhookHandler(stub, testToken, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandlePayment(rec, newWebhookRequest(t, http.MethodPost, "/webhooks/payment?token="+testToken, map[string]string{"status": "approved"}))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
