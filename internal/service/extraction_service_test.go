package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"app/internal/api/v1/dto"
	"app/internal/config"

	"github.com/rs/zerolog"
)

func newTestExtractionService(baseURL string) ExtractionService {
	return NewExtractionService(&config.Config{ExtractionServiceBaseURL: baseURL}, zerolog.Nop())
}

func TestExtractSuccess(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotPath, _ = req["storage_path"].(string)
		json.NewEncoder(w).Encode(dto.ExtractedTransaction{
			Description: "Mercado Pao de Acucar",
			Category:    "groceries",
			Amount:      "152.30",
			Date:        "2026-03-14",
		})
	}))
	defer srv.Close()

	svc := newTestExtractionService(srv.URL)
	tx, err := svc.Extract(context.Background(), "receipts/u1/r1.jpg", []string{"groceries", "transport"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "receipts/u1/r1.jpg" {
		t.Fatalf("service received wrong storage path: %q", gotPath)
	}
	if tx.Category != "groceries" || tx.Amount != "152.30" {
		t.Fatalf("unexpected extraction result: %+v", tx)
	}
}

func TestExtractDisabled(t *testing.T) {
	for _, code := range []int{http.StatusServiceUnavailable, http.StatusNotImplemented} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		svc := newTestExtractionService(srv.URL)
		_, err := svc.Extract(context.Background(), "receipts/u1/r1.jpg", nil)
		srv.Close()
		if !errors.Is(err, ErrExtractionDisabled) {
			t.Fatalf("status %d: expected ErrExtractionDisabled, got %v", code, err)
		}
	}
}

func TestExtractUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestExtractionService(srv.URL)
	if _, err := svc.Extract(context.Background(), "receipts/u1/r1.jpg", nil); err == nil {
		t.Fatal("expected error on upstream 500")
	}
}
