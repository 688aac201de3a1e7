package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/dto"
	"app/internal/config"

	"github.com/rs/zerolog"
)

// ErrExtractionDisabled is returned when the extraction service reports it
// is not enabled for this deployment. The UI shows manual entry instead.
var ErrExtractionDisabled = errors.New("receipt extraction service is not enabled")

// ExtractionService calls the external receipt-understanding service:
// storage path and category taxonomy in, a structured transaction out. The
// service is opaque; this client only owns transport and error mapping.
type ExtractionService interface {
	Extract(ctx context.Context, storagePath string, categories []string) (*dto.ExtractedTransaction, error)
}

type extractionService struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewExtractionService(cfg *config.Config, logger zerolog.Logger) ExtractionService {
	return &extractionService{
		baseURL:    strings.TrimRight(cfg.ExtractionServiceBaseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With().Str("service", "ExtractionService").Logger(),
	}
}

func (s *extractionService) Extract(ctx context.Context, storagePath string, categories []string) (*dto.ExtractedTransaction, error) {
	reqBody, err := json.Marshal(map[string]any{
		"storage_path": storagePath,
		"categories":   categories,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal extraction request: %w", err)
	}

	endpoint := s.baseURL + "/extract"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusNotImplemented {
		return nil, ErrExtractionDisabled
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extraction service status %d: %s", resp.StatusCode, string(body))
	}

	var tx dto.ExtractedTransaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	s.logger.Debug().Str("storage_path", storagePath).Str("category", tx.Category).Msg("Receipt extracted")
	return &tx, nil
}
