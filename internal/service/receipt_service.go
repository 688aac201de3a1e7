package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"app/internal/api/v1/dto"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrReceiptForbidden is returned when a caller asks to extract a receipt
// stored under another user's prefix.
var ErrReceiptForbidden = errors.New("receipt does not belong to user")

// ReceiptService hands out presigned upload URLs for receipt images and
// runs uploaded receipts through the extraction service.
type ReceiptService interface {
	InitiateUpload(ctx context.Context, userID, contentType string) (*dto.ReceiptUploadURLResponse, error)
	Extract(ctx context.Context, userID, storagePath string, categories []string) (*dto.ExtractedTransaction, error)
}

type receiptService struct {
	presignClient *s3.PresignClient
	bucketName    string
	extraction    ExtractionService
	receiptLogger zerolog.Logger
}

func NewReceiptService(s3Client *s3.Client, bucketName string, extraction ExtractionService, logger zerolog.Logger) ReceiptService {
	return &receiptService{
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		extraction:    extraction,
		receiptLogger: logger.With().Str("service", "ReceiptService").Logger(),
	}
}

var extensionByContentType = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// InitiateUpload generates a presigned PUT URL for one receipt. Objects are
// keyed under the owning user so extraction can verify ownership later.
func (s *receiptService) InitiateUpload(ctx context.Context, userID, contentType string) (*dto.ReceiptUploadURLResponse, error) {
	ext, ok := extensionByContentType[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported receipt content type: %s", contentType)
	}
	storagePath := fmt.Sprintf("receipts/%s/%s.%s", userID, uuid.NewString(), ext)

	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(storagePath),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.receiptLogger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to generate presigned PUT URL")
		return nil, fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return &dto.ReceiptUploadURLResponse{UploadURL: request.URL, StoragePath: storagePath}, nil
}

func (s *receiptService) Extract(ctx context.Context, userID, storagePath string, categories []string) (*dto.ExtractedTransaction, error) {
	// Receipts are namespaced by owner; refuse paths outside the caller's.
	prefix := fmt.Sprintf("receipts/%s/", userID)
	if !strings.HasPrefix(storagePath, prefix) {
		return nil, fmt.Errorf("storage path %s: %w", storagePath, ErrReceiptForbidden)
	}
	return s.extraction.Extract(ctx, storagePath, categories)
}
