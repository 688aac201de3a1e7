package service

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"app/internal/api/v1/dto"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// DLQService persists payment events that exhausted their Pub/Sub retries.
type DLQService interface {
	ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error
}

type dlqService struct {
	repo      repository.DLQRepository
	dlqLogger zerolog.Logger
}

func NewDLQService(repo repository.DLQRepository, logger zerolog.Logger) DLQService {
	return &dlqService{
		repo:      repo,
		dlqLogger: logger.With().Str("service", "DLQService").Logger(),
	}
}

func (s *dlqService) ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error {
	decodedPayload, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		s.dlqLogger.Warn().Err(err).Str("message_id", req.Message.MessageID).Msg("Failed to decode DLQ message payload, saving as is")
		decodedPayload = []byte(req.Message.Data)
	}

	var attributesJSON []byte
	if len(req.Message.Attributes) > 0 {
		attributesJSON, err = json.Marshal(req.Message.Attributes)
		if err != nil {
			s.dlqLogger.Warn().Err(err).Str("message_id", req.Message.MessageID).Msg("Failed to marshal DLQ message attributes")
		}
	}

	dbMessage := &model.DeadLetterMessage{
		SubscriptionName: req.Subscription,
		MessageID:        req.Message.MessageID,
		Payload:          decodedPayload,
		Attributes:       attributesJSON,
		Status:           "unprocessed",
	}
	if err := s.repo.Create(ctx, dbMessage); err != nil {
		s.dlqLogger.Error().Err(err).Str("subscription", dbMessage.SubscriptionName).Msg("Failed to save DLQ message")
		return err
	}
	return nil
}
