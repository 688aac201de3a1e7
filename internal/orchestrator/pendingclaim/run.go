package pendingclaim

import (
	"context"
	"encoding/json"
	"time"

	"app/internal/config"
	"app/internal/pgmq"
	"app/internal/service"

	"github.com/rs/zerolog"
)

// Run starts the pending-claim orchestrator. It drains registration jobs and
// tries to attach any pending subscription held under the new user's CPF or
// email.
func Run(ctx context.Context, logger zerolog.Logger, client *pgmq.Client, userSvc service.UserService, cfg *config.Config) error {
	queue := cfg.PendingClaimQueueName
	logger.Info().Str("queue", queue).Msg("Starting pending-claim orchestrator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down pending-claim orchestrator")
			return nil
		default:
		}

		msgs, err := client.ReadWithPoll(ctx, queue, cfg.PendingClaimPollTimeoutSec, cfg.PendingClaimPollMaxMsg)
		if err != nil {
			logger.Error().Err(err).Msg("Error reading pending-claim queue")
			time.Sleep(time.Second)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		msg := msgs[0]
		logger.Info().Int64("msg_id", msg.ID).Msgf("Received pending-claim job: %s", string(msg.Data))

		var job service.PendingClaimJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			logger.Error().Err(err).Msg("Failed to unmarshal pending-claim payload; archiving message")
			if err := client.Archive(ctx, queue, msg.ID); err != nil {
				logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error archiving malformed pending-claim message")
			}
			continue
		}

		// Claim with retry/backoff; transient DB errors should not drop the
		// job, a user's paid subscription hangs on it.
		backoff := time.Duration(cfg.PendingClaimBackoffInitialSec) * time.Second
		var claimErr error
		for attempt := 1; attempt <= cfg.PendingClaimMaxRetries; attempt++ {
			var claimed bool
			claimed, claimErr = userSvc.ClaimPending(ctx, job.UserID, job.CPF, job.Email)
			if claimErr == nil {
				if claimed {
					logger.Info().Str("user_id", job.UserID).Msg("Pending subscription attached")
				} else {
					logger.Info().Str("user_id", job.UserID).Msg("No pending subscription for user")
				}
				break
			}
			logger.Error().Err(claimErr).Int("attempt", attempt).Str("user_id", job.UserID).Msg("Pending claim failed, retrying")
			time.Sleep(backoff)
			backoff *= 2
			if backoff > time.Duration(cfg.PendingClaimBackoffMaxSec)*time.Second {
				backoff = time.Duration(cfg.PendingClaimBackoffMaxSec) * time.Second
			}
		}
		if claimErr != nil {
			dlq := cfg.PendingClaimDeadLetterQueueName
			if _, err := client.Send(ctx, dlq, msg.Data); err != nil {
				logger.Error().Err(err).Str("dlq", dlq).Msg("Failed to send message to dead-letter queue")
			}
			// Archive rather than delete so the original delivery stays
			// inspectable next to its DLQ copy.
			if err := client.Archive(ctx, queue, msg.ID); err != nil {
				logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error archiving exhausted pending-claim message")
			}
			logger.Warn().
				Int("attempts", cfg.PendingClaimMaxRetries).
				Str("user_id", job.UserID).
				Err(claimErr).
				Msg("Exhausted all pending-claim retries; moving job to DLQ")
			continue
		}

		// Acknowledge message
		if err := client.Delete(ctx, queue, msg.ID); err != nil {
			logger.Error().Err(err).Msg("Error deleting pending-claim message")
		}
	}
}
