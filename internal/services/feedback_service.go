// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs how operators rate
// assistant answers ("good" or "bad"). It enforces business rules (message
// existence, conversation ownership, assistant-only restriction, uniqueness)
// and persists the feedback audit row atomically in the database. After a
// successful local write the feedback is forwarded to the training collector
// asynchronously; forwarding failures are logged and never affect the
// operator-facing result. Service-level errors (e.g. ErrInvalidVerdict,
// ErrMessageNotFound, ErrForbiddenFeedback, ErrDuplicateFeedback) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/repo"
)

// Trainer forwards recorded feedback to an external training collector.
type Trainer interface {
	SaveFeedback(ctx context.Context, question, answer, verdict string) error
}

// FeedbackService implements the use-cases around answer feedback.
// It validates the operation (ownership, message role, uniqueness) and
// persists the verdict using the provided GORM handle. The service is
// context-aware and opens its own transaction per call.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB

	// Trainer receives a copy of every recorded verdict. Optional; when nil,
	// no forwarding happens.
	Trainer Trainer

	// ForwardTimeout bounds the asynchronous trainer call. Defaults to 10s
	// when zero.
	ForwardTimeout time.Duration

	Logger zerolog.Logger
}

// Record stores a verdict for messageID on behalf of operatorID. comment is
// an optional free-text note stored on the audit row; nil means none.
//
// Semantics and validation:
//   - verdict must be exactly "good" or "bad"; otherwise ErrInvalidVerdict.
//   - messageID must exist; otherwise ErrMessageNotFound.
//   - The message must belong to a conversation owned by operatorID;
//     otherwise ErrForbiddenFeedback.
//   - Feedback is allowed only for assistant messages; operator messages are
//     rejected with ErrForbiddenFeedback.
//   - At most one verdict per message; a second attempt yields
//     ErrDuplicateFeedback.
//
// Concurrency & atomicity:
//   - The checks, the audit insert, and the message mark run inside one
//     transaction so a concurrent duplicate cannot slip through.
//
// The training forward runs after commit on a detached goroutine and cannot
// fail the call.
func (s *FeedbackService) Record(ctx context.Context, operatorID, messageID, verdict string, comment *string) error {
	if verdict != domain.FeedbackGood && verdict != domain.FeedbackBad {
		return ErrInvalidVerdict
	}

	var question, answer string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) Load message and verify it exists.
		msg, err := repo.GetMessage(tx, messageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || isNotFound(err) {
				return ErrMessageNotFound
			}
			return err
		}

		// 2) Ensure the message's conversation belongs to this operator.
		if _, err := repo.GetConversation(ctx, tx, msg.ConversationID, operatorID); err != nil {
			return ErrForbiddenFeedback
		}

		// 3) Only allow feedback on assistant messages.
		if msg.Role != roleAssistant {
			return ErrForbiddenFeedback
		}

		// 4) One verdict per message.
		if msg.Feedback != nil {
			return ErrDuplicateFeedback
		}

		answer = msg.Content
		if msg.AskedQuestion != nil {
			question = *msg.AskedQuestion
		}

		// 5) Insert the audit row with message_id uniqueness semantics.
		if _, err := repo.CreateFeedback(tx, messageID, question, answer, verdict, comment); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrDuplicateFeedback
			}
			return err
		}

		// 6) Mark the message so the rating control disappears.
		return repo.SetMessageFeedback(tx, messageID, verdict)
	})
	if err != nil {
		return err
	}

	if s.Trainer != nil {
		go s.forward(question, answer, verdict)
	}
	return nil
}

// forward ships one verdict to the training collector on a fresh context so
// it survives the request that produced it.
func (s *FeedbackService) forward(question, answer, verdict string) {
	timeout := s.ForwardTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Trainer.SaveFeedback(ctx, question, answer, verdict); err != nil {
		s.Logger.Warn().Err(err).Msg("training feedback forward failed")
	}
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
