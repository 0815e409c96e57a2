// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file persists the audit row behind a feedback
// verdict: a snapshot of the rated question/answer pair.
package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/domain"
)

// CreateFeedback inserts one feedback row for messageID. comment is the
// operator's optional free-text note; nil stores NULL. The unique index on
// message_id surfaces duplicate ratings as a constraint violation, which the
// service layer maps to its duplicate sentinel.
func CreateFeedback(db *gorm.DB, messageID, question, answer, verdict string, comment *string) (*domain.Feedback, error) {
	fb := &domain.Feedback{
		ID:        uuid.NewString(),
		MessageID: messageID,
		Question:  question,
		Answer:    answer,
		Verdict:   verdict,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}
