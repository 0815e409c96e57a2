// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for transcript
// messages, including the feedback mark that hides the rating control once
// an answer has been rated.
package repo

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/domain"
)

// CreateMessage inserts one transcript message. askedQuestion is set on
// assistant rows only, carrying the operator question the answer responds
// to; pass nil for user rows. The handle may be transaction-bound.
func CreateMessage(db *gorm.DB, conversationID, role, content string, askedQuestion *string) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		AskedQuestion:  askedQuestion,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches one message by ID. Returns gorm.ErrRecordNotFound when
// missing.
func GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages returns the number of messages in a conversation.
func CountMessages(db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.Model(&domain.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns a page of a conversation's messages in
// chronological order.
func ListMessagesPage(db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SetMessageFeedback marks a message with a verdict. Returns ErrNotFound
// when no row was updated.
func SetMessageFeedback(db *gorm.DB, id, verdict string) error {
	res := db.Model(&domain.Message{}).
		Where("id = ?", id).
		Update("feedback", verdict)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
