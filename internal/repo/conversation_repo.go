// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the assistant
// Conversation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/domain"
)

// CreateConversation inserts a new Conversation row owned by operatorID with
// the given title. The ID is a randomly generated UUID and CreatedAt is UTC.
func CreateConversation(ctx context.Context, db *gorm.DB, operatorID, title string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:         uuid.NewString(),
		OperatorID: operatorID,
		Title:      title,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns all conversations belonging to operatorID,
// most recent first. Empty slice when the operator has none.
func ListConversations(ctx context.Context, db *gorm.DB, operatorID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("operator_id = ?", operatorID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountConversations returns the total number of conversations owned by
// operatorID.
func CountConversations(ctx context.Context, db *gorm.DB, operatorID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("operator_id = ?", operatorID).
		Count(&total).Error
	return total, err
}

// ListConversationsPage returns a paginated slice of an operator's
// conversations, most recent first.
func ListConversationsPage(ctx context.Context, db *gorm.DB, operatorID string, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("operator_id = ?", operatorID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetConversation fetches a single conversation by ID, enforcing ownership.
// Returns ErrNotFound when missing or owned by someone else.
func GetConversation(ctx context.Context, db *gorm.DB, id, operatorID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("id = ? AND operator_id = ?", id, operatorID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateConversationTitle updates the title of a conversation, enforcing
// ownership. Returns ErrNotFound when no row was updated.
func UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, operatorID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND operator_id = ?", id, operatorID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
