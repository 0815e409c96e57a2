// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the record-store views over the four
// case-data collections consumed by the snapshot loader, plus the basic
// create operations used by the CRUD endpoints and test seeding.
//
// Error semantics follow the thin-repository convention: missing rows map to
// gorm.ErrRecordNotFound (aliased as ErrNotFound), all other DB errors are
// propagated raw. The snapshot loader treats any list failure as "empty
// collection for this fetch" and continues.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visaflow/crm-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// RecordStore adapts the GORM handle to the snapshot.Store contract.
type RecordStore struct {
	DB *gorm.DB
}

// NewRecordStore wraps db as a RecordStore.
func NewRecordStore(db *gorm.DB) *RecordStore {
	return &RecordStore{DB: db}
}

// ListCases returns all cases ordered by creation time descending.
func (s *RecordStore) ListCases(ctx context.Context) ([]domain.Case, error) {
	var out []domain.Case
	err := s.DB.WithContext(ctx).Order("created_at desc").Find(&out).Error
	return out, err
}

// ListStaff returns all staff ordered by name.
func (s *RecordStore) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	var out []domain.Staff
	err := s.DB.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// ListDocuments returns all documents ordered by upload time descending.
func (s *RecordStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var out []domain.Document
	err := s.DB.WithContext(ctx).Order("uploaded_at desc").Find(&out).Error
	return out, err
}

// ListPayments returns all payments ordered by payment time descending.
func (s *RecordStore) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	err := s.DB.WithContext(ctx).Order("paid_at desc").Find(&out).Error
	return out, err
}

// CreateCase inserts a new case row with a generated UUID and UTC creation
// time. Only the fields relevant to the analysis engine are accepted here;
// the full CRM edit surface lives elsewhere.
func CreateCase(ctx context.Context, db *gorm.DB, c *domain.Case) (*domain.Case, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CreateStaff inserts a new staff row.
func CreateStaff(ctx context.Context, db *gorm.DB, s *domain.Staff) (*domain.Staff, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = "active"
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// CreateDocument inserts a new document row.
func CreateDocument(ctx context.Context, db *gorm.DB, d *domain.Document) (*domain.Document, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// CreatePayment inserts a new payment row.
func CreatePayment(ctx context.Context, db *gorm.DB, p *domain.Payment) (*domain.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}
