// Package snapshot builds the immutable, point-in-time aggregate of case data
// consumed by the assistant's analysis engine. A Snapshot is created fresh per
// analysis request from the record store, never mutated, and discarded after
// the report is produced; the engine never writes back through it.
package snapshot

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/visaflow/crm-backend/internal/domain"
)

// Store is the record-store contract consumed by the Loader. Each method
// returns the full ordered collection of the respective record type, or an
// error when the backing store is unavailable.
type Store interface {
	ListCases(ctx context.Context) ([]domain.Case, error)
	ListStaff(ctx context.Context) ([]domain.Staff, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	ListPayments(ctx context.Context) ([]domain.Payment, error)
}

// Summary holds the derived aggregate counts computed over a snapshot.
type Summary struct {
	TotalCases     int     `json:"total_cases"`
	ActiveCases    int     `json:"active_cases"`
	TotalStaff     int     `json:"total_staff"`
	TotalDocuments int     `json:"total_documents"`
	TotalPayments  int     `json:"total_payments"`
	TotalRevenue   float64 `json:"total_revenue"` // sum of completed payments
}

// Snapshot is the read-only aggregate of the four case-data collections plus
// their Summary. Callers must treat all slices as immutable.
type Snapshot struct {
	Cases     []domain.Case
	Staff     []domain.Staff
	Documents []domain.Document
	Payments  []domain.Payment
	Summary   Summary
}

// Loader fetches the four collections from a Store and assembles a Snapshot.
type Loader struct {
	Store Store
}

// NewLoader constructs a Loader over the given Store.
func NewLoader(store Store) *Loader {
	return &Loader{Store: store}
}

// Load fetches all four collections concurrently and joins them into a
// Snapshot. The fetches are read-only and mutually independent, so they run
// in parallel; a failure in any single fetch degrades that collection to
// empty rather than aborting the whole snapshot. Load itself only fails when
// the context is cancelled before the joins complete.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if cs, err := l.Store.ListCases(gctx); err == nil {
			snap.Cases = cs
		}
		return nil
	})
	g.Go(func() error {
		if st, err := l.Store.ListStaff(gctx); err == nil {
			snap.Staff = st
		}
		return nil
	})
	g.Go(func() error {
		if ds, err := l.Store.ListDocuments(gctx); err == nil {
			snap.Documents = ds
		}
		return nil
	})
	g.Go(func() error {
		if ps, err := l.Store.ListPayments(gctx); err == nil {
			snap.Payments = ps
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.deriveStaffCaseCounts()
	snap.Summary = summarize(snap)
	return snap, nil
}

// deriveStaffCaseCounts fills Staff.CaseCount from the case assignments in
// the same snapshot.
func (s *Snapshot) deriveStaffCaseCounts() {
	if len(s.Staff) == 0 {
		return
	}
	counts := make(map[string]int, len(s.Staff))
	for _, c := range s.Cases {
		if c.StaffID != nil && *c.StaffID != "" {
			counts[*c.StaffID]++
		}
	}
	for i := range s.Staff {
		s.Staff[i].CaseCount = counts[s.Staff[i].ID]
	}
}

func summarize(s *Snapshot) Summary {
	sum := Summary{
		TotalCases:     len(s.Cases),
		TotalStaff:     len(s.Staff),
		TotalDocuments: len(s.Documents),
		TotalPayments:  len(s.Payments),
	}
	for _, c := range s.Cases {
		if c.Status == domain.CaseStatusActive {
			sum.ActiveCases++
		}
	}
	for _, p := range s.Payments {
		if p.Status == domain.PaymentStatusCompleted {
			sum.TotalRevenue += p.Amount
		}
	}
	return sum
}
