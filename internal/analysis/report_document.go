package analysis

import (
	"sort"
	"time"

	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/snapshot"
)

// documentOverviewReport summarizes the document pipeline and computes a
// verification health score from the review-status ratios.
func (r *Registry) documentOverviewReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Document overview" + frameSuffix(a.TimeFrame))

	ds := snap.Documents
	if a.TimeFrame != "" {
		ds = documentsIn(ds, windowFor(a, now))
	}
	if len(ds) == 0 {
		rep.line("No document data for this period.")
		return rep.String()
	}

	verified, pending, rejected, expired := 0, 0, 0, 0
	for _, d := range ds {
		switch d.Status {
		case domain.DocStatusVerified:
			verified++
		case domain.DocStatusPending:
			pending++
		case domain.DocStatusRejected:
			rejected++
		case domain.DocStatusExpired:
			expired++
		}
	}

	rep.line("Documents on file: %d", len(ds))
	rep.bullet("verified: %d (%s)", verified, fmtPercent(verified, len(ds)))
	rep.bullet("pending review: %d (%s)", pending, fmtPercent(pending, len(ds)))
	rep.bullet("rejected: %d (%s)", rejected, fmtPercent(rejected, len(ds)))
	rep.bullet("expired: %d (%s)", expired, fmtPercent(expired, len(ds)))

	score := documentHealthScore(verified, pending, rejected, expired, len(ds))
	rep.section("Verification health")
	rep.bullet("score: %d/100 (%s)", score, qualitativeLabel(score))
	if rejected > 0 && ratio(rejected, len(ds)) > 0.2 {
		rep.bullet("⚠️ rejection rate above 20%% — review intake quality")
	}
	if expired > 0 {
		rep.bullet("⚠️ %d expired documents need re-collection", expired)
	}
	return rep.String()
}

// detailedDocumentReport renders one section per requested facet over the
// document collection.
func (r *Registry) detailedDocumentReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Document details" + frameSuffix(a.TimeFrame))

	ds := snap.Documents
	if a.TimeFrame != "" {
		ds = documentsIn(ds, windowFor(a, now))
	}
	if len(ds) == 0 {
		rep.line("No document data for this period.")
		return rep.String()
	}

	for _, facet := range a.DetailFacets {
		switch facet {
		case FacetTop:
			rep.section("Most common categories")
			for _, gs := range topN(groupCount(ds, func(d domain.Document) string { return d.Category }), r.sectionItems) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(ds)))
			}
		case FacetRecent:
			rep.section("Recently uploaded")
			for _, d := range latestDocuments(ds, r.sectionItems) {
				rep.bullet("%s — %s (uploaded %s)", d.Category, d.Status, d.UploadedAt.Format("2006-01-02"))
			}
		case FacetByStatus:
			rep.section("Documents by review status")
			for _, gs := range groupCount(ds, func(d domain.Document) string { return d.Status }) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(ds)))
			}
		case FacetByType:
			rep.section("Documents by category")
			for _, gs := range topN(groupCount(ds, func(d domain.Document) string { return d.Category }), r.sectionItems) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(ds)))
			}
		case FacetChart:
			rep.section("Review status distribution")
			for _, gs := range groupCount(ds, func(d domain.Document) string { return d.Status }) {
				rep.bullet("%-10s %s %d", gs.Key, barOf(gs.Share), gs.Count)
			}
		}
	}
	return rep.String()
}

// documentHealthScore composes a 0-100 score from the verification ratio,
// the pending backlog, and the rejection/expiry rates. Bands are fixed; see
// score.go.
func documentHealthScore(verified, pending, rejected, expired, total int) int {
	if total == 0 {
		return 0
	}
	score := bandPoints(ratio(verified, total), quarterBands)
	score += inverseBandPoints(ratio(pending, total), inverseQuarterBands)
	score += inverseBandPoints(ratio(rejected, total), inverseQuarterBands)
	score += inverseBandPoints(ratio(expired, total), inverseQuarterBands)
	return clampScore(score)
}

func latestDocuments(ds []domain.Document, n int) []domain.Document {
	out := make([]domain.Document, len(ds))
	copy(out, ds)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
