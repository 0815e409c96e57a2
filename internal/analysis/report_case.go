package analysis

import (
	"sort"
	"time"

	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/search"
	"github.com/visaflow/crm-backend/internal/snapshot"
)

// caseOverviewReport summarizes the case book: status distribution, top
// destinations, and an optional period-over-period comparison.
func (r *Registry) caseOverviewReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Case overview" + frameSuffix(a.TimeFrame))

	w := windowFor(a, now)
	cs := snap.Cases
	if a.TimeFrame != "" {
		cs = casesIn(cs, w)
	}
	if len(cs) == 0 {
		rep.line("No case data for this period.")
		return rep.String()
	}

	rep.line("Total cases: %d", len(cs))
	for _, gs := range groupCount(cs, func(c domain.Case) string { return c.Status }) {
		rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(cs)))
	}

	rep.section("Top destinations")
	for _, gs := range topN(groupCount(cs, func(c domain.Case) string { return c.Country }), r.sectionItems) {
		rep.bullet("%s: %d cases (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(cs)))
	}

	if a.ComparisonRequested && a.TimeFrame != "" {
		r.appendCaseComparison(rep, a.TimeFrame, snap, now)
	}
	return rep.String()
}

// detailedCaseReport renders one independent section per requested facet, in
// canonical facet order. Facets are additive; each section is capped to the
// registry's item limit.
func (r *Registry) detailedCaseReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Case details" + frameSuffix(a.TimeFrame))

	w := windowFor(a, now)
	cs := snap.Cases
	if a.TimeFrame != "" {
		cs = casesIn(cs, w)
	}
	if len(cs) == 0 {
		rep.line("No case data for this period.")
		return rep.String()
	}

	for _, facet := range a.DetailFacets {
		switch facet {
		case FacetTop:
			rep.section("Top countries")
			for _, gs := range topN(groupCount(cs, func(c domain.Case) string { return c.Country }), r.sectionItems) {
				rep.bullet("%s: %d cases (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(cs)))
			}
		case FacetBottom:
			stats := groupCount(cs, func(c domain.Case) string { return c.Country })
			rep.section("Least common countries")
			for i := len(stats) - 1; i >= 0 && len(stats)-i <= r.sectionItems; i-- {
				gs := stats[i]
				rep.bullet("%s: %d cases (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(cs)))
			}
		case FacetRecent:
			rep.section("Recently opened cases")
			for _, c := range latestCases(cs, r.sectionItems) {
				rep.bullet("%s — %s, %s (opened %s)", c.Name, orNotSpecified(c.Country),
					orNotSpecified(c.VisaType), c.CreatedAt.Format("2006-01-02"))
			}
		case FacetActive:
			rep.section("Active cases")
			r.listCasesByStatus(rep, cs, domain.CaseStatusActive)
		case FacetInactive:
			rep.section("Inactive cases")
			r.listCasesByStatus(rep, cs, domain.CaseStatusInactive)
		case FacetByStatus:
			rep.section("Cases by status")
			for _, gs := range groupCount(cs, func(c domain.Case) string { return c.Status }) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(cs)))
			}
		case FacetByType:
			rep.section("Cases by visa type")
			for _, gs := range topN(groupCount(cs, func(c domain.Case) string { return c.VisaType }), r.sectionItems) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(cs)))
			}
		case FacetByCountry:
			rep.section("Cases by country")
			for _, gs := range topN(groupCount(cs, func(c domain.Case) string { return c.Country }), r.sectionItems) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(cs)))
			}
		case FacetChart:
			rep.section("Status distribution")
			for _, gs := range groupCount(cs, func(c domain.Case) string { return c.Status }) {
				rep.bullet("%-10s %s %d", gs.Key, barOf(gs.Share), gs.Count)
			}
		}
	}

	if a.ComparisonRequested && a.TimeFrame != "" {
		r.appendCaseComparison(rep, a.TimeFrame, snap, now)
	}
	return rep.String()
}

// specificCaseReport looks up cases by name against the question using the
// in-memory case index and renders the best matches.
func (r *Registry) specificCaseReport(a Analysis, snap *snapshot.Snapshot, _ time.Time) string {
	rep := &report{}
	rep.title("Case lookup")

	if len(snap.Cases) == 0 {
		rep.line("There are no cases on file to search.")
		return rep.String()
	}

	idx := search.NewCaseIndex(snap.Cases)
	matches := idx.TopK(a.Question, r.sectionItems)
	if len(matches) == 0 {
		rep.line("No case matched that name. Try the client's full name or the destination country.")
		return rep.String()
	}

	for _, m := range matches {
		c := m.Case
		rep.bullet("%s — %s, %s, status %s", c.Name, orNotSpecified(c.Country),
			orNotSpecified(c.VisaType), c.Status)
		if c.AppointmentAt != nil {
			rep.line("  appointment: %s", c.AppointmentAt.Format("2006-01-02 15:04"))
		}
	}
	return rep.String()
}

// appendCaseComparison adds a this-period vs previous-period section.
func (r *Registry) appendCaseComparison(rep *report, tf TimeFrame, snap *snapshot.Snapshot, now time.Time) {
	cur, ok := tf.WindowAt(now)
	if !ok {
		return
	}
	prev, ok := tf.PreviousWindowAt(now)
	if !ok {
		return
	}
	nCur := len(casesIn(snap.Cases, cur))
	nPrev := len(casesIn(snap.Cases, prev))
	rep.section("Compared with the previous period")
	rep.bullet("new cases %s: %d", tf.Label(), nCur)
	rep.bullet("new cases previous period: %d", nPrev)
	switch {
	case nPrev == 0 && nCur == 0:
		rep.bullet("change: %s", notAvailable)
	case nPrev == 0:
		rep.bullet("change: ✅ up from zero")
	case nCur >= nPrev:
		rep.bullet("change: ✅ +%s", fmtPercent(nCur-nPrev, nPrev))
	default:
		rep.bullet("change: ⚠️ -%s", fmtPercent(nPrev-nCur, nPrev))
	}
}

// listCasesByStatus renders up to the section cap of cases in one status.
func (r *Registry) listCasesByStatus(rep *report, cs []domain.Case, status string) {
	n := 0
	for _, c := range cs {
		if c.Status != status {
			continue
		}
		rep.bullet("%s — %s, %s", c.Name, orNotSpecified(c.Country), orNotSpecified(c.VisaType))
		n++
		if n >= r.sectionItems {
			break
		}
	}
	if n == 0 {
		rep.bullet("none")
	}
}

// latestCases returns up to n cases ordered by creation time descending.
func latestCases(cs []domain.Case, n int) []domain.Case {
	out := make([]domain.Case, len(cs))
	copy(out, cs)
	sortCasesByCreatedDesc(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// sortCasesByCreatedDesc orders cases newest first, ID ascending on ties so
// output stays deterministic.
func sortCasesByCreatedDesc(cs []domain.Case) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

// frameSuffix renders the title suffix for a bounded time frame.
func frameSuffix(tf TimeFrame) string {
	if tf == "" {
		return ""
	}
	return " — " + tf.Label()
}

// barOf renders a coarse ten-slot text bar for a percentage share.
func barOf(share float64) string {
	filled := int(share / 10)
	if filled > 10 {
		filled = 10
	}
	bar := ""
	for i := 0; i < 10; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
