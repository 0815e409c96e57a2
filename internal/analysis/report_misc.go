package analysis

import (
	"time"

	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/snapshot"
)

// timeBasedReport answers questions that carry only a time frame: current
// case status spread plus the activity (new cases, payments, appointments)
// inside the requested window.
func (r *Registry) timeBasedReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Activity " + a.TimeFrame.Label())

	if snap.Summary.TotalCases == 0 && snap.Summary.TotalPayments == 0 && snap.Summary.TotalDocuments == 0 {
		rep.line("No data for this period.")
		return rep.String()
	}

	// Case status is reported over the whole book: operators asking "this
	// month case status" care about the standing spread, not only cases
	// opened in the window.
	rep.line("Case status:")
	for _, gs := range groupCount(snap.Cases, func(c domain.Case) string { return c.Status }) {
		rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(snap.Cases)))
	}

	w := windowFor(a, now)
	newCases := casesIn(snap.Cases, w)
	pays := paymentsIn(snap.Payments, w)
	appts := appointmentsIn(snap.Cases, w)

	rep.section("In this window")
	rep.bullet("new cases: %d", len(newCases))
	rep.bullet("payments: %d (%s collected)", len(pays),
		fmtAmount(sumPayments(completedOnly(pays)), dominantCurrency(snap.Payments)))
	rep.bullet("appointments: %d", len(appts))

	if a.ComparisonRequested {
		r.appendCaseComparison(rep, a.TimeFrame, snap, now)
	}
	return rep.String()
}

// problemSolvingReport inspects the snapshot for bottlenecks and renders
// actionable recommendations. Purely heuristic: each check looks at one
// guarded ratio and emits a recommendation when it crosses its threshold.
func (r *Registry) problemSolvingReport(_ Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Assessment and recommendations")

	if snap.Summary.TotalCases == 0 {
		rep.line("There is no case data to assess yet. Start by registering cases and uploading their documents.")
		return rep.String()
	}

	total := len(snap.Cases)
	pending, completed := 0, 0
	for _, c := range snap.Cases {
		switch c.Status {
		case domain.CaseStatusPending:
			pending++
		case domain.CaseStatusCompleted:
			completed++
		}
	}

	issues := 0
	if ratio(pending, total) > 0.4 {
		issues++
		rep.bullet("⚠️ %s of cases are pending — triage the backlog and assign owners", fmtPercent(pending, total))
	}
	if rej := countDocs(snap.Documents, domain.DocStatusRejected); len(snap.Documents) > 0 && ratio(rej, len(snap.Documents)) > 0.2 {
		issues++
		rep.bullet("⚠️ document rejection rate is %s — add an intake checklist", fmtPercent(rej, len(snap.Documents)))
	}
	if exp := countDocs(snap.Documents, domain.DocStatusExpired); exp > 0 {
		issues++
		rep.bullet("⚠️ %d expired documents — schedule re-collection with clients", exp)
	}
	if pendPay := len(snap.Payments) - len(completedOnly(snap.Payments)); len(snap.Payments) > 0 && ratio(pendPay, len(snap.Payments)) > 0.3 {
		issues++
		rep.bullet("⚠️ %s of payments are uncollected — send payment reminders", fmtPercent(pendPay, len(snap.Payments)))
	}
	if overdue := countOverdueAppointments(snap.Cases, now); overdue > 0 {
		issues++
		rep.bullet("⚠️ %d appointments are in the past without case completion — follow up", overdue)
	}

	if issues == 0 {
		rep.bullet("✅ no blocking issues found — completion rate is %s", fmtPercent(completed, total))
	}

	rep.section("Suggested next steps")
	rep.bullet("review pending cases older than 30 days first")
	rep.bullet("keep document verification ahead of appointment dates")
	return rep.String()
}

// predictionReport extrapolates near-term volume from the last 30 days
// against the 30 days before that.
func (r *Registry) predictionReport(_ Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Trend and outlook")

	cur, _ := FrameLast30Days.WindowAt(now)
	prev := Window{Start: cur.Start.AddDate(0, 0, -30), End: cur.Start}

	nCur := len(casesIn(snap.Cases, cur))
	nPrev := len(casesIn(snap.Cases, prev))
	revCur := sumPayments(completedOnly(paymentsIn(snap.Payments, cur)))
	revPrev := sumPayments(completedOnly(paymentsIn(snap.Payments, prev)))
	currency := dominantCurrency(snap.Payments)

	if nCur == 0 && nPrev == 0 && revCur == 0 && revPrev == 0 {
		rep.line("Not enough recent activity to project a trend. Check back after a few weeks of data.")
		return rep.String()
	}

	rep.bullet("new cases, last 30 days: %d (previous 30: %d)", nCur, nPrev)
	rep.bullet("revenue, last 30 days: %s (previous 30: %s)",
		fmtAmount(revCur, currency), fmtAmount(revPrev, currency))

	rep.section("Outlook")
	switch {
	case nPrev == 0 && nCur > 0:
		rep.bullet("✅ case intake started this month — too early for a growth rate")
	case nPrev == 0:
		rep.bullet("case intake flat at zero")
	case nCur >= nPrev:
		rep.bullet("✅ case intake trending up %.1f%% — expect about %d new cases next month",
			float64(nCur-nPrev)/float64(nPrev)*100, projectNext(nCur, nPrev))
	default:
		rep.bullet("⚠️ case intake trending down %.1f%% — expect about %d new cases next month",
			float64(nPrev-nCur)/float64(nPrev)*100, projectNext(nCur, nPrev))
	}
	return rep.String()
}

// generalReport rotates uniformly across five analytical angles. The
// rotation is intentional variety for otherwise unclassifiable questions;
// the injected random source makes it reproducible in tests.
func (r *Registry) generalReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	angles := []func(Analysis, *snapshot.Snapshot, time.Time) string{
		r.efficiencyAngle,
		r.growthAngle,
		r.qualityAngle,
		r.performanceAngle,
		r.trendAngle,
	}
	pick := 0
	if r.rng != nil {
		pick = r.rng.Intn(len(angles))
	}
	return angles[pick](a, snap, now)
}

// --- general angles -------------------------------------------------------

func (r *Registry) efficiencyAngle(_ Analysis, snap *snapshot.Snapshot, _ time.Time) string {
	rep := &report{}
	rep.title("Efficiency check")

	total := len(snap.Cases)
	if total == 0 {
		rep.line("No case data yet — efficiency cannot be measured.")
		return rep.String()
	}
	completed := countCases(snap.Cases, domain.CaseStatusCompleted)
	verified := countDocs(snap.Documents, domain.DocStatusVerified)
	collected := len(completedOnly(snap.Payments))

	score := bandPoints(ratio(completed, total), quarterBands)
	score += bandPoints(ratio(verified, max(len(snap.Documents), 1)), quarterBands)
	score += bandPoints(ratio(collected, max(len(snap.Payments), 1)), quarterBands)
	score += bandPoints(ratio(len(withAppointments(snap.Cases)), total), quarterBands)
	score = clampScore(score)

	rep.bullet("completion rate: %s", fmtPercent(completed, total))
	rep.bullet("document verification rate: %s", fmtPercent(verified, len(snap.Documents)))
	rep.bullet("payment collection rate: %s", fmtPercent(collected, len(snap.Payments)))
	rep.bullet("appointment coverage: %s", fmtPercent(len(withAppointments(snap.Cases)), total))
	rep.section("Overall")
	rep.bullet("efficiency score: %d/100 (%s)", score, qualitativeLabel(score))
	return rep.String()
}

func (r *Registry) growthAngle(_ Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Growth snapshot")

	month, _ := FrameThisMonth.WindowAt(now)
	year, _ := FrameThisYear.WindowAt(now)
	rep.bullet("cases total: %d", snap.Summary.TotalCases)
	rep.bullet("new this month: %d", len(casesIn(snap.Cases, month)))
	rep.bullet("new this year: %d", len(casesIn(snap.Cases, year)))
	rep.bullet("revenue collected overall: %s",
		fmtAmount(snap.Summary.TotalRevenue, dominantCurrency(snap.Payments)))
	if snap.Summary.TotalCases == 0 {
		rep.section("Note")
		rep.bullet("no cases registered yet — growth tracking starts with the first case")
	}
	return rep.String()
}

func (r *Registry) qualityAngle(_ Analysis, snap *snapshot.Snapshot, _ time.Time) string {
	rep := &report{}
	rep.title("Quality check")

	nd := len(snap.Documents)
	if nd == 0 {
		rep.line("No documents uploaded yet — quality cannot be measured.")
		return rep.String()
	}
	verified := countDocs(snap.Documents, domain.DocStatusVerified)
	rejected := countDocs(snap.Documents, domain.DocStatusRejected)
	expired := countDocs(snap.Documents, domain.DocStatusExpired)
	score := documentHealthScore(verified, nd-verified-rejected-expired, rejected, expired, nd)

	rep.bullet("verified documents: %s", fmtPercent(verified, nd))
	rep.bullet("rejected documents: %s", fmtPercent(rejected, nd))
	rep.bullet("document health: %d/100 (%s)", score, qualitativeLabel(score))
	return rep.String()
}

func (r *Registry) performanceAngle(_ Analysis, snap *snapshot.Snapshot, _ time.Time) string {
	rep := &report{}
	rep.title("Team performance")

	if len(snap.Staff) == 0 {
		rep.line("No staff records — team performance cannot be measured.")
		return rep.String()
	}
	totalLoad := 0
	for _, s := range snap.Staff {
		totalLoad += s.CaseCount
	}
	rep.bullet("consultants: %d", len(snap.Staff))
	rep.bullet("average caseload: %.1f", float64(totalLoad)/float64(len(snap.Staff)))
	for _, s := range busiestStaff(snap.Staff, 3) {
		rep.bullet("%s: %d cases", s.Name, s.CaseCount)
	}
	return rep.String()
}

func (r *Registry) trendAngle(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	// The trend angle shares its computation with the prediction intent.
	return r.predictionReport(a, snap, now)
}

// --- shared counters ------------------------------------------------------

func countCases(cs []domain.Case, status string) int {
	n := 0
	for _, c := range cs {
		if c.Status == status {
			n++
		}
	}
	return n
}

func countDocs(ds []domain.Document, status string) int {
	n := 0
	for _, d := range ds {
		if d.Status == status {
			n++
		}
	}
	return n
}

func countOverdueAppointments(cs []domain.Case, now time.Time) int {
	n := 0
	for _, c := range cs {
		if c.AppointmentAt != nil && c.AppointmentAt.Before(now) &&
			c.Status != domain.CaseStatusCompleted && c.Status != domain.CaseStatusInactive {
			n++
		}
	}
	return n
}

// projectNext is a naive linear projection of next month's intake.
func projectNext(cur, prev int) int {
	if prev == 0 {
		return cur
	}
	next := cur + (cur - prev)
	if next < 0 {
		return 0
	}
	return next
}
