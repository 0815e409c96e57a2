package analysis

import (
	"sort"
	"time"

	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/snapshot"
)

// appointmentOverviewReport summarizes scheduled appointments: coverage of
// the case book, upcoming entries, and overdue ones.
func (r *Registry) appointmentOverviewReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Appointment overview" + frameSuffix(a.TimeFrame))

	scheduled := withAppointments(snap.Cases)
	if a.TimeFrame != "" {
		scheduled = appointmentsIn(scheduled, windowFor(a, now))
	}
	if len(scheduled) == 0 {
		rep.line("No appointments for this period.")
		return rep.String()
	}

	upcoming, overdue := 0, 0
	for _, c := range scheduled {
		if c.AppointmentAt.After(now) {
			upcoming++
		} else {
			overdue++
		}
	}

	rep.line("Scheduled appointments: %d", len(scheduled))
	rep.bullet("upcoming: %d", upcoming)
	if overdue > 0 {
		rep.bullet("⚠️ in the past (follow up): %d", overdue)
	}
	rep.bullet("case coverage: %s of cases have an appointment",
		fmtPercent(len(withAppointments(snap.Cases)), len(snap.Cases)))

	rep.section("Next appointments")
	for _, c := range nextAppointments(scheduled, now, r.sectionItems) {
		rep.bullet("%s — %s on %s", c.Name, orNotSpecified(c.Country),
			c.AppointmentAt.Format("2006-01-02 15:04"))
	}
	return rep.String()
}

// detailedAppointmentReport renders one section per requested facet over the
// scheduled cases.
func (r *Registry) detailedAppointmentReport(a Analysis, snap *snapshot.Snapshot, now time.Time) string {
	rep := &report{}
	rep.title("Appointment details" + frameSuffix(a.TimeFrame))

	scheduled := withAppointments(snap.Cases)
	if a.TimeFrame != "" {
		scheduled = appointmentsIn(scheduled, windowFor(a, now))
	}
	if len(scheduled) == 0 {
		rep.line("No appointments for this period.")
		return rep.String()
	}

	for _, facet := range a.DetailFacets {
		switch facet {
		case FacetTop, FacetRecent:
			rep.section("Next appointments")
			for _, c := range nextAppointments(scheduled, now, r.sectionItems) {
				rep.bullet("%s — %s on %s", c.Name, orNotSpecified(c.VisaType),
					c.AppointmentAt.Format("2006-01-02 15:04"))
			}
		case FacetActive:
			rep.section("Appointments for active cases")
			n := 0
			for _, c := range scheduled {
				if c.Status != domain.CaseStatusActive {
					continue
				}
				rep.bullet("%s on %s", c.Name, c.AppointmentAt.Format("2006-01-02 15:04"))
				n++
				if n >= r.sectionItems {
					break
				}
			}
			if n == 0 {
				rep.bullet("none")
			}
		case FacetByStatus:
			rep.section("Appointments by case status")
			for _, gs := range groupCount(scheduled, func(c domain.Case) string { return c.Status }) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(scheduled)))
			}
		case FacetByCountry:
			rep.section("Appointments by country")
			for _, gs := range topN(groupCount(scheduled, func(c domain.Case) string { return c.Country }), r.sectionItems) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(scheduled)))
			}
		case FacetChart:
			rep.section("Case status distribution")
			for _, gs := range groupCount(scheduled, func(c domain.Case) string { return c.Status }) {
				rep.bullet("%-10s %s %d", gs.Key, barOf(gs.Share), gs.Count)
			}
		}
	}
	return rep.String()
}

// withAppointments filters cases that have an appointment set.
func withAppointments(cs []domain.Case) []domain.Case {
	out := make([]domain.Case, 0, len(cs))
	for _, c := range cs {
		if c.AppointmentAt != nil {
			out = append(out, c)
		}
	}
	return out
}

// nextAppointments orders scheduled cases by appointment time ascending,
// future entries first, and truncates to n.
func nextAppointments(cs []domain.Case, now time.Time, n int) []domain.Case {
	out := make([]domain.Case, len(cs))
	copy(out, cs)
	sort.Slice(out, func(i, j int) bool {
		iFuture := out[i].AppointmentAt.After(now)
		jFuture := out[j].AppointmentAt.After(now)
		if iFuture != jFuture {
			return iFuture
		}
		return out[i].AppointmentAt.Before(*out[j].AppointmentAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
