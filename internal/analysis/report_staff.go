package analysis

import (
	"sort"
	"time"

	"github.com/visaflow/crm-backend/internal/domain"
	"github.com/visaflow/crm-backend/internal/snapshot"
)

// staffOverviewReport summarizes the team: headcount, workload spread, and
// average caseload.
func (r *Registry) staffOverviewReport(a Analysis, snap *snapshot.Snapshot, _ time.Time) string {
	rep := &report{}
	rep.title("Team overview")

	st := snap.Staff
	if len(st) == 0 {
		rep.line("No staff records on file.")
		return rep.String()
	}

	active := 0
	totalLoad := 0
	for _, s := range st {
		if s.Status == "active" {
			active++
		}
		totalLoad += s.CaseCount
	}
	rep.line("Consultants: %d (%d active)", len(st), active)
	rep.bullet("assigned cases: %d", totalLoad)
	if len(st) > 0 {
		rep.bullet("average caseload: %.1f cases per consultant", float64(totalLoad)/float64(len(st)))
	}
	unassigned := len(snap.Cases) - totalLoad
	if unassigned > 0 {
		rep.bullet("⚠️ unassigned cases: %d", unassigned)
	}

	rep.section("Busiest consultants")
	for _, s := range busiestStaff(st, r.sectionItems) {
		rep.bullet("%s: %d cases (%s)", s.Name, s.CaseCount, s.Status)
	}
	return rep.String()
}

// detailedStaffReport renders one section per requested facet over the team.
func (r *Registry) detailedStaffReport(a Analysis, snap *snapshot.Snapshot, _ time.Time) string {
	rep := &report{}
	rep.title("Team details")

	st := snap.Staff
	if len(st) == 0 {
		rep.line("No staff records on file.")
		return rep.String()
	}

	for _, facet := range a.DetailFacets {
		switch facet {
		case FacetTop:
			rep.section("Highest caseload")
			for _, s := range busiestStaff(st, r.sectionItems) {
				rep.bullet("%s: %d cases", s.Name, s.CaseCount)
			}
		case FacetBottom:
			all := busiestStaff(st, len(st))
			rep.section("Lowest caseload")
			for i := len(all) - 1; i >= 0 && len(all)-i <= r.sectionItems; i-- {
				rep.bullet("%s: %d cases", all[i].Name, all[i].CaseCount)
			}
		case FacetActive:
			rep.section("Active consultants")
			r.listStaffByStatus(rep, st, "active")
		case FacetInactive:
			rep.section("Inactive consultants")
			r.listStaffByStatus(rep, st, "inactive")
		case FacetRecent:
			rep.section("Recently added")
			for _, s := range latestStaff(st, r.sectionItems) {
				rep.bullet("%s (joined %s)", s.Name, s.CreatedAt.Format("2006-01-02"))
			}
		case FacetByStatus:
			rep.section("Consultants by status")
			for _, gs := range groupCount(st, func(s domain.Staff) string { return s.Status }) {
				rep.bullet("%s: %d (%s)", gs.Key, gs.Count, fmtPercent(gs.Count, len(st)))
			}
		case FacetChart:
			rep.section("Workload distribution")
			maxLoad := 0
			for _, s := range st {
				if s.CaseCount > maxLoad {
					maxLoad = s.CaseCount
				}
			}
			for _, s := range busiestStaff(st, r.sectionItems) {
				share := 0.0
				if maxLoad > 0 {
					share = float64(s.CaseCount) / float64(maxLoad) * 100
				}
				rep.bullet("%-20s %s %d", s.Name, barOf(share), s.CaseCount)
			}
		}
	}
	return rep.String()
}

func (r *Registry) listStaffByStatus(rep *report, st []domain.Staff, status string) {
	n := 0
	for _, s := range st {
		if s.Status != status {
			continue
		}
		rep.bullet("%s — %d cases", s.Name, s.CaseCount)
		n++
		if n >= r.sectionItems {
			break
		}
	}
	if n == 0 {
		rep.bullet("none")
	}
}

func busiestStaff(st []domain.Staff, n int) []domain.Staff {
	out := make([]domain.Staff, len(st))
	copy(out, st)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CaseCount != out[j].CaseCount {
			return out[i].CaseCount > out[j].CaseCount
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func latestStaff(st []domain.Staff, n int) []domain.Staff {
	out := make([]domain.Staff, len(st))
	copy(out, st)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
