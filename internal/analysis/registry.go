package analysis

import (
	"math/rand"
	"time"

	"github.com/visaflow/crm-backend/internal/snapshot"
)

// defaultSectionItems caps the number of rows rendered per detail section so
// report size stays bounded regardless of snapshot size.
const defaultSectionItems = 5

// Generator produces one report for a classified question over a snapshot.
// Generators are pure: identical inputs yield identical text. The single
// exception is the general generator, whose analytical angle is drawn from
// the registry's injected random source.
type Generator func(a Analysis, snap *snapshot.Snapshot, now time.Time) string

// Registry maps every intent to its report generator. The zero value is not
// usable; construct with NewRegistry.
//
// Registry instances are not safe for concurrent use of the general intent
// (the random source is not synchronized); callers serialize analyses per
// conversation, which covers this.
type Registry struct {
	rng          *rand.Rand
	now          func() time.Time
	sectionItems int
	generators   map[Intent]Generator
}

// NewRegistry builds a Registry. rng drives the general generator's angle
// rotation; a nil rng pins the general report to the efficiency angle, which
// is how tests get deterministic output. now is the clock used for
// time-window cutoffs (nil means time.Now).
func NewRegistry(rng *rand.Rand, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	r := &Registry{
		rng:          rng,
		now:          now,
		sectionItems: defaultSectionItems,
	}
	r.generators = map[Intent]Generator{
		IntentSpecificCase:        r.specificCaseReport,
		IntentProblemSolving:      r.problemSolvingReport,
		IntentPrediction:          r.predictionReport,
		IntentDetailedCase:        r.detailedCaseReport,
		IntentDetailedRevenue:     r.detailedRevenueReport,
		IntentDetailedAppointment: r.detailedAppointmentReport,
		IntentDetailedStaff:       r.detailedStaffReport,
		IntentDetailedDocument:    r.detailedDocumentReport,
		IntentTimeBased:           r.timeBasedReport,
		IntentCaseOverview:        r.caseOverviewReport,
		IntentRevenueOverview:     r.revenueOverviewReport,
		IntentAppointmentOverview: r.appointmentOverviewReport,
		IntentStaffOverview:       r.staffOverviewReport,
		IntentDocumentOverview:    r.documentOverviewReport,
		IntentGeneral:             r.generalReport,
	}
	return r
}

// Generate runs the generator registered for the analysis intent. It always
// returns non-empty text: unknown intents degrade to the general report and
// a nil snapshot is treated as empty.
func (r *Registry) Generate(a Analysis, snap *snapshot.Snapshot) string {
	if snap == nil {
		snap = &snapshot.Snapshot{}
	}
	gen, ok := r.generators[a.Intent]
	if !ok {
		gen = r.generalReport
	}
	out := gen(a, snap, r.now())
	if out == "" {
		out = "No case data is available for this question yet."
	}
	return out
}

// windowFor resolves the analysis time frame into a concrete window; the
// unbounded window covers everything when no frame was requested.
func windowFor(a Analysis, now time.Time) Window {
	if w, ok := a.TimeFrame.WindowAt(now); ok {
		return w
	}
	return Window{}
}
