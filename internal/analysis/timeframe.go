package analysis

import (
	"time"

	"github.com/visaflow/crm-backend/internal/domain"
)

// Window is a half-open time interval [Start, End). A zero End means the
// window is unbounded on the right.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End) {
		return false
	}
	return true
}

// Label returns the operator-facing name of the time frame.
func (tf TimeFrame) Label() string {
	switch tf {
	case FrameToday:
		return "today"
	case FrameThisWeek:
		return "this week"
	case FrameThisMonth:
		return "this month"
	case FrameLastMonth:
		return "last month"
	case FrameThisYear:
		return "this year"
	case FrameLast7Days:
		return "the last 7 days"
	case FrameLast30Days:
		return "the last 30 days"
	default:
		return "all time"
	}
}

// WindowAt computes the concrete time window for the frame relative to now,
// in now's location. The second return is false when the frame is empty
// (no time restriction).
func (tf TimeFrame) WindowAt(now time.Time) (Window, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch tf {
	case FrameToday:
		return Window{Start: midnight}, true
	case FrameThisWeek:
		// Week starts Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return Window{Start: midnight.AddDate(0, 0, -offset)}, true
	case FrameThisMonth:
		return Window{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())}, true
	case FrameLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Window{Start: first.AddDate(0, -1, 0), End: first}, true
	case FrameThisYear:
		return Window{Start: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())}, true
	case FrameLast7Days:
		return Window{Start: now.AddDate(0, 0, -7)}, true
	case FrameLast30Days:
		return Window{Start: now.AddDate(0, 0, -30)}, true
	default:
		return Window{}, false
	}
}

// PreviousWindowAt returns the window immediately preceding the frame's
// window, with the same length. Used for period-over-period comparison
// sections and the prediction generator.
func (tf TimeFrame) PreviousWindowAt(now time.Time) (Window, bool) {
	w, ok := tf.WindowAt(now)
	if !ok {
		return Window{}, false
	}
	end := w.End
	if end.IsZero() {
		end = now
	}
	span := end.Sub(w.Start)
	if span <= 0 {
		return Window{}, false
	}
	return Window{Start: w.Start.Add(-span), End: w.Start}, true
}

// casesIn filters cases by creation time.
func casesIn(cs []domain.Case, w Window) []domain.Case {
	out := make([]domain.Case, 0, len(cs))
	for _, c := range cs {
		if w.Contains(c.CreatedAt) {
			out = append(out, c)
		}
	}
	return out
}

// paymentsIn filters payments by payment time.
func paymentsIn(ps []domain.Payment, w Window) []domain.Payment {
	out := make([]domain.Payment, 0, len(ps))
	for _, p := range ps {
		if w.Contains(p.PaidAt) {
			out = append(out, p)
		}
	}
	return out
}

// documentsIn filters documents by upload time.
func documentsIn(ds []domain.Document, w Window) []domain.Document {
	out := make([]domain.Document, 0, len(ds))
	for _, d := range ds {
		if w.Contains(d.UploadedAt) {
			out = append(out, d)
		}
	}
	return out
}

// appointmentsIn filters cases whose appointment falls inside the window.
// Cases without an appointment are skipped.
func appointmentsIn(cs []domain.Case, w Window) []domain.Case {
	out := make([]domain.Case, 0, len(cs))
	for _, c := range cs {
		if c.AppointmentAt != nil && w.Contains(*c.AppointmentAt) {
			out = append(out, c)
		}
	}
	return out
}
