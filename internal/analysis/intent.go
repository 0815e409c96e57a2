// Package analysis implements the assistant's conversational analytics
// engine: a keyword-driven intent classifier, a registry of deterministic
// report generators over a case-data snapshot, and the hybrid resolution
// controller that chains remote-AI strategies with the local generator
// fallback.
//
// The package does no persistence and holds no ambient state: every entry
// point receives its inputs (question, snapshot, AI configuration) explicitly
// and returns text.
package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Intent identifies which report generator answers a question.
type Intent string

// Classified intents, from most to least specific.
const (
	IntentSpecificCase        Intent = "specific_case_lookup"
	IntentProblemSolving      Intent = "problem_solving"
	IntentPrediction          Intent = "prediction"
	IntentDetailedCase        Intent = "detailed_case"
	IntentDetailedRevenue     Intent = "detailed_revenue"
	IntentDetailedAppointment Intent = "detailed_appointment"
	IntentDetailedStaff       Intent = "detailed_staff"
	IntentDetailedDocument    Intent = "detailed_document"
	IntentTimeBased           Intent = "time_based"
	IntentCaseOverview        Intent = "case_overview"
	IntentRevenueOverview     Intent = "revenue_overview"
	IntentAppointmentOverview Intent = "appointment_overview"
	IntentStaffOverview       Intent = "staff_overview"
	IntentDocumentOverview    Intent = "document_overview"
	IntentGeneral             Intent = "general"
)

// TimeFrame restricts a report to a relative time window. The empty value
// means "no time restriction".
type TimeFrame string

// Supported time frames, in classifier priority order.
const (
	FrameToday      TimeFrame = "today"
	FrameThisWeek   TimeFrame = "this_week"
	FrameThisMonth  TimeFrame = "this_month"
	FrameLastMonth  TimeFrame = "last_month"
	FrameThisYear   TimeFrame = "this_year"
	FrameLast7Days  TimeFrame = "last_7_days"
	FrameLast30Days TimeFrame = "last_30_days"
)

// DetailFacet is an additive qualifier requesting one extra section in a
// detailed report.
type DetailFacet string

// Recognized detail facets, in canonical section order.
const (
	FacetTop       DetailFacet = "top"
	FacetBottom    DetailFacet = "bottom"
	FacetRecent    DetailFacet = "recent"
	FacetActive    DetailFacet = "active"
	FacetInactive  DetailFacet = "inactive"
	FacetByStatus  DetailFacet = "by_status"
	FacetByType    DetailFacet = "by_type"
	FacetByCountry DetailFacet = "by_country"
	FacetChart     DetailFacet = "chart"
)

// Analysis is the transient classification result: the selected intent plus
// the parameters extracted from the question. It is produced by Classify,
// consumed by exactly one report generator, and never stored.
type Analysis struct {
	Question            string
	Intent              Intent
	TimeFrame           TimeFrame
	ComparisonRequested bool
	DetailFacets        []DetailFacet
}

// HasFacet reports whether the given facet was requested.
func (a Analysis) HasFacet(f DetailFacet) bool {
	for _, df := range a.DetailFacets {
		if df == f {
			return true
		}
	}
	return false
}

// category is an internal report category matched by rule 6 of the waterfall.
type category string

const (
	catCase        category = "case"
	catRevenue     category = "revenue"
	catAppointment category = "appointment"
	catStaff       category = "staff"
	catDocument    category = "document"
)

// keywordSet is one named group of keywords. Entries containing a space are
// phrases, matched as substrings of the folded question. Single-word entries
// match whole tokens by prefix, so stems like "countr" still catch
// "countries" while "how" can never fire inside "show" or "somehow".
type keywordSet struct {
	name     string
	keywords []string
}

func (ks keywordSet) match(q string, toks []string) bool {
	for _, kw := range ks.keywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(q, kw) {
				return true
			}
			continue
		}
		for _, t := range toks {
			if strings.HasPrefix(t, kw) {
				return true
			}
		}
	}
	return false
}

// tokenize splits a folded question into word tokens, dropping punctuation.
// Computed once per Classify call and shared by every keyword table.
func tokenize(q string) []string {
	return strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// --- fixed keyword tables -------------------------------------------------
//
// Order matters throughout: the first matching entry wins, both within the
// time-frame table and across the intent rules below. The tables are data,
// not code, so the precedence is auditable in one place.

var timeFrameRules = []struct {
	frame    TimeFrame
	keywords []string
}{
	{FrameToday, []string{"today", "this day"}},
	{FrameThisWeek, []string{"this week", "current week"}},
	{FrameThisMonth, []string{"this month", "current month"}},
	{FrameLastMonth, []string{"last month", "previous month"}},
	{FrameThisYear, []string{"this year", "current year"}},
	{FrameLast7Days, []string{"last 7 days", "past 7 days", "past week"}},
	{FrameLast30Days, []string{"last 30 days", "past 30 days"}},
}

var comparisonKeywords = keywordSet{"comparison", []string{
	"compare", "comparison", "difference", "versus", " vs ", "which one",
}}

var lookupKeywords = keywordSet{"lookup", []string{
	"named", "called", "look up", "lookup", "find case", "case of", "status of",
}}

var problemKeywords = keywordSet{"problem", []string{
	"how", "why", "solution", "solve", "recommendation", "recommend", "suggest",
}}

var forecastKeywords = keywordSet{"forecast", []string{
	"future", "forecast", "predict", "projection", "trend", "growth",
}}

var categoryRules = []struct {
	cat      category
	keywords []string
}{
	{catCase, []string{"case", "client", "application", "visa", "countr"}},
	{catRevenue, []string{"revenue", "payment", "income", "earning", "invoice"}},
	{catAppointment, []string{"appointment", "meeting", "schedule", "interview"}},
	{catStaff, []string{"staff", "consultant", "team", "workload"}},
	{catDocument, []string{"document", "file", "paperwork", "upload"}},
}

// facetRules are evaluated in canonical order; every matching facet is
// collected (facets are additive, unlike intents).
var facetRules = []struct {
	facet    DetailFacet
	keywords []string
}{
	{FacetTop, []string{"top", "most", "highest", "best"}},
	{FacetBottom, []string{"bottom", "least", "lowest", "fewest"}},
	{FacetRecent, []string{"recent", "latest", "newest"}},
	{FacetActive, []string{"active", "ongoing", "open"}},
	{FacetInactive, []string{"inactive", "dormant", "stale"}},
	{FacetByStatus, []string{"by status", "status breakdown", "status distribution"}},
	{FacetByType, []string{"by type", "by visa type", "type breakdown"}},
	{FacetByCountry, []string{"by country", "countr", "destination"}},
	{FacetChart, []string{"chart", "graph", "visual"}},
}

var detailedIntents = map[category]Intent{
	catCase:        IntentDetailedCase,
	catRevenue:     IntentDetailedRevenue,
	catAppointment: IntentDetailedAppointment,
	catStaff:       IntentDetailedStaff,
	catDocument:    IntentDetailedDocument,
}

var overviewIntents = map[category]Intent{
	catCase:        IntentCaseOverview,
	catRevenue:     IntentRevenueOverview,
	catAppointment: IntentAppointmentOverview,
	catStaff:       IntentStaffOverview,
	catDocument:    IntentDocumentOverview,
}

// --- classifier -----------------------------------------------------------

// Classifier turns free-text operator questions into an Analysis. It is a
// strict waterfall over ordered keyword tables: the first matching intent
// rule terminates classification; ties are resolved by rule order, never by
// keyword count. Case folding honors the configured locale so questions with
// diacritics classify the same as their folded forms.
type Classifier struct {
	fold cases.Caser
}

// NewClassifier builds a Classifier folding case for the given locale.
// language.Und falls back to English folding.
func NewClassifier(locale language.Tag) *Classifier {
	if locale == language.Und {
		locale = language.English
	}
	return &Classifier{fold: cases.Lower(locale)}
}

// Classify parses a raw question into an Analysis. It never fails: an
// unmatched question resolves to IntentGeneral with all parameters at their
// defaults.
func (c *Classifier) Classify(question string) Analysis {
	a := Analysis{Question: question, Intent: IntentGeneral}
	q := c.fold.String(strings.TrimSpace(question))
	if q == "" {
		return a
	}
	toks := tokenize(q)

	// Parameter extraction: time frame (first match wins) and comparison
	// flag. These never terminate classification on their own.
	for _, tr := range timeFrameRules {
		if (keywordSet{keywords: tr.keywords}).match(q, toks) {
			a.TimeFrame = tr.frame
			break
		}
	}
	a.ComparisonRequested = comparisonKeywords.match(q, toks)

	// Intent waterfall. Earlier rules take precedence.
	switch {
	case lookupKeywords.match(q, toks):
		a.Intent = IntentSpecificCase
	case problemKeywords.match(q, toks):
		a.Intent = IntentProblemSolving
	case forecastKeywords.match(q, toks):
		a.Intent = IntentPrediction
	default:
		a.Intent, a.DetailFacets = c.classifyCategory(q, toks, a.TimeFrame)
	}
	return a
}

// classifyCategory implements waterfall rules 6-8: a category keyword plus at
// least one detail qualifier yields a detailed_<category> intent with the
// collected facets; a bare time frame yields time_based; a category keyword
// alone yields the category overview; anything else is general.
func (c *Classifier) classifyCategory(q string, toks []string, frame TimeFrame) (Intent, []DetailFacet) {
	var cat category
	var haveCat bool
	for _, cr := range categoryRules {
		if (keywordSet{keywords: cr.keywords}).match(q, toks) {
			cat, haveCat = cr.cat, true
			break
		}
	}

	// Token matching keeps "active" from firing inside "inactive", so the
	// facets need no suppression pass.
	var facets []DetailFacet
	for _, fr := range facetRules {
		if (keywordSet{keywords: fr.keywords}).match(q, toks) {
			facets = append(facets, fr.facet)
		}
	}

	switch {
	case haveCat && len(facets) > 0:
		return detailedIntents[cat], facets
	case frame != "":
		return IntentTimeBased, nil
	case haveCat:
		return overviewIntents[cat], nil
	default:
		return IntentGeneral, nil
	}
}
