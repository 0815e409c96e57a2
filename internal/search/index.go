// Package search provides a small, deterministic, concurrency-safe in-memory
// index over case records, used by the assistant's case-lookup report to map
// free-text questions onto client names. Design points:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// case's token set (name, country, visa type), with an exact-name boost.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/visaflow/crm-backend/internal/domain"
)

// Match is a ranked case with its similarity score.
type Match struct {
	Case  domain.Case
	Score float64
}

// Index is the minimal lookup interface.
type Index interface {
	TopK(query string, k int) []Match
}

type caseEntry struct {
	rec    domain.Case
	name   string
	tokens map[string]struct{}
}

type caseIndex struct {
	entries []caseEntry
}

var tokenRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopwords dropped from both queries and case text; mostly lookup filler
// ("find the case of ...").
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"find": {}, "look": {}, "lookup": {}, "up": {}, "case": {}, "cases": {},
	"status": {}, "named": {}, "called": {}, "client": {}, "show": {}, "me": {},
	"what": {}, "who": {}, "about": {},
}

// NewCaseIndex builds an immutable Index over the given cases.
func NewCaseIndex(cases []domain.Case) Index {
	entries := make([]caseEntry, 0, len(cases))
	for _, c := range cases {
		text := strings.Join([]string{c.Name, c.Country, c.VisaType}, " ")
		toks := tokenize(text)
		if len(toks) == 0 {
			continue
		}
		entries = append(entries, caseEntry{
			rec:    c,
			name:   strings.ToLower(strings.TrimSpace(c.Name)),
			tokens: toks,
		})
	}
	return &caseIndex{entries: entries}
}

// TopK returns up to k cases ranked by similarity to the query, best first.
// Zero-score entries are dropped; ties break on case ID for stable output.
func (ix *caseIndex) TopK(query string, k int) []Match {
	if k <= 0 || len(ix.entries) == 0 {
		return nil
	}
	qToks := tokenize(query)
	if len(qToks) == 0 {
		return nil
	}
	qLower := strings.ToLower(query)

	matches := make([]Match, 0, len(ix.entries))
	for _, e := range ix.entries {
		s := jaccard(qToks, e.tokens)
		// Exact full-name mention dominates token overlap.
		if e.name != "" && strings.Contains(qLower, e.name) {
			s += 0.5
		}
		if s <= 0 {
			continue
		}
		if s > 1 {
			s = 1
		}
		matches = append(matches, Match{Case: e.rec, Score: s})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Case.ID < matches[j].Case.ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range tokenRE.FindAllString(strings.ToLower(s), -1) {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
