package analysis

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// placeholder rendered for missing record fields. Generators must never fail
// on absent data.
const notSpecified = "not specified"

// notAvailable is the neutral placeholder for ratios whose denominator is
// zero.
const notAvailable = "N/A"

// percent returns part/total as a percentage, guarded against a zero total.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// fmtPercent renders a ratio as "62.5%" with one decimal, or N/A when the
// total is zero.
func fmtPercent(part, total int) string {
	if total == 0 {
		return notAvailable
	}
	return fmt.Sprintf("%.1f%%", percent(part, total))
}

// ratio returns part/total guarded against division by zero.
func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// amountPrinter renders currency amounts with locale thousands separators.
var amountPrinter = message.NewPrinter(language.English)

// fmtAmount renders a monetary value like "12,450.50 EUR". An empty currency
// code falls back to EUR.
func fmtAmount(v float64, currency string) string {
	if currency == "" {
		currency = "EUR"
	}
	return amountPrinter.Sprintf("%v %s",
		number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)),
		currency)
}

// orNotSpecified substitutes the placeholder for empty string fields.
func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

// groupStat is one row of a grouped distribution.
type groupStat struct {
	Key   string
	Count int
	Share float64 // percentage of total, 0 when total is 0
}

// groupCount groups items by the string key function, computes per-group
// counts and percentage shares, and returns rows sorted by count descending
// (key ascending on ties, for deterministic output). Empty keys are bucketed
// under the "not specified" placeholder.
func groupCount[T any](items []T, key func(T) string) []groupStat {
	counts := make(map[string]int)
	for _, it := range items {
		counts[orNotSpecified(key(it))]++
	}
	out := make([]groupStat, 0, len(counts))
	for k, n := range counts {
		out = append(out, groupStat{Key: k, Count: n, Share: percent(n, len(items))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// topN truncates a grouped distribution to its first n rows.
func topN(stats []groupStat, n int) []groupStat {
	if n > 0 && len(stats) > n {
		return stats[:n]
	}
	return stats
}

// report accumulates generator output line by line.
type report struct {
	lines []string
}

func (r *report) title(s string) {
	r.lines = append(r.lines, "**"+s+"**")
}

func (r *report) line(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *report) bullet(format string, args ...any) {
	r.lines = append(r.lines, "• "+fmt.Sprintf(format, args...))
}

func (r *report) blank() {
	r.lines = append(r.lines, "")
}

// section starts a new titled section separated from previous content.
func (r *report) section(s string) {
	if len(r.lines) > 0 {
		r.blank()
	}
	r.title(s)
}

func (r *report) String() string {
	return strings.TrimRight(strings.Join(r.lines, "\n"), "\n")
}
