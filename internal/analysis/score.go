package analysis

// scoreBand maps a ratio threshold to awarded points. Bands are evaluated in
// order; the first threshold the ratio exceeds wins.
type scoreBand struct {
	above  float64
	points int
}

// Standard band ladders reused by the health and efficiency scores. Each
// ladder awards up to 25 points per ratio; four ratios compose a 0-100 score.
var (
	quarterBands = []scoreBand{{0.80, 25}, {0.60, 15}, {0.40, 10}}
	// inverseQuarterBands rewards LOW ratios (e.g. rejection rate).
	inverseQuarterBands = []scoreBand{{0.40, 0}, {0.20, 10}, {0.10, 15}}
)

// bandPoints returns the points for a ratio against a band ladder;
// ratios below every threshold score zero.
func bandPoints(r float64, bands []scoreBand) int {
	for _, b := range bands {
		if r > b.above {
			return b.points
		}
	}
	return 0
}

// inverseBandPoints scores ratios where lower is better: full points below
// the smallest threshold, descending as the ratio grows.
func inverseBandPoints(r float64, bands []scoreBand) int {
	for _, b := range bands {
		if r > b.above {
			return b.points
		}
	}
	return 25
}

// qualitativeLabel buckets a 0-100 composite score into the fixed
// operator-facing labels.
func qualitativeLabel(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	default:
		return "needs improvement"
	}
}

// clampScore bounds a composite score to [0, 100].
func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
