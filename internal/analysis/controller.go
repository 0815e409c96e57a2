package analysis

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/visaflow/crm-backend/internal/ai"
	"github.com/visaflow/crm-backend/internal/snapshot"
)

// HybridStrategy is the remote service combining retrieval with a structured
// query over the case data. Its answer, when it succeeds, is returned to the
// operator verbatim.
type HybridStrategy interface {
	Ask(ctx context.Context, question, apiKey string) (string, error)
}

// ClassicStrategy is the general-purpose remote model that receives the
// question together with a serialized snapshot.
type ClassicStrategy interface {
	Analyze(ctx context.Context, question string, snap *snapshot.Snapshot, cfg ai.Config) (string, error)
}

// classicAnswerPrefix marks answers produced by the classic remote strategy
// so the conversation view can attribute them.
const classicAnswerPrefix = "🤖 AI analysis:\n\n"

var resolutionOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "assistant_resolution_total",
		Help: "Resolution attempts by strategy and outcome.",
	},
	[]string{"strategy", "outcome"},
)

func init() {
	prometheus.MustRegister(resolutionOutcomes)
}

// Controller orchestrates the per-question resolution chain: structured
// hybrid remote, classic remote, then the local deterministic generator.
// The remote attempts are strictly sequential and best-effort; any failure
// inside them is logged and swallowed, never surfaced to the caller. The
// local step is the correctness backstop and cannot fail.
type Controller struct {
	Hybrid     HybridStrategy
	Classic    ClassicStrategy
	Classifier *Classifier
	Registry   *Registry

	// CompactLocal trims local answers to their emphasized lines, keeping
	// remote-AI-disabled replies terse.
	CompactLocal bool

	Logger zerolog.Logger
}

// Resolve answers one question over one snapshot. It always returns text and
// never panics; the returned string is the first successful strategy's
// answer. Side-effect free beyond metrics and logs: the snapshot is read
// only and no state is persisted.
func (c *Controller) Resolve(ctx context.Context, question string, snap *snapshot.Snapshot, cfg ai.Config) string {
	remoteEligible := cfg.UseRemoteAI && cfg.APIKey != ""

	if remoteEligible && c.Hybrid != nil {
		answer, err := c.Hybrid.Ask(ctx, question, cfg.APIKey)
		if err == nil && answer != "" {
			resolutionOutcomes.WithLabelValues("hybrid", "success").Inc()
			return answer
		}
		resolutionOutcomes.WithLabelValues("hybrid", "failure").Inc()
		c.Logger.Warn().Err(err).Msg("hybrid strategy failed, falling back")
	}

	if remoteEligible && c.Classic != nil {
		answer, err := c.Classic.Analyze(ctx, question, snap, cfg)
		if err == nil && answer != "" {
			resolutionOutcomes.WithLabelValues("classic", "success").Inc()
			return classicAnswerPrefix + answer
		}
		resolutionOutcomes.WithLabelValues("classic", "failure").Inc()
		c.Logger.Warn().Err(err).Msg("classic strategy failed, falling back")
	}

	resolutionOutcomes.WithLabelValues("local", "success").Inc()
	return c.resolveLocal(question, snap)
}

// resolveLocal runs the deterministic path: classify, generate, and
// optionally compact. It has no further fallback and is written to be
// failure-free for any snapshot, including a nil or empty one.
func (c *Controller) resolveLocal(question string, snap *snapshot.Snapshot) string {
	a := c.Classifier.Classify(question)
	answer := c.Registry.Generate(a, snap)
	if c.CompactLocal {
		answer = Compact(answer)
	}
	return answer
}
