// Copyright © 2024 The ELPS authors

package semantic

import (
	"context"

	"github.com/tliron/commonlog"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer inference spans are recorded with.
const TracerName = "emmylua.semantic"

var log = commonlog.GetLogger("emmylua.semantic")

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// Measures recorded during inference.
var (
	MeasureGuardHits   = stats.Int64("emmylua/guard_hits", "Recursive inferences stopped by a guard", stats.UnitDimensionless)
	MeasureResolutions = stats.Int64("emmylua/overload_resolutions", "Overload resolutions", stats.UnitDimensionless)
)

// KeyOutcome tags overload resolutions with how the result was chosen.
var KeyOutcome = tag.MustNewKey("outcome")

// Outcomes of overload resolution.
const (
	outcomeSingle   = "single"
	outcomeExact    = "exact"
	outcomeSurvivor = "survivor"
	outcomeFallback = "fallback"
)

// Views aggregates the inference measures.
var Views = []*view.View{
	{
		Name:        "emmylua/guard_hits",
		Description: "Recursive inferences stopped by a guard",
		Measure:     MeasureGuardHits,
		Aggregation: view.Count(),
	},
	{
		Name:        "emmylua/overload_resolutions",
		Description: "Overload resolutions by outcome",
		Measure:     MeasureResolutions,
		TagKeys:     []tag.Key{KeyOutcome},
		Aggregation: view.Count(),
	},
}

// RegisterViews registers the inference views with opencensus.
func RegisterViews() error {
	return view.Register(Views...)
}

func recordGuardHit() {
	stats.Record(context.Background(), MeasureGuardHits.M(1))
}

func recordResolution(ctx context.Context, outcome string) {
	err := stats.RecordWithTags(context.WithoutCancel(ctx),
		[]tag.Mutator{tag.Upsert(KeyOutcome, outcome)},
		MeasureResolutions.M(1),
	)
	if err != nil {
		log.Debugf("record stats: %v", err)
	}
}
