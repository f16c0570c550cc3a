// Copyright © 2024 The ELPS authors

package analysis

import (
	"context"

	"github.com/tliron/commonlog"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer analysis spans are recorded with.
const TracerName = "emmylua.analysis"

var log = commonlog.GetLogger("emmylua.analysis")

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// Measures recorded by the database.
var (
	MeasureFilesAnalyzed  = stats.Int64("emmylua/files_analyzed", "Number of files analyzed", stats.UnitDimensionless)
	MeasureAnalysisDiags  = stats.Int64("emmylua/analysis_diagnostics", "Diagnostics produced by file analysis", stats.UnitDimensionless)
	MeasureUpdatesDropped = stats.Int64("emmylua/updates_dropped", "File updates discarded after cancellation", stats.UnitDimensionless)
)

// KeyWorkspace tags measures with the workspace of the file.
var KeyWorkspace = tag.MustNewKey("workspace")

// Views aggregates the analysis measures.
var Views = []*view.View{
	{
		Name:        "emmylua/files_analyzed",
		Description: "Files analyzed by workspace",
		Measure:     MeasureFilesAnalyzed,
		TagKeys:     []tag.Key{KeyWorkspace},
		Aggregation: view.Count(),
	},
	{
		Name:        "emmylua/analysis_diagnostics",
		Description: "Distribution of analysis diagnostics per file",
		Measure:     MeasureAnalysisDiags,
		Aggregation: view.Distribution(0, 1, 2, 5, 10, 50, 100),
	},
	{
		Name:        "emmylua/updates_dropped",
		Description: "File updates discarded after cancellation",
		Measure:     MeasureUpdatesDropped,
		Aggregation: view.Count(),
	},
}

// RegisterViews registers the analysis views with opencensus.
func RegisterViews() error {
	return view.Register(Views...)
}

func recordAnalyzed(ctx context.Context, idx *FileIndex) {
	err := stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyWorkspace, idx.Workspace.String())},
		MeasureFilesAnalyzed.M(1),
		MeasureAnalysisDiags.M(int64(len(idx.Diagnostics))),
	)
	if err != nil {
		log.Debugf("record stats: %v", err)
	}
}

func fileAttributes(uri string, ws WorkspaceID) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.CodeFilepath(URIToPath(uri)),
		attribute.String("emmylua.workspace", ws.String()),
	}
}

func recordDropped(ctx context.Context, n int) {
	stats.Record(context.WithoutCancel(ctx), MeasureUpdatesDropped.M(int64(n)))
}
