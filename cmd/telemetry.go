// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/luthersystems/emmylua/analysis"
	"github.com/luthersystems/emmylua/semantic"
	"go.opencensus.io/stats/view"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// logExporter writes finished spans to the command logger at debug level.
type logExporter struct{}

func (logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		var attrs []string
		for _, kv := range s.Attributes() {
			attrs = append(attrs, string(kv.Key)+"="+kv.Value.Emit())
		}
		log.Debugf("span %s %s [%s]", s.Name(), s.EndTime().Sub(s.StartTime()).Round(time.Microsecond), strings.Join(attrs, " "))
	}
	return nil
}

func (logExporter) Shutdown(context.Context) error { return nil }

// startTracing installs a tracer provider that logs every span.  The
// returned function flushes and removes it.
func startTracing() func() {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(logExporter{}))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warningf("shutting down tracer: %v", err)
		}
		otel.SetTracerProvider(prev)
	}
}

// startStats registers the analysis and inference views.  The returned
// function writes their data to w and unregisters them.
func startStats(w io.Writer) (func(), error) {
	if err := analysis.RegisterViews(); err != nil {
		return nil, err
	}
	if err := semantic.RegisterViews(); err != nil {
		view.Unregister(analysis.Views...)
		return nil, err
	}
	views := append(append([]*view.View{}, analysis.Views...), semantic.Views...)
	return func() {
		writeStats(w, views)
		view.Unregister(views...)
	}, nil
}

func writeStats(w io.Writer, views []*view.View) {
	for _, v := range views {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			log.Warningf("retrieving %s: %v", v.Name, err)
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			var tags []string
			for _, t := range row.Tags {
				tags = append(tags, t.Key.Name()+"="+t.Value)
			}
			lines = append(lines, fmt.Sprintf("  %s%s", aggregate(row.Data), tagSuffix(tags)))
		}
		sort.Strings(lines)
		fmt.Fprintf(w, "%s: %s\n", v.Name, v.Description) //nolint:errcheck // best-effort stats output
		for _, l := range lines {
			fmt.Fprintln(w, l) //nolint:errcheck // best-effort stats output
		}
	}
}

func aggregate(data view.AggregationData) string {
	switch d := data.(type) {
	case *view.CountData:
		return fmt.Sprintf("count=%d", d.Value)
	case *view.DistributionData:
		return fmt.Sprintf("count=%d mean=%.2f max=%.0f", d.Count, d.Mean, d.Max)
	case *view.SumData:
		return fmt.Sprintf("sum=%.0f", d.Value)
	case *view.LastValueData:
		return fmt.Sprintf("last=%.0f", d.Value)
	}
	return fmt.Sprint(data)
}

func tagSuffix(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " (" + strings.Join(tags, ", ") + ")"
}
