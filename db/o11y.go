package db

import (
	"context"

	"github.com/benchbase/worldgate/o11y"
)

// Span starts the span for one statement, named "db: <table> <query>". Ending it sends a
// db.query timer tagged with the table, query and result. Field names follow the
// OpenTelemetry database conventions.
func Span(ctx context.Context, table, queryName string) (context.Context, o11y.Span) {
	ctx, span := o11y.StartSpan(ctx, "db: "+table+" "+queryName)
	span.AddRawField("db.system", "postgresql")
	span.AddRawField("db.collection.name", table)
	span.AddRawField("db.operation.name", queryName)
	span.RecordMetric(o11y.Timing("db.query", "db.collection.name", "db.operation.name", "result"))
	return ctx, span
}
