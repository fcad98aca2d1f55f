package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ssherwood/placeservice/internal/config"
	"github.com/yugabyte/pgx/v5"
	"github.com/yugabyte/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "github.com/ssherwood/placeservice/internal/shared/pgx"
	sqlOperationUnknown = "UNKNOWN"
)

const (
	// RowsAffectedKey represents the number of rows affected.
	RowsAffectedKey = attribute.Key("pgx.rows_affected")
	// QueryParametersKey represents the query parameters.
	QueryParametersKey = attribute.Key("pgx.query.parameters")
	// SQLStateKey represents PostgreSQL error code,
	// see https://www.postgresql.org/docs/current/errcodes-appendix.html.
	SQLStateKey = attribute.Key("pgx.sql_state")
)

type SpanNameFunc func(stmt string) string

// querySpanKey marks contexts whose current span was started by TraceQueryStart.
type querySpanKey struct{}

// PgxQueryTracer opens a client span per query and ends it with the command tag or error.
type PgxQueryTracer struct {
	tracer              trace.Tracer
	attrs               []attribute.KeyValue
	trimQuerySpanName   bool
	spanNameFunc        SpanNameFunc
	prefixQuerySpanName bool
	logSQLStatement     bool
	includeParams       bool
}

func NewQueryTracer(globalAttrs []attribute.KeyValue) *PgxQueryTracer {
	return &PgxQueryTracer{
		tracer:              otel.GetTracerProvider().Tracer(tracerName, trace.WithInstrumentationVersion(config.ServiceVersion)),
		attrs:               globalAttrs,
		trimQuerySpanName:   true,
		prefixQuerySpanName: config.OTELPrefixQuerySpanName,
		logSQLStatement:     config.OTELTracerLogSQLStatement,
		includeParams:       config.OTELTracerIncludeParams,
	}
}

func (t *PgxQueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	slog.Debug("Query start", slog.String("db.statement", data.SQL))

	if !trace.SpanFromContext(ctx).IsRecording() {
		return ctx
	}

	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.attrs...),
	}

	if conn != nil {
		opts = append(opts, connectionAttributesFromConfig(conn.Config())...)
	}

	if t.logSQLStatement {
		opts = append(opts, trace.WithAttributes(semconv.DBStatement(data.SQL)))
		if t.includeParams {
			opts = append(opts, trace.WithAttributes(makeParamsAttribute(data.Args)))
		}
	}

	ctx, _ = t.tracer.Start(ctx, t.spanName(data.SQL), opts...)
	return context.WithValue(ctx, querySpanKey{}, true)
}

func (t *PgxQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if data.Err == nil {
		slog.Debug("Query end", slog.String("db.command_tag", data.CommandTag.String()))
	}

	// the span in ctx belongs to the caller unless TraceQueryStart opened one
	if owned, _ := ctx.Value(querySpanKey{}).(bool); !owned {
		return
	}

	span := trace.SpanFromContext(ctx)
	if data.Err == nil {
		span.SetAttributes(RowsAffectedKey.Int64(data.CommandTag.RowsAffected()))
	} else {
		recordSQLError(span, data.Err)
	}

	span.End()
}

func (t *PgxQueryTracer) TraceConnectStart(ctx context.Context, data pgx.TraceConnectStartData) context.Context {
	slog.Debug("Connection start", slog.String("db.host", data.ConnConfig.Host))
	return ctx
}

func (t *PgxQueryTracer) TraceConnectEnd(_ context.Context, data pgx.TraceConnectEndData) {
	if data.Err != nil {
		slog.Warn("Connection failed", config.ErrAttr(data.Err))
	}
}

func (t *PgxQueryTracer) spanName(stmt string) string {
	name := stmt
	if t.trimQuerySpanName {
		name = t.sqlOperationName(stmt)
	}
	if t.prefixQuerySpanName {
		name = "query " + name
	}
	return name
}

// sqlOperationName returns the first word of the statement, usually the operation (e.g.
// 'SELECT').
func (t *PgxQueryTracer) sqlOperationName(stmt string) string {
	if t.spanNameFunc != nil {
		return t.spanNameFunc(stmt)
	}

	parts := strings.Fields(stmt)
	if len(parts) == 0 {
		// fixed value so whitespace-only statements don't each create a new span name
		return sqlOperationUnknown
	}
	return strings.ToUpper(parts[0])
}

func connectionAttributesFromConfig(cfg *pgx.ConnConfig) []trace.SpanStartOption {
	if cfg != nil {
		return []trace.SpanStartOption{
			trace.WithAttributes(
				semconv.ClientAddress(cfg.Host),
				semconv.ClientPort(int(cfg.Port)),
				semconv.DBUser(cfg.User),
			),
		}
	}
	return nil
}

func makeParamsAttribute(args []any) attribute.KeyValue {
	ss := make([]string, len(args))
	for i := range args {
		ss[i] = fmt.Sprintf("%+v", args[i])
	}
	return QueryParametersKey.StringSlice(ss)
}

func recordSQLError(span trace.Span, err error) {
	if err == nil || errors.Is(err, pgx.ErrNoRows) {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		span.SetAttributes(SQLStateKey.String(pgErr.Code))
	}
}
