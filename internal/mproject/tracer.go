package mproject

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type traceKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// queryTracer times every pgx query, feeding the duration histogram and
// warning about the ones slower than threshold.
type queryTracer struct {
	log       *zap.Logger
	threshold time.Duration
}

func newQueryTracer(log *zap.Logger, threshold time.Duration) *queryTracer {
	if threshold <= 0 {
		threshold = 100 * time.Millisecond
	}
	return &queryTracer{log: log, threshold: threshold}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, queryStart{at: time.Now(), sql: data.SQL})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(traceKey{}).(queryStart)
	if !ok {
		return
	}
	took := time.Since(start.at)
	op := operation(start.sql)
	dbQueryDuration.WithLabelValues(op).Observe(took.Seconds())

	if took <= t.threshold {
		return
	}
	slowQueryCount.WithLabelValues(op).Inc()
	t.log.Warn("slow-query",
		zap.String("sql", truncate(start.sql, 200)),
		zap.Duration("took", took),
		zap.String("command_tag", data.CommandTag.String()),
		zap.Error(data.Err),
	)
}

// operation is the leading SQL keyword, lower-cased.
func operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
