package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// maxSQLLength bounds the statement text attached to a log entry.
const maxSQLLength = 512

// SQLTracer implements GORM's logger.Interface on a Logger.
//
// Each executed statement is logged at DEBUG with its verb and table. Failed
// statements are logged at WARN, except record-not-found and statements
// abandoned because the caller's context ended, which stay at DEBUG.
// Statements slower than the slow threshold are logged at WARN.
type SQLTracer struct {
	log  Logger
	slow time.Duration
}

// NewSQLTracer returns a tracer logging to log. A zero slow disables slow
// statement warnings.
func NewSQLTracer(log Logger, slow time.Duration) *SQLTracer {
	if log == nil {
		log = NewDiscardLogger()
	}
	return &SQLTracer{log: log, slow: slow}
}

// LogMode implements logger.Interface. Levels are set on the central logger.
func (t *SQLTracer) LogMode(gormlogger.LogLevel) gormlogger.Interface { return t }

// Info implements logger.Interface, logging at DEBUG.
func (t *SQLTracer) Info(_ context.Context, msg string, data ...any) {
	t.log.Debug(fmt.Sprintf(msg, data...), String("source", "gorm"))
}

// Warn implements logger.Interface.
func (t *SQLTracer) Warn(_ context.Context, msg string, data ...any) {
	t.log.Warn(fmt.Sprintf(msg, data...), String("source", "gorm"))
}

// Error implements logger.Interface.
func (t *SQLTracer) Error(_ context.Context, msg string, data ...any) {
	t.log.Error(fmt.Sprintf(msg, data...), String("source", "gorm"))
}

// Trace implements logger.Interface.
func (t *SQLTracer) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	verb, table := describeSQL(sql)

	fields := []Field{
		String("statement", verb),
		String("table", table),
		Int64("rows", rows),
		Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && ctx.Err() == nil:
		t.log.Warn("Statement failed", append(fields, String("sql", truncateSQL(sql)), Error(err))...)
	case t.slow > 0 && elapsed > t.slow:
		t.log.Warn("Slow statement", append(fields, String("sql", truncateSQL(sql)), Duration("threshold", t.slow))...)
	case err != nil && ctx.Err() != nil:
		t.log.Debug("Statement abandoned", append(fields, Error(err))...)
	default:
		t.log.Debug("Statement executed", append(fields, String("sql", truncateSQL(sql)))...)
	}
}

// describeSQL returns the upper-case verb of a statement and the first table
// it names, either of which may be empty.
func describeSQL(sql string) (verb, table string) {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return "", ""
	}
	verb = strings.ToUpper(words[0])

	for i, w := range words {
		switch strings.ToUpper(w) {
		case "FROM", "INTO", "UPDATE", "TABLE", "JOIN":
			if name := tableName(words[i+1:]); name != "" {
				return verb, name
			}
		}
	}
	return verb, ""
}

// tableName returns the first word that is not part of IF NOT EXISTS, without
// quoting.
func tableName(words []string) string {
	for _, w := range words {
		switch strings.ToUpper(w) {
		case "IF", "NOT", "EXISTS":
			continue
		}
		return strings.Trim(w, "`\"'(;")
	}
	return ""
}

func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLength {
		return sql
	}
	return sql[:maxSQLLength] + "..."
}
