package logger

import (
	"go.uber.org/zap"

	"github.com/teranos/pmcal/sym"
)

// AddSymbol wraps an instance logger with a glyph field.
//
// Usage:
//
//	r.refreshLog = logger.AddSymbol(baseLogger, sym.Refresh)
func AddSymbol(l *zap.SugaredLogger, symbol string) *zap.SugaredLogger {
	return l.With(FieldSymbol, symbol)
}

// AddRefreshSymbol wraps a logger with the refresh symbol (꩜)
func AddRefreshSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return AddSymbol(l, sym.Refresh)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return AddSymbol(l, sym.DB)
}
