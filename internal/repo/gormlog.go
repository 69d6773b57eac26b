package repo

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold is the duration above which GORM reports a query as slow.
const slowQueryThreshold = 200 * time.Millisecond

// zerologWriter adapts a zerolog.Logger to GORM's logger.Writer so that
// database warnings land in the same structured stream as the rest of the
// service.
type zerologWriter struct {
	lg zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.lg.Warn().Str("component", "gorm").Msgf(strings.TrimSpace(format), args...)
}

// newGormLogger returns a GORM logger writing warnings to lg. Missing rows are
// expected lookups and are left for the caller to report.
func newGormLogger(lg zerolog.Logger) logger.Interface {
	return logger.New(zerologWriter{lg: lg}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
