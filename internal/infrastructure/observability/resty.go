package observability

import (
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// restyLogger sends resty's internal warnings and errors to zerolog instead
// of stderr.
type restyLogger struct {
	logger zerolog.Logger
}

// RestyLogger adapts logger to resty.Logger.
func RestyLogger(logger zerolog.Logger) resty.Logger {
	return restyLogger{logger: logger.With().Str("source", "resty").Logger()}
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msg(restyMessage(format, v))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msg(restyMessage(format, v))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msg(restyMessage(format, v))
}

func restyMessage(format string, v []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
